// Package cmd provides the command-line interface for exhibit.
//
// # Available Commands
//
//   - serve: Serve every configured exhibition with live preview updates
//   - render: Compose one exhibition and print the resulting document
//   - list: List the configured exhibitions
//   - version: Show version information
//
// # Command Examples
//
//	// Serve on another port without opening a browser
//	exhibit serve --port 3000 --no-open
//
//	// Render an exhibition from the config file
//	exhibit render buttons -o buttons.html
//
//	// Render editor files directly, without a config file
//	exhibit render demo page.html style.css app.ts
//
//	// List exhibitions as YAML
//	exhibit list -o yaml
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (EXHIBIT_*)
//  3. Configuration file (.exhibit.yml)
//  4. Default values (lowest priority)
//
// Errors that have known remedies are printed with suggestions.
package cmd

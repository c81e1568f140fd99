package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	Exhibitions     []string
	ConfigPath      string
	Port            int
	CompilerCommand string
}

// Suggest returns the suggestions matching err.
func Suggest(err error, ctx SuggestionContext) []ErrorSuggestion {
	if err == nil {
		return nil
	}
	switch {
	case HasCode(err, ErrCodeExhibitionNotFound):
		var ee *ExhibitError
		name := ""
		if errors.As(err, &ee) {
			name, _ = ee.Context["exhibition"].(string)
		}
		return ExhibitionNotFoundSuggestions(name, ctx)
	case HasCode(err, ErrCodeWorkerUnavailable), HasCode(err, ErrCodeCompileFailed):
		return CompilerSuggestions(err, ctx)
	case IsConfigError(err):
		return ConfigurationSuggestions(err.Error(), ctx)
	}

	msg := err.Error()
	if strings.Contains(msg, "address already in use") || strings.Contains(msg, "bind") {
		return ServerStartSuggestions(err, ctx)
	}
	if strings.Contains(msg, "invalid configuration") || strings.Contains(msg, "decoding configuration") {
		return ConfigurationSuggestions(msg, ctx)
	}
	return nil
}

// ExhibitionNotFoundSuggestions generates suggestions for an unknown
// exhibition name.
func ExhibitionNotFoundSuggestions(name string, ctx SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "List configured exhibitions",
			Description: "See which exhibitions the configuration defines",
			Command:     "exhibit list",
		},
	}

	if len(ctx.Exhibitions) > 0 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Available exhibitions",
			Description: "These exhibitions are configured: " + strings.Join(ctx.Exhibitions, ", "),
		})

		lower := strings.ToLower(name)
		for _, candidate := range ctx.Exhibitions {
			c := strings.ToLower(candidate)
			if lower != "" && (strings.Contains(c, lower) || strings.Contains(lower, c)) {
				suggestions = append(suggestions, ErrorSuggestion{
					Title:       "Did you mean '" + candidate + "'?",
					Description: "Similar exhibition found",
					Command:     "exhibit render " + candidate,
				})
				break
			}
		}
	}

	return suggestions
}

// CompilerSuggestions generates suggestions for typescript compilation
// failures.
func CompilerSuggestions(err error, ctx SuggestionContext) []ErrorSuggestion {
	command := ctx.CompilerCommand
	if command == "" {
		command = "esbuild"
	}

	if HasCode(err, ErrCodeWorkerUnavailable) {
		return []ErrorSuggestion{
			{
				Title:       "Install the compiler",
				Description: fmt.Sprintf("Typescript editors need %s on the PATH", command),
				Command:     "npm install -g " + command,
			},
			{
				Title:       "Choose another compiler",
				Description: "Set compiler.command to one of esbuild, tsc, swc, bun or deno",
				Example:     "compiler:\n  command: esbuild\n  args: [\"--loader=ts\"]",
			},
		}
	}

	return []ErrorSuggestion{
		{
			Title:       "Fix the reported diagnostics",
			Description: "The compiler rejected the editor source; the locations above point at the problem",
		},
		{
			Title:       "Check the compiler arguments",
			Description: fmt.Sprintf("%s must read the source on stdin and write javascript to stdout", command),
			Example:     "compiler:\n  args: [\"--loader=ts\"]",
		},
	}
}

// ServerStartSuggestions generates suggestions for server startup failures
func ServerStartSuggestions(err error, ctx SuggestionContext) []ErrorSuggestion {
	var suggestions []ErrorSuggestion
	port := ctx.Port

	if strings.Contains(err.Error(), "address already in use") || strings.Contains(err.Error(), "bind") {
		suggestions = append(suggestions,
			ErrorSuggestion{
				Title:       "Port already in use",
				Description: fmt.Sprintf("Port %d is already being used by another process", port),
				Command:     fmt.Sprintf("lsof -i :%d", port),
			},
			ErrorSuggestion{
				Title:       "Use a different port",
				Description: "Start the server on a different port",
				Command:     fmt.Sprintf("exhibit serve --port %d", port+1),
			},
		)
	}

	return suggestions
}

// ConfigurationSuggestions generates suggestions for configuration issues
func ConfigurationSuggestions(configError string, ctx SuggestionContext) []ErrorSuggestion {
	path := ctx.ConfigPath
	if path == "" {
		path = ".exhibit.yml"
	}

	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify " + path + " exists and has valid syntax",
			Command:     "cat " + path,
		},
	}

	lower := strings.ToLower(configError)
	if strings.Contains(lower, "yaml") || strings.Contains(lower, "toml") || strings.Contains(lower, "decoding") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix the syntax",
			Description: "Configuration and front matter must be valid YAML or TOML",
			Example:     "Use proper indentation and avoid tabs",
		})
	}
	if strings.Contains(lower, "language") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use a supported language",
			Description: "Editors accept html, css, javascript and typescript",
			Example:     "+++\nlanguage = \"typescript\"\n+++",
		})
	}
	if strings.Contains(lower, "exist") || strings.Contains(lower, "path") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check file paths",
			Description: "Editor and template paths are relative to the working directory",
			Command:     "ls -la",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}

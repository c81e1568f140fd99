package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}
	write("errors", vr.Errors)
	write("warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// dangerousChars are rejected in hosts, paths and compiler arguments.
const dangerousChars = ";&|$`()<>\"'\\\n"

// Validate checks every section and collects the problems found.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServer(&config.Server, result)
	validatePreview(&config.Preview, result)
	validateCompiler(&config.Compiler, result)
	validateWatch(&config.Watch, result)
	validateLog(&config.Log, result)
	validateExhibitions(config.Exhibitions, result)

	return result
}

func validateServer(config *ServerConfig, result *ValidationResult) {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		result.addError("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access")
	} else if config.Port > 0 && config.Port < 1024 {
		result.addWarning("server.port", config.Port, "privileged port may require elevated permissions")
	}

	if config.Host != "" {
		if strings.ContainsAny(config.Host, dangerousChars) {
			result.addError("server.host", config.Host, "host contains dangerous characters")
		} else if net.ParseIP(config.Host) == nil && !validHostname(config.Host) {
			result.addError("server.host", config.Host, "host is neither an IP address nor a hostname",
				"Use 'localhost' for local development", "Use '0.0.0.0' to listen on all interfaces")
		}
	}

	if !strings.HasPrefix(config.BlobPrefix, "/") || !strings.HasSuffix(config.BlobPrefix, "/") || config.BlobPrefix == "/" {
		result.addError("server.blob_prefix", config.BlobPrefix, "blob prefix must be a path such as /blob/")
	}
}

func validHostname(host string) bool {
	if len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 || !namePattern.MatchString(label) || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}

func validatePreview(config *PreviewConfig, result *ValidationResult) {
	if config.SettleDelay < 0 {
		result.addError("preview.settle_delay", config.SettleDelay, "settle delay must not be negative")
	}
	if strings.TrimSpace(config.UpdaterSelector) == "" {
		result.addError("preview.updater_selector", config.UpdaterSelector, "updater selector must not be empty")
	}
}

func validateCompiler(config *CompilerConfig, result *ValidationResult) {
	if config.Command == "" {
		result.addWarning("compiler.command", config.Command, "no compiler configured; typescript editors will fail to initialize")
	} else if strings.ContainsAny(config.Command, dangerousChars) {
		result.addError("compiler.command", config.Command, "command contains dangerous characters")
	}
	for _, arg := range config.Args {
		if strings.ContainsAny(arg, dangerousChars) {
			result.addError("compiler.args", arg, "argument contains dangerous characters")
		}
	}
	// Zero selects the built-in default for each retry setting.
	if config.WorkerAttempts < 0 {
		result.addError("compiler.worker_attempts", config.WorkerAttempts, "worker attempts must not be negative")
	}
	if config.ProbeAttempts < 0 {
		result.addError("compiler.probe_attempts", config.ProbeAttempts, "probe attempts must not be negative")
	}
	if config.WorkerDelay < 0 {
		result.addError("compiler.worker_delay", config.WorkerDelay, "worker delay must not be negative")
	}
	if config.ProbeDelay < 0 {
		result.addError("compiler.probe_delay", config.ProbeDelay, "probe delay must not be negative")
	}
}

func validateWatch(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.addError("watch.debounce", config.Debounce, "debounce must not be negative")
	}
}

func validateLog(config *LogConfig, result *ValidationResult) {
	switch strings.ToLower(config.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		result.addWarning("log.level", config.Level, "unknown level, using info")
	}
	switch config.Format {
	case "", "text", "json":
	default:
		result.addError("log.format", config.Format, "format must be text or json")
	}
}

func validateExhibitions(exhibitions []ExhibitionConfig, result *ValidationResult) {
	seen := make(map[string]bool, len(exhibitions))
	for i, x := range exhibitions {
		field := fmt.Sprintf("exhibitions[%d]", i)

		if !namePattern.MatchString(x.Name) {
			result.addError(field+".name", x.Name, "name must be alphanumeric with - or _",
				"Names appear in URLs such as /exhibitions/<name>")
		} else if seen[x.Name] {
			result.addError(field+".name", x.Name, "duplicate exhibition name")
		}
		seen[x.Name] = true

		if len(x.Editors) == 0 {
			result.addWarning(field+".editors", nil, "exhibition has no editors")
		}
		for _, path := range x.Editors {
			if err := validatePath(path); err != nil {
				result.addError(field+".editors", path, err.Error())
				continue
			}
			if !pathExists(path) {
				result.addError(field+".editors", path, "editor file does not exist")
			}
		}

		if x.Template != "" {
			if err := validatePath(x.Template); err != nil {
				result.addError(field+".template", x.Template, err.Error())
			} else if !pathExists(x.Template) {
				result.addError(field+".template", x.Template, "template file does not exist")
			}
		}
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}
	if strings.ContainsAny(cleanPath, dangerousChars) {
		return fmt.Errorf("path contains dangerous characters: %s", path)
	}

	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package errors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorSeverity represents the severity of a compiler diagnostic
type ErrorSeverity int

const (
	ErrorSeverityWarning ErrorSeverity = iota
	ErrorSeverityError
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParsedError is one diagnostic extracted from compiler output.
type ParsedError struct {
	Severity ErrorSeverity `json:"severity"`
	File     string        `json:"file,omitempty"`
	Line     int           `json:"line,omitempty"`
	Column   int           `json:"column,omitempty"`
	Code     string        `json:"code,omitempty"`
	Message  string        `json:"message"`
	RawError string        `json:"raw_error"`
}

var (
	// ✘ [ERROR] Expected ";" but found "y"
	esbuildHeader = regexp.MustCompile(`^(?:✘|X|▲)\s*\[(ERROR|WARNING)\]\s+(.+)$`)
	//     <stdin>:1:6:
	esbuildLocation = regexp.MustCompile(`^(.+?):(\d+):(\d+):$`)
	// src/a.ts(3,5): error TS2322: message
	tscParens = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (error|warning) (TS\d+): (.+)$`)
	// src/a.ts:3:5 - error TS2322: message
	tscPretty = regexp.MustCompile(`^(.+?):(\d+):(\d+) - (error|warning) (TS\d+): (.+)$`)
)

// ParseCompilerOutput extracts the diagnostics of esbuild and tsc from their
// output. Lines mentioning an error that match no known format become
// diagnostics without a location.
func ParseCompilerOutput(output string) []*ParsedError {
	var parsed []*ParsedError
	var pending *ParsedError

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if pending != nil && pending.File == "" {
			if m := esbuildLocation.FindStringSubmatch(line); m != nil {
				pending.File = m[1]
				pending.Line, _ = strconv.Atoi(m[2])
				pending.Column, _ = strconv.Atoi(m[3])
				continue
			}
		}

		if m := esbuildHeader.FindStringSubmatch(line); m != nil {
			pending = &ParsedError{
				Severity: severityOf(m[1]),
				Message:  m[2],
				RawError: line,
			}
			parsed = append(parsed, pending)
			continue
		}

		if m := tscParens.FindStringSubmatch(line); m != nil {
			parsed = append(parsed, tscError(m, line))
			pending = nil
			continue
		}
		if m := tscPretty.FindStringSubmatch(line); m != nil {
			parsed = append(parsed, tscError(m, line))
			pending = nil
			continue
		}

		if pending == nil && isErrorSummary(line) {
			continue
		}
		if pending == nil && strings.Contains(strings.ToLower(line), "error") {
			parsed = append(parsed, &ParsedError{
				Severity: ErrorSeverityError,
				Message:  line,
				RawError: line,
			})
		}
	}

	return parsed
}

func tscError(m []string, raw string) *ParsedError {
	line, _ := strconv.Atoi(m[2])
	column, _ := strconv.Atoi(m[3])
	return &ParsedError{
		Severity: severityOf(m[4]),
		File:     m[1],
		Line:     line,
		Column:   column,
		Code:     m[5],
		Message:  m[6],
		RawError: raw,
	}
}

func severityOf(s string) ErrorSeverity {
	if strings.EqualFold(s, "warning") {
		return ErrorSeverityWarning
	}
	return ErrorSeverityError
}

// isErrorSummary matches trailers such as "1 error" or "Found 2 errors.".
func isErrorSummary(line string) bool {
	l := strings.ToLower(strings.TrimSuffix(line, "."))
	l = strings.TrimPrefix(l, "found ")
	fields := strings.Fields(l)
	if len(fields) < 2 {
		return false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return false
	}
	return strings.HasPrefix(fields[1], "error") || strings.HasPrefix(fields[1], "warning")
}

// FormatError formats a parsed error for display
func (pe *ParsedError) FormatError() string {
	var b strings.Builder

	if pe.File != "" {
		b.WriteString(pe.File)
		if pe.Line > 0 {
			fmt.Fprintf(&b, ":%d", pe.Line)
			if pe.Column > 0 {
				fmt.Fprintf(&b, ":%d", pe.Column)
			}
		}
		b.WriteString(": ")
	}
	b.WriteString(pe.Severity.String())
	if pe.Code != "" {
		b.WriteString(" " + pe.Code)
	}
	b.WriteString(": " + pe.Message)

	return b.String()
}

// FormatParsedErrors joins the formatted diagnostics, one per line.
func FormatParsedErrors(parsed []*ParsedError) string {
	lines := make([]string, len(parsed))
	for i, pe := range parsed {
		lines[i] = pe.FormatError()
	}
	return strings.Join(lines, "\n")
}

// CompileError creates the error returned when the external compiler fails.
// The diagnostics parsed from its output are kept in the context under
// "diagnostics".
func CompileError(command string, output string, cause error) *ExhibitError {
	parsed := ParseCompilerOutput(output)
	message := command + " failed"
	if len(parsed) > 0 {
		message += ":\n" + FormatParsedErrors(parsed)
	} else if trimmed := strings.TrimSpace(output); trimmed != "" {
		message += ":\n" + trimmed
	}

	return NewInternalError(ErrCodeCompileFailed, message, cause).
		WithComponent("compiler").
		WithContext("diagnostics", parsed)
}

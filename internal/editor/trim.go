package editor

import "strings"

// TrimDefaultValue removes the indentation of the first non-blank line from
// every line that is indented at least as much, then trims the result.
//
//	"\n    <p>\n      x\n    </p>\n" => "<p>\n  x\n</p>"
func TrimDefaultValue(content string) string {
	lines := strings.Split(content, "\n")

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			indent = len(line) - len(strings.TrimLeft(line, " \t\r\v\f"))
			break
		}
	}
	if indent < 0 {
		return strings.TrimSpace(content)
	}

	for i, line := range lines {
		if len(line) >= indent && strings.TrimSpace(line[:indent]) == "" {
			lines[i] = line[indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

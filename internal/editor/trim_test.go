package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimDefaultValue(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"blank lines only", "  \n\t\n ", ""},
		{"no indentation", "a\n  b", "a\n  b"},
		{"common indentation", "\n    <div>\n      <p>x</p>\n    </div>\n  ", "<div>\n  <p>x</p>\n</div>"},
		{"shallower line kept", "    a\n  b\n    c", "a\n  b\nc"},
		{"blank line inside", "  a\n\n  b", "a\n\nb"},
		{"tabs", "\t\tx\n\t\ty", "x\ny"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TrimDefaultValue(tc.input))
		})
	}
}

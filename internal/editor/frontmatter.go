package editor

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/options"
)

const (
	tomlDelimiter = "+++"
	yamlDelimiter = "---"
)

// ParseFrontMatter splits an editor file into its option block and body.
// A file may open with a TOML block fenced by +++ lines or a YAML block
// fenced by --- lines. Files without a block return nil values and the
// content unchanged.
func ParseFrontMatter(content []byte) (options.Values, []byte, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	first, rest, ok := cutLine(content)
	if !ok && len(first) == 0 {
		return nil, content, nil
	}
	delim := string(bytes.TrimSpace(first))
	if delim != tomlDelimiter && delim != yamlDelimiter {
		return nil, content, nil
	}

	var block []byte
	remaining := rest
	closed := false
	for len(remaining) > 0 {
		line, next, _ := cutLine(remaining)
		if string(bytes.TrimSpace(line)) == delim {
			block = rest[:len(rest)-len(remaining)]
			remaining = next
			closed = true
			break
		}
		remaining = next
	}
	if !closed {
		return nil, content, errors.NewConfigError(errors.ErrCodeInvalidOption, "unterminated front matter")
	}

	values := make(map[string]interface{})
	var err error
	if delim == tomlDelimiter {
		_, err = toml.Decode(string(block), &values)
	} else {
		err = yaml.Unmarshal(block, &values)
	}
	if err != nil {
		return nil, content, errors.NewConfigError(errors.ErrCodeInvalidOption, "parsing front matter").WithCause(err)
	}

	return options.Values(values), remaining, nil
}

// cutLine returns the first line without its terminator and the remainder.
func cutLine(b []byte) (line, rest []byte, found bool) {
	line, rest, found = bytes.Cut(b, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, found
}

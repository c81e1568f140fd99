package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/exhibit/internal/config"
	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// project writes two exhibitions and the config file naming them.
func project(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	css := writeFile(t, dir, "style.css", "p { color: red; }")
	body := writeFile(t, dir, "body.html", "<p>Hello</p>")
	card := writeFile(t, dir, "card.html", "<div class=\"card\"></div>")

	cfg := map[string]interface{}{
		"log": map[string]interface{}{"level": "error"},
		"exhibitions": []config.ExhibitionConfig{
			{Name: "buttons", Title: "Buttons", Editors: []string{css, body}},
			{Name: "cards", Editors: []string{card}},
		},
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	return dir, writeFile(t, dir, ".exhibit.yml", string(data))
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	renderOutput, renderTemplate = "", ""
	listFormat = "table"
	versionFormat, versionShort = "text", false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestListTable(t *testing.T) {
	_, cfgPath := project(t)

	out, err := execute(t, "list", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "buttons")
	assert.Contains(t, out, "Buttons")
	assert.Contains(t, out, "cards")
	assert.Contains(t, out, "Total: 2 exhibitions")
}

func TestListFormats(t *testing.T) {
	_, cfgPath := project(t)

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "list", "--config", cfgPath, "-o", "yaml")
		require.NoError(t, err)

		var decoded struct {
			Exhibitions []config.ExhibitionConfig `yaml:"exhibitions"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
		require.Len(t, decoded.Exhibitions, 2)
		assert.Equal(t, "buttons", decoded.Exhibitions[0].Name)
		assert.Len(t, decoded.Exhibitions[0].Editors, 2)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "list", "--config", cfgPath, "-o", "json")
		require.NoError(t, err)

		var decoded []config.ExhibitionConfig
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, "cards", decoded[1].Name)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := execute(t, "list", "--config", cfgPath, "-o", "xml")
		assert.ErrorContains(t, err, "invalid output format xml")
	})
}

func TestRenderConfigured(t *testing.T) {
	_, cfgPath := project(t)

	out, err := execute(t, "render", "buttons", "--config", cfgPath)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<style>p { color: red; }</style>")
	assert.Contains(t, out, "<p>Hello</p>")
}

func TestRenderToFile(t *testing.T) {
	dir, cfgPath := project(t)
	target := filepath.Join(dir, "out.html")

	out, err := execute(t, "render", "cards", "--config", cfgPath, "-f", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<div class="card"></div>`)
}

func TestRenderFiles(t *testing.T) {
	dir, cfgPath := project(t)
	js := writeFile(t, dir, "app.js", "console.log('hi')")

	out, err := execute(t, "render", "buttons", js, "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "<script>console.log('hi')</script>")
	assert.NotContains(t, out, "<p>Hello</p>", "files replace the configured editors")
}

func TestRenderUnknownSuggests(t *testing.T) {
	_, cfgPath := project(t)

	_, err := execute(t, "render", "button", "--config", cfgPath)
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, errors.ErrCodeExhibitionNotFound))
	msg := describeError(err)
	assert.Contains(t, msg, "Suggestions:")
	assert.Contains(t, msg, "Did you mean 'buttons'?")
}

func TestRenderRequiresName(t *testing.T) {
	_, err := execute(t, "render")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "-f", "json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	out, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, err = execute(t, "version", "-f", "toml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestValidatePort(t *testing.T) {
	testCases := []struct {
		input   string
		wantErr bool
	}{
		{"8080", false},
		{"1", false},
		{"65535", false},
		{"0", true},
		{"65536", true},
		{"http", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			err := ValidatePort(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "Error: boom", describeError(fmt.Errorf("boom")))

	enhanced := errors.NewEnhancedError("Render failed", errors.ErrDestroyed, []errors.ErrorSuggestion{{Title: "Retry"}})
	assert.Contains(t, describeError(fmt.Errorf("wrapped: %w", enhanced)), "1. Retry")
}

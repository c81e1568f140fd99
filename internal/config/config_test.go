package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "/blob/", cfg.Server.BlobPrefix)
	assert.True(t, cfg.Preview.UpdateHeight)
	assert.Equal(t, 100*time.Millisecond, cfg.Preview.SettleDelay)
	assert.True(t, cfg.Preview.UpdatePreviewOnInit)
	assert.Equal(t, "[data-js-exhibition-updater]", cfg.Preview.UpdaterSelector)
	assert.Equal(t, "esbuild", cfg.Compiler.Command)
	assert.Equal(t, []string{"--loader=ts"}, cfg.Compiler.Args)
	assert.Equal(t, 10, cfg.Compiler.WorkerAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Compiler.WorkerDelay)
	assert.Equal(t, 20, cfg.Compiler.ProbeAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Compiler.ProbeDelay)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Exhibitions)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", "<p>x</p>")
	style := writeFile(t, dir, "style.css", "p{}")
	cfgPath := writeFile(t, dir, FileName, `
server:
  port: 3000
  host: 0.0.0.0
preview:
  settle_delay: 250ms
  update_height: false
compiler:
  command: tsc
  args: []
exhibitions:
  - name: demo
    title: Demo page
    editors:
      - `+page+`
      - `+style+`
`)

	v := viper.New()
	v.SetConfigFile(cfgPath)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Address())
	assert.Equal(t, 250*time.Millisecond, cfg.Preview.SettleDelay)
	assert.False(t, cfg.Preview.UpdateHeight)
	assert.Equal(t, "tsc", cfg.Compiler.Command)

	x, ok := cfg.Exhibition("demo")
	require.True(t, ok)
	assert.Equal(t, "Demo page", x.Title)
	assert.Equal(t, []string{page, style}, x.Editors)

	_, ok = cfg.Exhibition("other")
	assert.False(t, ok)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EXHIBIT_SERVER_PORT", "9090")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestNoOpenOverride(t *testing.T) {
	v := viper.New()
	v.Set("server.open", true)
	v.Set("server.no-open", true)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.False(t, cfg.Server.Open)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value interface{}
		field string
	}{
		{"port out of range", "server.port", 70000, "server.port"},
		{"port not a number", "server.port", "invalid_port", ""},
		{"dangerous host", "server.host", "localhost;rm", "server.host"},
		{"bad blob prefix", "server.blob_prefix", "blob", "server.blob_prefix"},
		{"negative settle", "preview.settle_delay", "-1s", "preview.settle_delay"},
		{"negative worker attempts", "compiler.worker_attempts", -1, "compiler.worker_attempts"},
		{"negative probe attempts", "compiler.probe_attempts", -3, "compiler.probe_attempts"},
		{"negative worker delay", "compiler.worker_delay", "-200ms", "compiler.worker_delay"},
		{"negative probe delay", "compiler.probe_delay", "-1s", "compiler.probe_delay"},
		{"compiler injection", "compiler.args", []string{"--x;rm"}, "compiler.args"},
		{"log format", "log.format", "xml", "log.format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tc.key, tc.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tc.field != "" {
				assert.Contains(t, err.Error(), tc.field)
			}
		})
	}
}

func TestLoadZeroRetrySettings(t *testing.T) {
	v := viper.New()
	v.Set("compiler.worker_attempts", 0)
	v.Set("compiler.worker_delay", "0s")
	v.Set("compiler.probe_attempts", 0)
	v.Set("compiler.probe_delay", 0)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Zero(t, cfg.Compiler.WorkerAttempts)
	assert.Zero(t, cfg.Compiler.ProbeAttempts)
	assert.Zero(t, cfg.Compiler.WorkerDelay)
	assert.Zero(t, cfg.Compiler.ProbeDelay)
}

func TestValidateExhibitions(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", "<p>x</p>")

	cfg := &Config{Exhibitions: []ExhibitionConfig{
		{Name: "ok", Editors: []string{page}},
		{Name: "ok", Editors: []string{page}},
		{Name: "bad name!", Editors: []string{page}},
		{Name: "missing", Editors: []string{filepath.Join(dir, "nope.css")}},
		{Name: "traversal", Editors: []string{"../etc/passwd"}},
		{Name: "empty"},
	}}
	cfg.Server.BlobPrefix = "/blob/"
	cfg.Preview.UpdaterSelector = "[x]"
	cfg.Compiler.WorkerAttempts = 1

	result := Validate(cfg)
	require.True(t, result.HasErrors())
	assert.True(t, result.HasWarnings())

	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field+": "+e.Message)
	}
	joined := strings.Join(fields, "\n")
	assert.Contains(t, joined, "exhibitions[1].name: duplicate exhibition name")
	assert.Contains(t, joined, "exhibitions[2].name")
	assert.Contains(t, joined, "exhibitions[3].editors: editor file does not exist")
	assert.Contains(t, joined, "exhibitions[4].editors: path contains traversal")
	assert.Len(t, result.Errors, 4)

	assert.Contains(t, result.String(), "warnings:")
}

func TestBuilder(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", "<p>x</p>")
	tmpl := writeFile(t, dir, "layout.html", "<div></div>")

	cfg, err := NewBuilder().
		WithServer("127.0.0.1", 0).
		WithExhibition("demo", page).
		WithTemplate("demo", tmpl).
		WithCompiler("tsc").
		WithUpdateHeight(false).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:0", cfg.Server.Address())
	assert.Equal(t, "tsc", cfg.Compiler.Command)
	assert.Empty(t, cfg.Compiler.Args)
	assert.False(t, cfg.Preview.UpdateHeight)
	assert.Equal(t, 10, cfg.Compiler.WorkerAttempts)
	require.Len(t, cfg.Exhibitions, 1)
	assert.Equal(t, tmpl, cfg.Exhibitions[0].Template)
}

func TestBuilderErrors(t *testing.T) {
	_, err := NewBuilder().WithTemplate("nope", "x.html").Build()
	assert.ErrorContains(t, err, `no exhibition named "nope"`)

	sentinel := errors.New("custom")
	_, err = NewBuilder().AddValidator(func(*Config) error { return sentinel }).Build()
	assert.ErrorIs(t, err, sentinel)

	_, err = NewBuilder().WithServer("bad host", 8080).Build()
	assert.Error(t, err)
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	v.Set("server.port", 4000)

	cfg, err := FromViper(v).WithServer("localhost", 4001).Build()
	require.NoError(t, err)
	assert.Equal(t, 4001, cfg.Server.Port)

	v = viper.New()
	v.Set("server.port", -1)
	_, err = FromViper(v).Build()
	assert.Error(t, err)
}

func TestClearExhibitions(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", "<p>x</p>")

	v := viper.New()
	v.Set("exhibitions", []map[string]interface{}{{"name": "demo", "editors": []string{page}}})

	cfg, err := FromViper(v).ClearExhibitions().WithExhibition("demo", page).Build()
	require.NoError(t, err)
	require.Len(t, cfg.Exhibitions, 1)
	assert.Equal(t, []string{page}, cfg.Exhibitions[0].Editors)
}

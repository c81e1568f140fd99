// Package config loads the exhibit CLI configuration with Viper from the
// .exhibit.yml file, EXHIBIT_ environment variables and command-line flags.
//
// The configuration describes the HTTP server, the preview defaults, the
// external typescript compiler, the file watcher, logging and the list of
// exhibitions, each of which names the editor files it composes.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. EXHIBIT_SERVER_PORT.
const EnvPrefix = "EXHIBIT"

// FileName is the configuration file looked up in the working directory.
const FileName = ".exhibit.yml"

type Config struct {
	Server      ServerConfig       `mapstructure:"server" yaml:"server"`
	Preview     PreviewConfig      `mapstructure:"preview" yaml:"preview"`
	Compiler    CompilerConfig     `mapstructure:"compiler" yaml:"compiler"`
	Watch       WatchConfig        `mapstructure:"watch" yaml:"watch"`
	Log         LogConfig          `mapstructure:"log" yaml:"log"`
	Exhibitions []ExhibitionConfig `mapstructure:"exhibitions" yaml:"exhibitions"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	Open           bool     `mapstructure:"open" yaml:"open"`
	NoOpen         bool     `mapstructure:"no-open" yaml:"no-open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	BlobPrefix     string   `mapstructure:"blob_prefix" yaml:"blob_prefix"`
}

type PreviewConfig struct {
	UpdateHeight        bool          `mapstructure:"update_height" yaml:"update_height"`
	SettleDelay         time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	UpdatePreviewOnInit bool          `mapstructure:"update_preview_on_init" yaml:"update_preview_on_init"`
	UpdaterSelector     string        `mapstructure:"updater_selector" yaml:"updater_selector"`
}

// CompilerConfig configures the external typescript compiler and the
// retrieval retry budget. A zero attempt count or delay selects the built-in
// default; negative values are rejected by validation.
type CompilerConfig struct {
	Command        string        `mapstructure:"command" yaml:"command"`
	Args           []string      `mapstructure:"args" yaml:"args"`
	WorkerAttempts int           `mapstructure:"worker_attempts" yaml:"worker_attempts"`
	WorkerDelay    time.Duration `mapstructure:"worker_delay" yaml:"worker_delay"`
	ProbeAttempts  int           `mapstructure:"probe_attempts" yaml:"probe_attempts"`
	ProbeDelay     time.Duration `mapstructure:"probe_delay" yaml:"probe_delay"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ExhibitionConfig describes one exhibition. Editors are file paths; their
// language comes from the extension unless front matter says otherwise.
type ExhibitionConfig struct {
	Name    string   `mapstructure:"name" yaml:"name" json:"name"`
	Title   string   `mapstructure:"title" yaml:"title,omitempty" json:"title,omitempty"`
	Editors []string `mapstructure:"editors" yaml:"editors" json:"editors"`
	// Template is an optional HTML file holding the exhibition markup,
	// including its updater elements.
	Template string `mapstructure:"template" yaml:"template,omitempty" json:"template,omitempty"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.open", false)
	v.SetDefault("server.blob_prefix", "/blob/")

	v.SetDefault("preview.update_height", true)
	v.SetDefault("preview.settle_delay", 100*time.Millisecond)
	v.SetDefault("preview.update_preview_on_init", true)
	v.SetDefault("preview.updater_selector", "[data-js-exhibition-updater]")

	v.SetDefault("compiler.command", "esbuild")
	v.SetDefault("compiler.args", []string{"--loader=ts"})
	v.SetDefault("compiler.worker_attempts", 10)
	v.SetDefault("compiler.worker_delay", 200*time.Millisecond)
	v.SetDefault("compiler.probe_attempts", 20)
	v.SetDefault("compiler.probe_delay", 250*time.Millisecond)

	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("watch.ignore", []string{".git", "node_modules"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applying defaults for every key
// that is not set.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// Override open if no-open was explicitly set via flag
	if v.IsSet("server.no-open") && v.GetBool("server.no-open") {
		config.Server.Open = false
	}

	if result := Validate(&config); result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration:\n%s", result.String())
	}

	return &config, nil
}

// Exhibition returns the exhibition with the given name.
func (c *Config) Exhibition(name string) (ExhibitionConfig, bool) {
	for _, x := range c.Exhibitions {
		if x.Name == name {
			return x, true
		}
	}
	return ExhibitionConfig{}, false
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

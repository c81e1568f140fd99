package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Builder assembles a configuration in code, for commands that take their
// exhibitions from arguments instead of a config file.
//
// Usage:
//
//	cfg, err := NewBuilder().
//	    WithExhibition("demo", "page.html", "style.css").
//	    WithCompiler("tsc").
//	    Build()
type Builder struct {
	config     *Config
	validators []ValidatorFunc
	err        error
}

// ValidatorFunc represents a configuration validation function
type ValidatorFunc func(*Config) error

// NewBuilder creates a builder holding the default configuration.
func NewBuilder() *Builder {
	v := viper.New()
	SetDefaults(v)

	cb := &Builder{config: &Config{}}
	if err := v.Unmarshal(cb.config); err != nil {
		cb.err = fmt.Errorf("decoding defaults: %w", err)
	}
	return cb
}

// FromViper starts from the configuration held by v.
func FromViper(v *viper.Viper) *Builder {
	cb := &Builder{}
	cb.config, cb.err = LoadFrom(v)
	if cb.config == nil {
		cb.config = &Config{}
	}
	return cb
}

// WithServer sets the listen address.
func (cb *Builder) WithServer(host string, port int) *Builder {
	cb.config.Server.Host = host
	cb.config.Server.Port = port
	return cb
}

// ClearExhibitions drops the exhibitions loaded so far.
func (cb *Builder) ClearExhibitions() *Builder {
	cb.config.Exhibitions = nil
	return cb
}

// WithExhibition appends an exhibition composed of the editor files.
func (cb *Builder) WithExhibition(name string, editors ...string) *Builder {
	cb.config.Exhibitions = append(cb.config.Exhibitions, ExhibitionConfig{
		Name:    name,
		Editors: editors,
	})
	return cb
}

// WithTemplate sets the markup template of a previously added exhibition.
func (cb *Builder) WithTemplate(name, path string) *Builder {
	for i := range cb.config.Exhibitions {
		if cb.config.Exhibitions[i].Name == name {
			cb.config.Exhibitions[i].Template = path
			return cb
		}
	}
	cb.err = fmt.Errorf("no exhibition named %q", name)
	return cb
}

// WithCompiler sets the typescript compiler command.
func (cb *Builder) WithCompiler(command string, args ...string) *Builder {
	cb.config.Compiler.Command = command
	cb.config.Compiler.Args = args
	return cb
}

// WithUpdateHeight toggles surface height settling.
func (cb *Builder) WithUpdateHeight(enabled bool) *Builder {
	cb.config.Preview.UpdateHeight = enabled
	return cb
}

// AddValidator adds a custom validation function
func (cb *Builder) AddValidator(validator ValidatorFunc) *Builder {
	cb.validators = append(cb.validators, validator)
	return cb
}

// Build validates and returns the configuration.
func (cb *Builder) Build() (*Config, error) {
	if cb.err != nil {
		return nil, cb.err
	}

	for _, validator := range cb.validators {
		if err := validator(cb.config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	if result := Validate(cb.config); result.HasErrors() {
		return nil, fmt.Errorf("configuration validation failed:\n%s", result.String())
	}

	return cb.config, nil
}

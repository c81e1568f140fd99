package preview

import (
	"context"
	"time"

	"github.com/conneroisu/exhibit/internal/document"
	"github.com/conneroisu/exhibit/internal/options"
)

// HeightUpdater replaces the default height settling step.
type HeightUpdater func(ctx context.Context, c *Composer) error

// Options configures a Composer.
type Options struct {
	// UpdateHeight enables resizing the surface after each load.
	UpdateHeight bool `option:"update_height"`
	// SettleDelay is how long to wait after load before measuring.
	SettleDelay time.Duration `option:"settle_delay"`

	HeightUpdater   HeightUpdater    `option:"-"`
	DocumentFactory document.Factory `option:"-"`
	// ErrorHandler receives errors from the asynchronous height step.
	ErrorHandler func(error) `option:"-"`
}

var resolver = options.NewResolver(
	options.Values{
		"update_height": true,
		"settle_delay":  100 * time.Millisecond,
	},
	map[string]options.Validator{
		"update_height": options.Bool,
		"settle_delay":  options.Duration,
	},
)

// ResolveOptions merges persisted and explicit values over the defaults.
func ResolveOptions(layers ...options.Values) (Options, error) {
	var opts Options
	if err := resolver.Resolve(&opts, layers...); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// DefaultOptions returns the compiled-in defaults.
func DefaultOptions() Options {
	opts, _ := ResolveOptions()
	return opts
}

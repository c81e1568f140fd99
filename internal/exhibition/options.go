package exhibition

import (
	"github.com/conneroisu/exhibit/internal/logging"
	"github.com/conneroisu/exhibit/internal/options"
	"github.com/conneroisu/exhibit/internal/preview"
)

const (
	// DefaultUpdaterSelector matches the elements that trigger an update.
	DefaultUpdaterSelector = "[data-js-exhibition-updater]"
	// DefaultEditorSelector matches editor elements discovered by MapWithEditors.
	DefaultEditorSelector = "[data-js-exhibition-editor]"
	// DefaultAttribute marks exhibition roots for CreateMultiple.
	DefaultAttribute = "data-js-exhibition"
	// OptionsAttribute holds the JSON options of an editor element.
	OptionsAttribute = "data-js-options"
)

// Options configures an Exhibition.
type Options struct {
	UpdatePreviewOnInit bool   `option:"update_preview_on_init"`
	UpdaterSelector     string `option:"updater_selector"`

	Preview preview.Options `option:"-"`
	Logger  logging.Logger  `option:"-"`

	// ErrorHandler receives update errors raised by triggers, which have
	// no caller to return them to.
	ErrorHandler func(error) `option:"-"`
}

var resolver = options.NewResolver(
	options.Values{
		"update_preview_on_init": true,
		"updater_selector":       DefaultUpdaterSelector,
	},
	map[string]options.Validator{
		"update_preview_on_init": options.Bool,
		"updater_selector":       options.NonEmptyString,
	},
)

// ResolveOptions merges the layers over the defaults. Preview options start
// from preview.DefaultOptions.
func ResolveOptions(layers ...options.Values) (Options, error) {
	var opts Options
	if err := resolver.Resolve(&opts, layers...); err != nil {
		return Options{}, err
	}
	opts.Preview = preview.DefaultOptions()
	return opts, nil
}

// DefaultOptions returns the compiled-in defaults.
func DefaultOptions() Options {
	opts, _ := ResolveOptions()
	return opts
}

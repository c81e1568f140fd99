package editor

import (
	"github.com/conneroisu/exhibit/internal/document"
	"github.com/conneroisu/exhibit/internal/options"
)

// Options are the resolved editor settings.
type Options struct {
	// Language selects the value type; see TypeFromLanguage.
	Language string `option:"language"`
	// Value seeds the default surface.
	Value string `option:"value"`
	// Location is the document section the content is appended to.
	Location document.Location `option:"location"`
	// Priority orders this editor's alterer; higher runs first.
	Priority int `option:"priority"`
	// TrimDefaultValue strips the common indentation of Value.
	TrimDefaultValue bool `option:"trim_default_value"`
	// TagAttributes are set on the generated element of single-tag types.
	TagAttributes map[string]string `option:"tag_attributes"`
}

var resolver = options.NewResolver(
	options.Values{
		"location":           string(document.Body),
		"priority":           0,
		"trim_default_value": true,
	},
	map[string]options.Validator{
		"language":           options.NonEmptyString,
		"value":              options.String,
		"location":           options.OneOf(string(document.Head), string(document.Body)),
		"priority":           options.Int,
		"trim_default_value": options.Bool,
		"tag_attributes":     options.StringMap,
	},
	"language",
)

// ResolveOptions merges the layers over the editor defaults. Later layers
// win, so callers pass persisted values before explicit ones.
func ResolveOptions(layers ...options.Values) (Options, error) {
	var opts Options
	if err := resolver.Resolve(&opts, layers...); err != nil {
		return Options{}, err
	}
	if _, err := TypeFromLanguage(opts.Language); err != nil {
		return Options{}, err
	}
	return opts, nil
}

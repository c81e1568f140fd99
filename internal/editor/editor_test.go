package editor

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/exhibit/internal/compiler"
	"github.com/conneroisu/exhibit/internal/document"
	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/lifecycle"
	"github.com/conneroisu/exhibit/internal/options"
)

func render(t *testing.T, e *Editor) string {
	t.Helper()
	doc := document.New()
	require.NoError(t, e.DocumentAlterer().Alter(context.Background(), doc))
	out, err := doc.Render()
	require.NoError(t, err)
	return out
}

func TestNewValidatesOptions(t *testing.T) {
	testCases := []struct {
		name     string
		explicit options.Values
		wantErr  error
	}{
		{"missing language", options.Values{}, errors.ErrMissingOption},
		{"unknown language", options.Values{"language": "cobol"}, errors.ErrUnknownLanguage},
		{"bad location", options.Values{"language": "html", "location": "footer"}, errors.ErrInvalidOption},
		{"fractional priority", options.Values{"language": "html", "priority": 1.5}, errors.ErrInvalidOption},
		{"non-bool trim", options.Values{"language": "html", "trimDefaultValue": "yes"}, errors.ErrInvalidOption},
		{"non-string attributes", options.Values{"language": "css", "tag_attributes": map[string]interface{}{"id": 1}}, errors.ErrInvalidOption},
		{"unknown key", options.Values{"language": "html", "theme": "dark"}, errors.ErrInvalidOption},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.explicit, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.True(t, errors.IsConfigError(err))
		})
	}
}

func TestNewDefaults(t *testing.T) {
	e, err := New(options.Values{"language": "html"}, nil)
	require.NoError(t, err)

	opts := e.Options()
	assert.Equal(t, document.Body, opts.Location)
	assert.Equal(t, 0, e.Priority())
	assert.True(t, opts.TrimDefaultValue)
	assert.Nil(t, opts.TagAttributes)
	assert.Equal(t, "html", e.Name())
	assert.Nil(t, e.Surface(), "construction must not create the surface")
	assert.Equal(t, lifecycle.Uninitialized, e.Status().State())
}

func TestExplicitOverridesPersisted(t *testing.T) {
	e, err := New(
		options.Values{"priority": 7},
		options.Values{"language": "css", "priority": 3, "location": "head"},
	)
	require.NoError(t, err)

	assert.Equal(t, 7, e.Priority())
	assert.Equal(t, document.Head, e.Options().Location)
}

func TestInitializeTwiceFails(t *testing.T) {
	e, err := New(options.Values{"language": "html"}, nil)
	require.NoError(t, err)

	require.NoError(t, e.Initialize(context.Background()))
	assert.True(t, e.Status().IsInitialized())

	err = e.Initialize(context.Background())
	assert.ErrorIs(t, err, errors.ErrAlreadyInitialized)
}

func TestTagAttributesRequireSingleTagType(t *testing.T) {
	e, err := New(options.Values{
		"language":       "html",
		"tag_attributes": map[string]string{"id": "x"},
	}, nil)
	require.NoError(t, err, "cross-field rules are checked by Initialize")

	err = e.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTagAttributes)
	assert.False(t, e.Status().IsInitialized())
	assert.Nil(t, e.Surface())
}

func TestTypescriptRequiresCompiler(t *testing.T) {
	e, err := New(options.Values{"language": "typescript"}, nil)
	require.NoError(t, err)

	err = e.Initialize(context.Background())
	assert.ErrorIs(t, err, errors.ErrMissingOption)
}

func TestInitializeTrimsSeedValue(t *testing.T) {
	e, err := New(options.Values{"language": "html", "value": "\n    <p>\n      x\n    </p>\n"}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	value, err := e.Surface().Value()
	require.NoError(t, err)
	assert.Equal(t, "<p>\n  x\n</p>", value)
	assert.Equal(t, "file", e.Surface().URI().Scheme)
	assert.True(t, strings.HasPrefix(e.Surface().URI().Path, "/html-"))
	assert.True(t, strings.HasSuffix(e.Surface().URI().Path, ".ts"))
}

func TestInitializeKeepsSeedWhenTrimDisabled(t *testing.T) {
	seed := "  <b>x</b>\n"
	e, err := New(options.Values{"language": "html", "value": seed, "trim_default_value": false}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	value, err := e.Surface().Value()
	require.NoError(t, err)
	assert.Equal(t, seed, value)
}

func TestDocumentAltererIsStable(t *testing.T) {
	e, err := New(options.Values{"language": "html"}, nil)
	require.NoError(t, err)
	assert.Same(t, e.DocumentAlterer(), e.DocumentAlterer())
}

func TestAlterBeforeInitializeFails(t *testing.T) {
	e, err := New(options.Values{"language": "html"}, nil)
	require.NoError(t, err)

	err = e.DocumentAlterer().Alter(context.Background(), document.New())
	assert.ErrorIs(t, err, errors.ErrNotInitialized)
}

func TestAlterInlineMarkup(t *testing.T) {
	e, err := New(options.Values{"language": "html", "value": "<p>one</p>"}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	doc := document.New()
	require.NoError(t, doc.SetInnerHTML(document.Body, "<h1>t</h1>"))
	require.NoError(t, e.DocumentAlterer().Alter(context.Background(), doc))

	body, err := doc.InnerHTML(document.Body)
	require.NoError(t, err)
	assert.Equal(t, "<h1>t</h1><p>one</p>", body)
}

func TestAlterSingleTag(t *testing.T) {
	e, err := New(options.Values{
		"language":       "css",
		"value":          "p { color: red; }",
		"location":       "head",
		"tag_attributes": map[string]interface{}{"media": "screen", "data-x": "1"},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	out := render(t, e)
	assert.Contains(t, out, `<head><style data-x="1" media="screen">p { color: red; }</style></head>`)
}

func TestAlterJavaScriptIsNotEscaped(t *testing.T) {
	e, err := New(options.Values{"language": "javascript", "value": "if (a < b && c) {}"}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	assert.Contains(t, render(t, e), "<body><script>if (a < b && c) {}</script></body>")
}

type stubWorker struct{ output string }

func (w stubWorker) SemanticDiagnostics(context.Context, string) ([]compiler.Diagnostic, error) {
	return nil, nil
}

func (w stubWorker) EmitOutput(context.Context, string) (compiler.EmitOutput, error) {
	return compiler.EmitOutput{OutputFiles: []compiler.OutputFile{{Name: "out.js", Text: w.output}}}, nil
}

type stubService struct {
	output   string
	seen     []*url.URL
	detached []string
}

func (s *stubService) Detach(uri string) { s.detached = append(s.detached, uri) }

func (s *stubService) Worker(context.Context) (compiler.WorkerGetter, error) {
	return func(_ context.Context, models ...compiler.Model) (compiler.Worker, error) {
		for _, m := range models {
			s.seen = append(s.seen, m.URI())
		}
		return stubWorker{output: s.output}, nil
	}, nil
}

func TestAlterTypescriptUsesCompiledOutput(t *testing.T) {
	svc := &stubService{output: "var x = 1;"}
	e, err := New(
		options.Values{"language": "typescript", "value": "const x: number = 1;", "tag_attributes": map[string]string{"type": "module"}},
		nil,
		WithCompiler(svc),
		WithPolicy(compiler.Policy{WorkerAttempts: 1, ProbeAttempts: 1, Sleep: func(context.Context, time.Duration) error { return nil }}),
	)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	assert.Contains(t, render(t, e), `<script type="module">var x = 1;</script>`)
	require.Len(t, svc.seen, 1)
	assert.Equal(t, e.Surface().URI(), svc.seen[0])
}

func TestDestroyDetachesCompilerModel(t *testing.T) {
	svc := &stubService{output: "var x = 1;"}
	e, err := New(
		options.Values{"language": "typescript", "value": "const x: number = 1;"},
		nil,
		WithCompiler(svc),
		WithPolicy(compiler.Policy{WorkerAttempts: 1, ProbeAttempts: 1, Sleep: func(context.Context, time.Duration) error { return nil }}),
	)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))
	uri := e.Surface().URI().String()
	render(t, e)

	require.NoError(t, e.Destroy())
	require.NoError(t, e.Destroy())
	assert.Equal(t, []string{uri}, svc.detached)
}

func TestDestroyIsIdempotent(t *testing.T) {
	e, err := New(options.Values{"language": "html", "value": "x"}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))
	surface := e.Surface()

	require.NoError(t, e.Destroy())
	require.NoError(t, e.Destroy())

	assert.True(t, e.Status().IsDestroyed())
	assert.False(t, e.Status().IsInitialized())
	assert.Nil(t, e.Surface())

	_, err = surface.Value()
	assert.ErrorIs(t, err, errors.ErrModelUnavailable)
}

func TestDestroyBeforeInitialize(t *testing.T) {
	e, err := New(options.Values{"language": "html"}, nil)
	require.NoError(t, err)

	require.NoError(t, e.Destroy())
	assert.True(t, e.Status().IsDestroyed())
	assert.Error(t, e.Initialize(context.Background()))
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widget.css")
	require.NoError(t, os.WriteFile(path, []byte("+++\npriority = 4\nlocation = \"head\"\n+++\nb { x: y }\n"), 0o644))

	e, err := NewFromFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	assert.Equal(t, "widget.css", e.Name())
	assert.Equal(t, "css", e.Options().Language)
	assert.Equal(t, 4, e.Priority())
	assert.Contains(t, render(t, e), "<head><style>b { x: y }\n</style></head>")

	fs, ok := e.Surface().(*FileSurface)
	require.True(t, ok)
	assert.Equal(t, "file", fs.URI().Scheme)

	require.NoError(t, os.WriteFile(path, []byte("i { z: w }"), 0o644))
	assert.Contains(t, render(t, e), "<style>i { z: w }</style>")
}

func TestNewFromFileExplicitWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("---\npriority: 2\n---\n<p>x</p>"), 0o644))

	e, err := NewFromFile(path, options.Values{"priority": 9})
	require.NoError(t, err)
	assert.Equal(t, 9, e.Priority())
	assert.Equal(t, "html", e.Options().Language)
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.html"), nil)
	assert.True(t, errors.IsResourceError(err))
}

package exhibition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/exhibit/internal/errors"
)

const markup = `<section id="a" data-js-exhibition>
  <button id="run" data-js-exhibition-updater>Run</button>
  <textarea data-js-exhibition-editor data-js-options='{"language":"html"}'><p>x</p></textarea>
</section>
<section data-js-exhibition="second">
  <button data-js-exhibition-updater class="big">Go</button>
  <a href="#" data-kind="link">l</a>
</section>`

func TestQuerySelectorAll(t *testing.T) {
	root, err := NewHTMLRoot("page", markup)
	require.NoError(t, err)

	testCases := []struct {
		selector string
		count    int
	}{
		{"[data-js-exhibition-updater]", 2},
		{"button", 2},
		{"#run", 1},
		{"button#run[data-js-exhibition-updater]", 1},
		{`[data-js-exhibition="second"]`, 1},
		{"[data-kind='link']", 1},
		{"[data-kind=other]", 0},
		{"textarea, a", 2},
		{"SECTION", 2},
		{"section button", 2},
		{"section > textarea", 1},
		{"#a [data-js-exhibition-updater]", 1},
		{".big", 1},
		{"button:not(.big)", 1},
		{"[data-js-exhibition] ~ section", 1},
		{`[data-js-exhibition="second"] [data-kind]`, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.selector, func(t *testing.T) {
			els, err := root.QuerySelectorAll(tc.selector)
			require.NoError(t, err)
			assert.Len(t, els, tc.count)
		})
	}
}

func TestQuerySelectorAllRejectsMalformed(t *testing.T) {
	root, err := NewHTMLRoot("page", markup)
	require.NoError(t, err)

	for _, sel := range []string{"[data-x", "#", "a,,b", "[=x]", "section >"} {
		_, err := root.QuerySelectorAll(sel)
		assert.True(t, errors.IsConfigError(err), sel)
	}
}

func TestElementAccessors(t *testing.T) {
	root, err := NewHTMLRoot("page", markup)
	require.NoError(t, err)

	els, err := root.QuerySelectorAll("textarea")
	require.NoError(t, err)
	require.Len(t, els, 1)

	el := els[0]
	opts, ok := el.Attribute(OptionsAttribute)
	assert.True(t, ok)
	assert.JSONEq(t, `{"language":"html"}`, opts)
	assert.Equal(t, "<p>x</p>", el.Text())

	id := el.ID()
	assert.Equal(t, "exhibit-el-1", id)
	assert.Equal(t, id, el.ID(), "generated ids are stable")
}

func TestClickDispatch(t *testing.T) {
	root, err := NewHTMLRoot("page", markup)
	require.NoError(t, err)

	els, err := root.QuerySelectorAll("#run")
	require.NoError(t, err)
	require.Len(t, els, 1)

	var first, second int
	unbindFirst := els[0].OnClick(func(context.Context) { first++ })
	els[0].OnClick(func(context.Context) { second++ })

	assert.True(t, root.Click(context.Background(), "run"))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)

	unbindFirst()
	unbindFirst()
	assert.True(t, root.Click(context.Background(), "run"))
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	assert.False(t, root.Click(context.Background(), "missing"))
}

func TestScopeSharesDispatcher(t *testing.T) {
	root, err := NewHTMLRoot("page", markup)
	require.NoError(t, err)

	scopes, err := root.Scope("[data-js-exhibition]")
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	assert.Equal(t, "a", scopes[0].ID())
	assert.NotEmpty(t, scopes[1].ID())

	buttons, err := scopes[1].QuerySelectorAll("[data-js-exhibition-updater]")
	require.NoError(t, err)
	require.Len(t, buttons, 1)

	clicked := false
	buttons[0].OnClick(func(context.Context) { clicked = true })
	assert.True(t, root.Click(context.Background(), buttons[0].ID()))
	assert.True(t, clicked)
}

func TestRender(t *testing.T) {
	root, err := NewHTMLRoot("page", `<div id="x"><button data-js-exhibition-updater>Run</button></div>`)
	require.NoError(t, err)

	els, err := root.QuerySelectorAll("button")
	require.NoError(t, err)
	els[0].OnClick(func(context.Context) {})

	out, err := root.Render()
	require.NoError(t, err)
	assert.Equal(t, `<div id="x"><button data-js-exhibition-updater="" id="exhibit-el-1">Run</button></div>`, out)

	scopes, err := root.Scope("#x")
	require.NoError(t, err)
	scoped, err := scopes[0].Render()
	require.NoError(t, err)
	assert.Equal(t, out, scoped)
}

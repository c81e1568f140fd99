package server

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pageSection is one exhibition on the host page.
type pageSection struct {
	Name   string
	Title  string
	Markup string
	Source string
	Height int
}

// displayTitle returns title, or a title cased form of name when title is
// empty.
func displayTitle(name, title string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	words := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return cases.Title(language.English).String(words)
}

// hostPage renders every exhibition with its markup and preview frame.
func hostPage(title string, sections []pageSection) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, pageHead, templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<h1>%s</h1>\n", templ.EscapeString(title)); err != nil {
			return err
		}
		if len(sections) == 0 {
			if _, err := io.WriteString(w, "<p class=\"empty\">No exhibitions configured.</p>\n"); err != nil {
				return err
			}
		}
		for _, s := range sections {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := section(s).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, pageTail, clientScript)
		return err
	})
}

func section(s pageSection) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		name := templ.EscapeString(s.Name)
		style := ""
		if s.Height > 0 {
			style = fmt.Sprintf(` style="height:%dpx"`, s.Height)
		}
		_, err := fmt.Fprintf(w, `<section class="exhibition" data-exhibition="%s">
<h2>%s</h2>
<div class="exhibition-root">%s</div>
<iframe class="exhibition-preview" title="%s preview" src="%s"%s></iframe>
<pre class="exhibition-error" hidden></pre>
</section>
`, name, templ.EscapeString(s.Title), s.Markup, name, templ.EscapeString(s.Source), style)
		return err
	})
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
</head>
<body>
`

const pageTail = `<script>%s</script>
</body>
</html>
`

const pageStyle = `
body { font-family: system-ui, -apple-system, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
h1 { color: #333; border-bottom: 2px solid #007acc; padding-bottom: 10px; }
.exhibition { background: white; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); padding: 16px; margin-bottom: 24px; }
.exhibition-preview { width: 100%; min-height: 120px; border: 1px solid #ddd; border-radius: 6px; }
.exhibition-error { background: #fff0f0; color: #b00020; padding: 8px; white-space: pre-wrap; }
textarea[data-js-exhibition-editor] { width: 100%; min-height: 6em; font-family: monospace; }
`

const clientScript = `
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");

  function send(msg) {
    if (ws.readyState === 1) ws.send(JSON.stringify(msg));
  }
  function section(name) {
    return document.querySelector('section[data-exhibition="' + name + '"]');
  }
  function measure(frame) {
    var doc = frame.contentDocument, height = 0;
    if (doc && doc.documentElement) {
      var style = getComputedStyle(doc.documentElement);
      height = doc.documentElement.offsetHeight +
        (parseInt(style.marginTop, 10) || 0) + (parseInt(style.marginBottom, 10) || 0);
    }
    return height;
  }
  function report(frame) {
    send({ type: "loaded", exhibition: frame.parentNode.dataset.exhibition,
           src: frame.getAttribute("src") });
  }

  document.querySelectorAll("section[data-exhibition] iframe").forEach(function (frame) {
    frame.addEventListener("load", function () { report(frame); });
  });
  ws.addEventListener("open", function () {
    document.querySelectorAll("section[data-exhibition] iframe").forEach(function (frame) {
      if (frame.getAttribute("src")) report(frame);
    });
  });

  document.addEventListener("click", function (e) {
    var s = e.target.closest("section[data-exhibition]");
    var el = e.target.closest("[id]");
    if (!s || !el || !s.contains(el)) return;
    send({ type: "click", exhibition: s.dataset.exhibition, id: el.id });
  });
  document.addEventListener("input", function (e) {
    var el = e.target;
    if (!el.hasAttribute || !el.hasAttribute("data-js-exhibition-editor")) return;
    var s = el.closest("section[data-exhibition]");
    if (!s) return;
    send({ type: "edit", exhibition: s.dataset.exhibition, editor: el.id, value: el.value });
  });

  ws.addEventListener("message", function (e) {
    var msg = JSON.parse(e.data), s = section(msg.exhibition);
    if (!s) return;
    var frame = s.querySelector("iframe"), errorBox = s.querySelector(".exhibition-error");
    if (msg.type === "source") {
      errorBox.hidden = true;
      frame.setAttribute("src", msg.content);
    } else if (msg.type === "height") {
      frame.style.height = msg.height + "px";
    } else if (msg.type === "measure") {
      if (msg.content && frame.getAttribute("src") !== msg.content) return;
      send({ type: "measured", exhibition: msg.exhibition,
             src: frame.getAttribute("src"), height: measure(frame) });
    } else if (msg.type === "error") {
      errorBox.textContent = msg.content;
      errorBox.hidden = false;
    }
  });
})();
`

// Package render turns paper content, which the server stores as GitHub
// flavoured markdown, into HTML or styled terminal text.
package render

import (
	"bytes"
	"errors"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// MermaidLanguage is the fence language rendered as a diagram placeholder
// instead of code.
const MermaidLanguage = "mermaid"

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
				renderer.WithNodeRenderers(util.Prioritized(&fenceRenderer{}, 100)),
			),
		)
	})
	return markdown
}

// HTML renders markdown source to an HTML fragment. Raw HTML in the source
// is passed through. Fenced mermaid blocks become <pre class="mermaid">
// elements for a client-side diagram renderer; other fences are
// highlighted with inline styles.
func HTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := getMarkdown().Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fenceRenderer replaces goldmark's fenced code block output.
type fenceRenderer struct{}

func (r *fenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFence)
}

func (r *fenceRenderer) renderFence(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	fence := node.(*ast.FencedCodeBlock)
	language := strings.ToLower(string(fence.Language(source)))
	code := fenceText(fence, source)

	switch {
	case language == MermaidLanguage:
		_, _ = w.WriteString(`<pre class="mermaid">`)
		_, _ = w.Write(util.EscapeHTML([]byte(code)))
		_, _ = w.WriteString("</pre>\n")
	case language != "" && highlightHTML(w, code, language) == nil:
	default:
		_, _ = w.WriteString("<pre><code")
		if language != "" {
			_, _ = w.WriteString(` class="language-`)
			_, _ = w.Write(util.EscapeHTML([]byte(language)))
			_, _ = w.WriteString(`"`)
		}
		_, _ = w.WriteString(">")
		_, _ = w.Write(util.EscapeHTML([]byte(code)))
		_, _ = w.WriteString("</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}

func fenceText(fence *ast.FencedCodeBlock, source []byte) string {
	var code strings.Builder
	lines := fence.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		code.Write(segment.Value(source))
	}
	return code.String()
}

var errUnknownLanguage = errors.New("unknown language")

var htmlFormatter = chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))

// highlightHTML writes code as highlighted HTML. It fails for languages
// chroma does not know, leaving w untouched.
func highlightHTML(w util.BufWriter, code, language string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		return errUnknownLanguage
	}
	tokens, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := htmlFormatter.Format(&buf, styles.Get("github"), tokens); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

package docs

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/qiangli/lm/llm/adapter"
)

// Placeholder in a page replaced by the capability matrix.
const Placeholder = "{{capabilities}}"

//go:embed pages/*.md
var pages embed.FS

// Pages returns the bundled documentation sources.
func Pages() fs.FS {
	sub, err := fs.Sub(pages, "pages")
	if err != nil {
		panic(err)
	}
	return sub
}

var shell = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// BuildSite converts every markdown file of src into HTML under outDir and
// returns the written paths. Links to local .md files point to the
// generated .html pages.
func BuildSite(src fs.FS, rows []adapter.Row, outDir string) ([]string, error) {
	md := newMarkdown()
	table := markdown(rows)

	var written []string
	err := fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".md" {
			return nil
		}

		data, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		data = bytes.ReplaceAll(data, []byte(Placeholder), []byte(table))

		page, err := renderPage(md, data)
		if err != nil {
			return errors.Wrapf(err, "render %s", p)
		}

		out := filepath.Join(outDir, filepath.FromSlash(strings.TrimSuffix(p, ".md")+".html"))
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(out, page, 0644); err != nil {
			return err
		}
		written = append(written, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(linkRewriter{}, 100)),
		),
	)
}

func renderPage(md goldmark.Markdown, source []byte) ([]byte, error) {
	doc := md.Parser().Parse(text.NewReader(source))

	var body bytes.Buffer
	if err := md.Renderer().Render(&body, source, doc); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	err := shell.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: Title(doc, source),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Title returns the text of the first level one heading.
func Title(doc ast.Node, source []byte) string {
	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if heading, ok := n.(*ast.Heading); ok && entering && heading.Level == 1 {
			title = string(heading.Text(source))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

type linkRewriter struct{}

func (linkRewriter) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if link, ok := n.(*ast.Link); ok && entering {
			link.Destination = []byte(htmlLink(string(link.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

func htmlLink(dest string) string {
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") {
		return dest
	}
	p, fragment, found := strings.Cut(dest, "#")
	if !strings.HasSuffix(p, ".md") {
		return dest
	}
	p = strings.TrimSuffix(p, ".md") + ".html"
	if found {
		p += "#" + fragment
	}
	return p
}

package render

import "fmt"

// PageRenderer turns a Markdown body into a finished page.
type PageRenderer struct {
	md  *MarkdownRenderer
	tpl Template
}

func NewPageRenderer(md *MarkdownRenderer, tpl Template) *PageRenderer {
	return &PageRenderer{md: md, tpl: tpl}
}

// Page is a finished HTML document plus what the Markdown pass learned
// about it.
type Page struct {
	HTML     []byte
	Markdown MarkdownResult
	Injected bool
}

func (r *PageRenderer) Template() Template {
	return r.tpl
}

func (r *PageRenderer) Render(body []byte, footer string, inj *Injection) (Page, error) {
	res, err := r.md.Render(body)
	if err != nil {
		return Page{}, fmt.Errorf("markdown render: %w", err)
	}
	html := string(res.HTML)
	_, injected := inj.Apply(html)
	return Page{
		HTML:     []byte(Assemble(r.tpl, html, footer, inj)),
		Markdown: res,
		Injected: injected,
	}, nil
}

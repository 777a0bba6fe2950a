package build

import (
	"fmt"

	"sitegen/internal/domain/site"
	"sitegen/internal/ingest"
	"sitegen/internal/logfields"
	"sitegen/internal/render"
)

// buildHome renders the home page. The posts listing goes in front of the
// configured marker when the page contains it; the directory index is
// appended after the body when home.append_index is set. The home page is
// always published regardless of its metadata.
func (b *Builder) buildHome(route site.Route, posts, dirIndex string) error {
	src := b.Cfg.Home.Source
	raw, err := readSource(src)
	if err != nil {
		return err
	}
	_, body := ingest.ParseMetadata(raw)

	var footer string
	if b.Cfg.Home.AppendIndex {
		footer = dirIndex
	}
	inj := &render.Injection{Marker: b.Cfg.Home.Marker, HTML: posts}

	page, err := b.pages.Render(body, footer, inj)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if !page.Injected && b.Cfg.Home.Marker != "" {
		b.Logger.Debug("home marker not found, posts listing omitted",
			logfields.Stage("home"), logfields.Path(src))
	}
	return b.out.write(route.OutPath, page.HTML)
}

// buildIndexPage writes the directory index as a standalone page.
func (b *Builder) buildIndexPage(route site.Route, dirIndex string) error {
	html := render.Assemble(b.pages.Template(), dirIndex, "", nil)
	return b.out.write(route.OutPath, []byte(html))
}

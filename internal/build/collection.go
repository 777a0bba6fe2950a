package build

import (
	"context"
	"fmt"
	"os"

	"sitegen/internal/domain/config"
	"sitegen/internal/domain/content"
	"sitegen/internal/domain/site"
	"sitegen/internal/ingest"
	"sitegen/internal/logfields"
)

// BuildCollection renders every visible document below coll.Source to
// <output_root>/<coll.Output>/<slug>/index.html and returns the entries in
// walk order. Hidden documents produce neither a file nor an entry.
func (b *Builder) BuildCollection(ctx context.Context, coll config.CollectionConfig) ([]content.Entry, error) {
	if b.out == nil {
		b.reset()
	}
	if err := b.ensureRenderer(); err != nil {
		return nil, err
	}

	files, err := ingest.DiscoverSource(coll.Source)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", coll.Source, err)
	}
	log := b.Logger.With(logfields.Collection(coll.Name))
	log.Debug("discovered sources", logfields.Count(len(files)))

	var entries []content.Entry
	for _, sf := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		route := site.PostRoute(coll.Output, sf.Slug)
		entry, visible, err := b.buildEntry(coll, sf, route)
		if err != nil {
			if !b.Cfg.Build.IsolateErrors {
				return nil, fmt.Errorf("%s: %w", sf.Path, err)
			}
			log.Error("entry failed", logfields.Path(sf.Path), logfields.Error(err))
			b.res.Failures = append(b.res.Failures, Failure{Collection: coll.Name, Path: sf.Path, Err: err})
			b.out.keep(route.OutPath)
			continue
		}
		if !visible {
			log.Debug("skipped hidden document", logfields.Path(sf.Path))
			continue
		}
		log.Debug("rendered", logfields.Slug(entry.Slug), logfields.Path(entry.OutPath))
		entries = append(entries, entry)
	}
	log.Info("collection built", logfields.Count(len(entries)))
	return entries, nil
}

func (b *Builder) buildEntry(coll config.CollectionConfig, sf ingest.SourceFile, route site.Route) (content.Entry, bool, error) {
	doc, err := ingest.LoadDocument(sf)
	if err != nil {
		return content.Entry{}, false, err
	}
	if !ingest.IsVisible(doc.Meta) {
		return content.Entry{}, false, nil
	}

	// duplicate slugs: the first visible document in walk order wins
	if b.out.has(route.OutPath) {
		b.warn(sf.Path, fmt.Sprintf("duplicate slug %q: %s already written, skipped", doc.Slug, route.OutPath))
		return content.Entry{}, false, nil
	}

	page, err := b.pages.Render(doc.Body, "", nil)
	if err != nil {
		return content.Entry{}, false, err
	}
	if err := b.out.write(route.OutPath, page.HTML); err != nil {
		return content.Entry{}, false, err
	}

	title := doc.Meta.Get(content.KeyTitle)
	if title == "" {
		title = page.Markdown.FirstTitle()
	}
	if title == "" {
		title = ingest.TitleFromSlug(doc.Slug)
	}
	date := doc.Meta.Get(content.KeyDate)
	published := ingest.ParseTime(date)
	if date != "" && published.IsZero() {
		b.warn(sf.Path, fmt.Sprintf("unrecognized date %q, ordering by raw text", date))
	}

	return content.Entry{
		Collection: coll.Name,
		Title:      title,
		Date:       date,
		Published:  published,
		Slug:       doc.Slug,
		URL:        route.URL(),
		SourcePath: sf.Path,
		OutPath:    route.File(b.Cfg.Build.OutputRoot),
	}, true, nil
}

// readSource reads a required input; a missing file is fatal for the run.
func readSource(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	return raw, nil
}

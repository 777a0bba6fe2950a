package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"sitegen/internal/domain/config"
	"sitegen/internal/domain/content"
	"sitegen/internal/domain/site"
	"sitegen/internal/index"
	"sitegen/internal/listing"
	"sitegen/internal/logfields"
	"sitegen/internal/render"
)

type Builder struct {
	Cfg    config.Config
	Logger *slog.Logger
	// Now stamps the manifest. Defaults to time.Now.
	Now func() time.Time

	pages *render.PageRenderer
	out   *outputSet
	res   *Result
}

type Warning struct {
	Path string
	Msg  string
}

// Failure is a document that could not be rendered while
// build.isolate_errors was on.
type Failure struct {
	Collection string
	Path       string
	Err        error
}

type Result struct {
	Entries  []content.Entry
	Written  int
	Changed  int
	Pruned   []string
	Warnings []Warning
	Failures []Failure
}

func New(cfg config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{Cfg: cfg, Logger: logger, Now: time.Now}
}

// Run executes the whole pipeline once: every collection, stale output
// cleanup, the directory index page, then the home page. The first
// unrecoverable error aborts the run; whatever it already wrote is still
// recorded in the manifest so a later build can prune it.
func (b *Builder) Run(ctx context.Context) (_ *Result, err error) {
	start := time.Now()
	b.reset()
	if err := b.ensureRenderer(); err != nil {
		return nil, err
	}

	root := b.Cfg.Build.OutputRoot
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output root: %w", err)
	}

	var (
		st   *index.Store
		prev map[string]string
	)
	recorded := false
	if p := b.Cfg.Build.ManifestPath; p != "" {
		st, err = index.Open(index.OpenOptions{Path: p})
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		defer st.Close()
		if prev, err = st.Outputs(); err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		if sum, err := st.Summary(); err == nil && !sum.BuiltAt.IsZero() {
			b.Logger.Debug("previous build",
				slog.Time("built_at", sum.BuiltAt), logfields.Count(sum.Outputs))
		}
		defer func() {
			if err == nil || recorded {
				return
			}
			if rerr := st.Replace(b.out.partial(), b.Now()); rerr != nil {
				b.Logger.Warn("record partial manifest", logfields.Error(rerr))
			}
		}()
	}
	b.out.previous = prev

	var listed []content.Entry
	for _, coll := range b.Cfg.Collections {
		entries, err := b.BuildCollection(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("build collection %s: %w", coll.Name, err)
		}
		b.res.Entries = append(b.res.Entries, entries...)
		if coll.Listing {
			listed = append(listed, entries...)
		}
	}

	homeRoute := site.PageRoute(site.RouteHome, b.Cfg.Home.Output)
	indexRoute := site.PageRoute(site.RouteIndex, b.Cfg.Index.File)

	// stale post directories must be gone before the directory index
	// looks at the output root
	pruned, err := b.out.prune(homeRoute.OutPath, indexRoute.OutPath)
	if err != nil {
		return nil, fmt.Errorf("prune stale outputs: %w", err)
	}
	b.res.Pruned = pruned
	for _, p := range pruned {
		b.Logger.Info("removed stale output", logfields.Stage("prune"), logfields.Path(p))
	}

	dirIndex, err := listing.DirectoryIndex(b.Cfg.IndexDir(), b.Cfg.IndexURL(), b.Cfg.ReservedNames())
	if err != nil {
		return nil, fmt.Errorf("build directory index: %w", err)
	}
	if err := b.buildIndexPage(indexRoute, dirIndex); err != nil {
		return nil, fmt.Errorf("build index page: %w", err)
	}
	b.Logger.Debug("index page written", logfields.Stage("index"), logfields.Path(indexRoute.OutPath))

	posts, err := listing.Posts(listed)
	if err != nil {
		return nil, fmt.Errorf("build posts listing: %w", err)
	}
	if err := b.buildHome(homeRoute, posts, dirIndex); err != nil {
		return nil, fmt.Errorf("build home: %w", err)
	}

	if st != nil {
		recorded = true
		if err := st.Replace(b.out.hashes(), b.Now()); err != nil {
			return nil, fmt.Errorf("record manifest: %w", err)
		}
	}

	b.res.Written = b.out.written
	b.res.Changed = b.out.changed
	b.Logger.Info("build complete",
		logfields.Count(len(b.res.Entries)),
		slog.Int("written", b.res.Written),
		slog.Int("changed", b.res.Changed),
		slog.Int("pruned", len(b.res.Pruned)),
		slog.Int("failures", len(b.res.Failures)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000),
	)
	return b.res, nil
}

func (b *Builder) reset() {
	b.out = newOutputSet(b.Cfg.Build.OutputRoot)
	b.res = &Result{}
}

func (b *Builder) ensureRenderer() error {
	if b.pages != nil {
		return nil
	}
	tpl, err := render.LoadTemplate(b.Cfg.Build.TemplateDir, b.Cfg.Site)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	md := render.NewMarkdownRenderer(render.MarkdownOptions{
		CodeStyle: b.Cfg.Markdown.CodeStyle,
		HardWraps: b.Cfg.Markdown.HardWraps,
	})
	b.pages = render.NewPageRenderer(md, tpl)
	return nil
}

func (b *Builder) warn(path, msg string) {
	b.res.Warnings = append(b.res.Warnings, Warning{Path: path, Msg: msg})
	b.Logger.Warn(msg, logfields.Path(path))
}

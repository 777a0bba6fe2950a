package build

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"sitegen/internal/domain/config"
	"sitegen/internal/index"
)

type fixture struct {
	dir string
	cfg config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Build.OutputRoot = filepath.Join(dir, "public")
	cfg.Build.ManifestPath = filepath.Join(dir, ".sitegen", "manifest.db")
	cfg.Home.Source = filepath.Join(dir, "index.md")
	cfg.Markdown.CodeStyle = ""
	cfg.Collections = []config.CollectionConfig{
		{Name: "braindump", Source: filepath.Join(dir, "braindump"), Listing: true},
	}

	f := &fixture{dir: dir, cfg: cfg}
	f.write(t, "index.md", "Welcome\n\n<!-- posts -->\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "braindump"), 0o755))
	return f
}

func (f *fixture) write(t *testing.T, rel, data string) {
	t.Helper()
	p := filepath.Join(f.dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.cfg.Build.OutputRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(f.cfg.Build.OutputRoot, filepath.FromSlash(rel)))
	return err == nil
}

func (f *fixture) run(t *testing.T) (*Result, error) {
	t.Helper()
	b := New(f.cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return b.Run(context.Background())
}

func (f *fixture) mustRun(t *testing.T) *Result {
	t.Helper()
	res, err := f.run(t)
	require.NoError(t, err)
	return res
}

// snapshot maps every file below the output root to its contents.
func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := make(map[string]string)
	root := f.cfg.Build.OutputRoot
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestRun_PublicPost(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/hello.md", "Public: True\n\n# Hello\nWorld\n")

	res := f.mustRun(t)
	require.Len(t, res.Entries, 1)
	require.Equal(t, "Hello", res.Entries[0].Title)
	require.Equal(t, "/hello", res.Entries[0].URL)

	page := f.read(t, "hello/index.html")
	require.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	require.Contains(t, page, "<h1>Hello</h1>\n<p>World</p>\n")
	require.True(t, strings.HasSuffix(page, "</html>\n"))

	require.Contains(t, f.read(t, "archive/index.html"), `<a href="/hello">hello</a>`)
	require.Equal(t, 3, res.Written)
	require.Equal(t, 3, res.Changed)
}

func TestRun_HiddenDocumentsAreNotWritten(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/secret.md", "Public: True\nPrivate: True\n\n# Secret\n")
	f.write(t, "braindump/draft.md", "# Draft\n")
	f.write(t, "braindump/header-only.md", "Title: Draft\n\nbody\n")

	res := f.mustRun(t)
	require.Empty(t, res.Entries)
	require.False(t, f.exists("secret/index.html"))
	require.False(t, f.exists("draft/index.html"))
	require.False(t, f.exists("header-only"))
	require.NotContains(t, f.read(t, "archive/index.html"), "secret")
	require.NotContains(t, f.read(t, "index.html"), "Secret")
}

func TestRun_HomeListsPostsBeforeMarker(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/old.md", "Title: Old one\nDate: 2024/01/02 10:00:00\nPublic: True\n\nold\n")
	f.write(t, "braindump/new.md", "Title: New one\nDate: 2024/03/01 09:00:00\nPublic: True\n\nnew\n")

	f.mustRun(t)
	home := f.read(t, "index.html")

	list := strings.Index(home, `<ul class="posts">`)
	marker := strings.Index(home, "<!-- posts -->")
	require.Positive(t, list)
	require.Less(t, list, marker)
	require.Less(t, strings.Index(home, "New one"), strings.Index(home, "Old one"))
	require.Contains(t, home, `<span class="date">2024/03/01</span> <a href="/new">New one</a>`)
	require.Contains(t, home, "<p>Welcome</p>")
}

func TestRun_HomeWithoutMarker(t *testing.T) {
	f := newFixture(t)
	f.write(t, "index.md", "Public: True\n\nJust text\n")
	f.write(t, "braindump/a.md", "Public: True\n\n# A\n")

	f.mustRun(t)
	home := f.read(t, "index.html")
	require.Contains(t, home, "<p>Just text</p>")
	require.NotContains(t, home, `class="posts"`)
	require.NotContains(t, home, "Public: True")
}

func TestRun_HomeAppendIndex(t *testing.T) {
	f := newFixture(t)
	f.cfg.Home.AppendIndex = true
	f.write(t, "braindump/a.md", "Public: True\n\n# A\n")

	f.mustRun(t)
	home := f.read(t, "index.html")
	require.Less(t, strings.Index(home, "<p>Welcome</p>"), strings.Index(home, `<ul class="directory">`))
	require.Less(t, strings.Index(home, `<ul class="directory">`), strings.Index(home, "</body>"))
}

func TestRun_MissingHomeIsFatal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.cfg.Home.Source))

	_, err := f.run(t)
	require.ErrorContains(t, err, "build home")
}

func TestRun_MissingCollectionIsFatal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(filepath.Join(f.dir, "braindump")))

	_, err := f.run(t)
	require.ErrorContains(t, err, "build collection braindump")
}

func TestRun_SecondRunIsByteIdentical(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/a.md", "Title: A\nDate: 2024/01/02 10:00:00\nPublic: True\n\n# A\n")
	f.write(t, "braindump/b.md", "Title: B\nDate: 2024/01/03 10:00:00\nPublic: True\n\n# B\n")

	f.mustRun(t)
	first := f.snapshot(t)

	res := f.mustRun(t)
	require.Equal(t, first, f.snapshot(t))
	require.Zero(t, res.Changed)
	require.Empty(t, res.Pruned)
}

func TestRun_PrunesPostThatWentPrivate(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/hello.md", "Public: True\n\n# Hello\n")
	f.write(t, "braindump/stay.md", "Public: True\n\n# Stay\n")
	f.mustRun(t)
	require.True(t, f.exists("hello/index.html"))

	f.write(t, "braindump/hello.md", "Private: True\n\n# Hello\n")
	res := f.mustRun(t)

	require.Equal(t, []string{"hello/index.html"}, res.Pruned)
	require.False(t, f.exists("hello"))
	require.True(t, f.exists("stay/index.html"))
	require.NotContains(t, f.read(t, "archive/index.html"), "/hello")

	st, err := index.Open(index.OpenOptions{Path: f.cfg.Build.ManifestPath})
	require.NoError(t, err)
	defer st.Close()
	outs, err := st.Outputs()
	require.NoError(t, err)
	require.NotContains(t, outs, "hello/index.html")
	require.Contains(t, outs, "stay/index.html")
}

func TestRun_WithoutManifestNothingIsPruned(t *testing.T) {
	f := newFixture(t)
	f.cfg.Build.ManifestPath = ""
	f.write(t, "braindump/hello.md", "Public: True\n\n# Hello\n")
	f.mustRun(t)

	f.write(t, "braindump/hello.md", "Private: True\n\n# Hello\n")
	res := f.mustRun(t)
	require.Empty(t, res.Pruned)
	require.True(t, f.exists("hello/index.html"))
}

func TestRun_DuplicateSlugFirstWins(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/a/post.md", "Public: True\n\n# First\n")
	f.write(t, "braindump/b/post.md", "Public: True\n\n# Second\n")

	res := f.mustRun(t)
	require.Len(t, res.Entries, 1)
	require.Contains(t, f.read(t, "post/index.html"), "First")
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0].Msg, "duplicate slug")
}

func TestRun_HiddenDuplicateDoesNotShadow(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/a/post.md", "Private: True\n\n# Hidden\n")
	f.write(t, "braindump/b/post.md", "Public: True\n\n# Shown\n")

	res := f.mustRun(t)
	require.Len(t, res.Entries, 1)
	require.Contains(t, f.read(t, "post/index.html"), "Shown")
	require.Empty(t, res.Warnings)
}

func TestRun_TitleFallbacks(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/from-meta.md", "Title: Meta Title\nPublic: True\n\n# Heading\n")
	f.write(t, "braindump/from-heading.md", "Public: True\n\n# The Heading\n")
	f.write(t, "braindump/from-slug.md", "Public: True\n\nno heading\n")

	res := f.mustRun(t)
	titles := map[string]string{}
	for _, e := range res.Entries {
		titles[e.Slug] = e.Title
	}
	require.Equal(t, map[string]string{
		"from-meta":    "Meta Title",
		"from-heading": "The Heading",
		"from-slug":    "From Slug",
	}, titles)
}

func TestRun_UnparseableDateWarns(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/a.md", "Date: whenever\nPublic: True\n\n# A\n")

	res := f.mustRun(t)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0].Msg, "unrecognized date")
	require.Contains(t, f.read(t, "index.html"), `<span class="date">whenever</span>`)
}

func TestRun_CollectionOutputAndListing(t *testing.T) {
	f := newFixture(t)
	f.cfg.Collections = append(f.cfg.Collections, config.CollectionConfig{
		Name: "notes", Source: filepath.Join(f.dir, "notes"), Output: "notes",
	})
	f.write(t, "braindump/a.md", "Public: True\n\n# A\n")
	f.write(t, "notes/n.md", "Public: True\n\n# N\n")

	res := f.mustRun(t)
	require.Len(t, res.Entries, 2)
	require.True(t, f.exists("notes/n/index.html"))

	home := f.read(t, "index.html")
	require.Contains(t, home, `href="/a"`)
	require.NotContains(t, home, `href="/notes/n"`)
	require.Contains(t, f.read(t, "archive/index.html"), `href="/notes"`)
}

func TestRun_BrokenEntryAbortsByDefault(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/good.md", "Public: True\n\n# Good\n")
	require.NoError(t, os.Symlink(filepath.Join(f.dir, "missing"), filepath.Join(f.dir, "braindump", "broken.md")))

	_, err := f.run(t)
	require.ErrorContains(t, err, "broken.md")
}

func TestRun_IsolateErrorsKeepsGoing(t *testing.T) {
	f := newFixture(t)
	f.cfg.Build.IsolateErrors = true
	f.write(t, "braindump/good.md", "Public: True\n\n# Good\n")
	require.NoError(t, os.Symlink(filepath.Join(f.dir, "missing"), filepath.Join(f.dir, "braindump", "broken.md")))

	res := f.mustRun(t)
	require.Len(t, res.Failures, 1)
	require.Equal(t, "braindump", res.Failures[0].Collection)
	require.True(t, f.exists("good/index.html"))
}

func TestRun_IsolatedFailureKeepsPreviousOutput(t *testing.T) {
	f := newFixture(t)
	f.cfg.Build.IsolateErrors = true
	f.write(t, "braindump/post.md", "Public: True\n\n# Post\n")
	f.mustRun(t)

	src := filepath.Join(f.dir, "braindump", "post.md")
	require.NoError(t, os.Remove(src))
	require.NoError(t, os.Symlink(filepath.Join(f.dir, "missing"), src))

	res := f.mustRun(t)
	require.Len(t, res.Failures, 1)
	require.Empty(t, res.Pruned)
	require.True(t, f.exists("post/index.html"))
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/a.md", "Public: True\n\n# A\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(f.cfg, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildCollection_Standalone(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/a.md", "Public: True\nDate: 2024/01/02\n\n# A\n")
	f.write(t, "braindump/b.md", "# hidden\n")

	b := New(f.cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	entries, err := b.BuildCollection(context.Background(), f.cfg.Collections[0])
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a", entries[0].Slug)
	require.Equal(t, "2024/01/02", entries[0].Date)
	require.False(t, entries[0].Published.IsZero())
	require.Equal(t, filepath.Join(f.cfg.Build.OutputRoot, "a", "index.html"), entries[0].OutPath)
	require.True(t, f.exists("a/index.html"))
}

// indexLinks returns the hrefs of the directory index page in order.
func (f *fixture) indexLinks(t *testing.T) []string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(f.read(t, "archive/index.html")))
	require.NoError(t, err)

	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" && a.Val != "/" {
					out = append(out, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func TestRun_DirectoryIndexLinksIntoIndexDir(t *testing.T) {
	f := newFixture(t)
	f.cfg.Site.Logo = ""
	f.cfg.Collections[0].Output = "posts"
	f.cfg.Index.Dir = "posts"
	f.write(t, "braindump/hello.md", "Public: True\n\n# Hello\n")

	res := f.mustRun(t)
	require.Equal(t, "/posts/hello", res.Entries[0].URL)
	require.True(t, f.exists("posts/hello/index.html"))
	require.Equal(t, []string{"/posts/hello"}, f.indexLinks(t))
}

func TestRun_NewPostAddsOneIndexEntryInSortedPosition(t *testing.T) {
	f := newFixture(t)
	f.cfg.Site.Logo = ""
	f.write(t, "braindump/a.md", "Public: True\n\n# A\n")
	f.write(t, "braindump/z.md", "Public: True\n\n# Z\n")

	f.mustRun(t)
	require.Equal(t, []string{"/a", "/z"}, f.indexLinks(t))

	f.write(t, "braindump/m.md", "Public: True\n\n# M\n")
	f.mustRun(t)
	require.Equal(t, []string{"/a", "/m", "/z"}, f.indexLinks(t))
}

func TestRun_AbortedBuildOutputsArePrunedLater(t *testing.T) {
	f := newFixture(t)
	f.write(t, "braindump/a.md", "Public: True\n\n# A\n")
	f.mustRun(t)

	// b is written, then c aborts the run
	f.write(t, "braindump/b.md", "Public: True\n\n# B\n")
	broken := filepath.Join(f.dir, "braindump", "c.md")
	require.NoError(t, os.Symlink(filepath.Join(f.dir, "missing"), broken))
	_, err := f.run(t)
	require.Error(t, err)
	require.True(t, f.exists("b/index.html"))

	st, err := index.Open(index.OpenOptions{Path: f.cfg.Build.ManifestPath})
	require.NoError(t, err)
	outs, err := st.Outputs()
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Contains(t, outs, "a/index.html")
	require.Contains(t, outs, "b/index.html")
	require.Contains(t, outs, "index.html")

	require.NoError(t, os.Remove(broken))
	f.write(t, "braindump/b.md", "Private: True\n\n# B\n")
	res := f.mustRun(t)
	require.Equal(t, []string{"b/index.html"}, res.Pruned)
	require.False(t, f.exists("b"))
	require.True(t, f.exists("a/index.html"))
}

func TestOutputSet_Partial(t *testing.T) {
	o := newOutputSet(t.TempDir())
	o.previous = map[string]string{"old/index.html": "h1", "gone/index.html": "h2", "same/index.html": "h3"}
	require.NoError(t, o.write("same/index.html", []byte("new")))
	o.removed["gone/index.html"] = struct{}{}

	got := o.partial()
	require.Equal(t, "h1", got["old/index.html"])
	require.NotContains(t, got, "gone/index.html")
	require.NotEqual(t, "h3", got["same/index.html"])
	require.Len(t, got, 2)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	domainerr "sitegen/internal/domain/errors"
)

// DefaultPath is read when no --config flag is given. JSON is valid YAML,
// so the same loader handles site.json and site.yaml.
const DefaultPath = "site.json"

type Config struct {
	Site        SiteConfig         `yaml:"site" json:"site"`
	Build       BuildConfig        `yaml:"build" json:"build"`
	Home        HomeConfig         `yaml:"home" json:"home"`
	Index       IndexConfig        `yaml:"index" json:"index"`
	Markdown    MarkdownConfig     `yaml:"markdown" json:"markdown"`
	Collections []CollectionConfig `yaml:"collections" json:"collections"`
}

// SiteConfig feeds the shared head/foot template.
type SiteConfig struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Keywords    string `yaml:"keywords" json:"keywords"`
	Author      string `yaml:"author" json:"author"`
	Language    string `yaml:"language" json:"language"`
	Stylesheet  string `yaml:"stylesheet" json:"stylesheet"`
	Favicon     string `yaml:"favicon" json:"favicon"`
	Logo        string `yaml:"logo" json:"logo"`
}

type BuildConfig struct {
	OutputRoot    string `yaml:"output_root" json:"output_root"`
	ManifestPath  string `yaml:"manifest_path" json:"manifest_path"`
	TemplateDir   string `yaml:"template_dir" json:"template_dir"`
	IsolateErrors bool   `yaml:"isolate_errors" json:"isolate_errors"`
}

type HomeConfig struct {
	Source      string `yaml:"source" json:"source"`
	Output      string `yaml:"output" json:"output"`
	Marker      string `yaml:"marker" json:"marker"`
	AppendIndex bool   `yaml:"append_index" json:"append_index"`
}

type IndexConfig struct {
	File     string   `yaml:"file" json:"file"`
	Dir      string   `yaml:"dir" json:"dir"`
	Reserved []string `yaml:"reserved" json:"reserved"`
}

type MarkdownConfig struct {
	CodeStyle string `yaml:"code_style" json:"code_style"`
	HardWraps bool   `yaml:"hard_wraps" json:"hard_wraps"`
}

// CollectionConfig describes one directory of posts. Output is relative to
// build.output_root; an empty Output writes slugs directly under the root.
type CollectionConfig struct {
	Name    string `yaml:"name" json:"name"`
	Source  string `yaml:"source" json:"source"`
	Output  string `yaml:"output" json:"output"`
	Listing bool   `yaml:"listing" json:"listing"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:       "Personal Website",
			Description: "Personal Website",
			Language:    "en",
			Stylesheet:  "/static/style.css",
			Favicon:     "/static/favicon.ico",
			Logo:        "/static/logo.png",
		},
		Build: BuildConfig{
			OutputRoot:   "public",
			ManifestPath: ".sitegen/manifest.db",
		},
		Home: HomeConfig{
			Source:      "index.md",
			Output:      "index.html",
			Marker:      "<!-- posts -->",
			AppendIndex: false,
		},
		Index: IndexConfig{
			File:     "archive/index.html",
			Reserved: []string{"static"},
		},
		Markdown: MarkdownConfig{
			CodeStyle: "monokai",
		},
		Collections: []CollectionConfig{
			{Name: "braindump", Source: "braindump", Listing: true},
		},
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}
	if strings.TrimSpace(c.Build.OutputRoot) == "" {
		ve.Add("build.output_root", "must not be empty")
	}
	if strings.TrimSpace(c.Home.Source) == "" {
		ve.Add("home.source", "must not be empty")
	}
	if strings.TrimSpace(c.Home.Output) == "" {
		ve.Add("home.output", "must not be empty")
	} else if !isLocalPath(c.Home.Output) {
		ve.Add("home.output", "must be a relative path inside build.output_root")
	}
	if strings.TrimSpace(c.Index.File) == "" {
		ve.Add("index.file", "must not be empty")
	} else if !isLocalPath(c.Index.File) {
		ve.Add("index.file", "must be a relative path inside build.output_root")
	}
	if d := strings.TrimSpace(c.Index.Dir); d != "" && !isLocalPath(d) {
		ve.Add("index.dir", "must be a relative path inside build.output_root")
	}

	if len(c.Collections) == 0 {
		ve.Add("collections", "at least one collection is required")
	}
	seen := make(map[string]struct{}, len(c.Collections))
	for i, coll := range c.Collections {
		name := strings.TrimSpace(coll.Name)
		if name == "" {
			ve.Add(domainerr.FieldPath("collections", i, "name"), "must not be empty")
		} else if _, dup := seen[name]; dup {
			ve.Addf(domainerr.FieldPath("collections", i, "name"), "duplicate collection %q", name)
		} else {
			seen[name] = struct{}{}
		}
		if strings.TrimSpace(coll.Source) == "" {
			ve.Add(domainerr.FieldPath("collections", i, "source"), "must not be empty")
		}
		if out := strings.TrimSpace(coll.Output); out != "" && !isLocalPath(out) {
			ve.Add(domainerr.FieldPath("collections", i, "output"), "must be a relative path inside build.output_root")
		}
	}

	return ve.Err()
}

// Collection returns the collection with the given name.
func (c Config) Collection(name string) (CollectionConfig, bool) {
	for _, coll := range c.Collections {
		if coll.Name == name {
			return coll, true
		}
	}
	return CollectionConfig{}, false
}

// IndexDir is the output directory whose subdirectories make up the
// directory index.
func (c Config) IndexDir() string {
	return filepath.Join(c.Build.OutputRoot, filepath.FromSlash(c.Index.Dir))
}

// IndexURL is the site path the directory index links are relative to,
// always with a trailing slash: "/" by default, "/posts/" for index.dir
// "posts".
func (c Config) IndexURL() string {
	d := path.Clean("/" + filepath.ToSlash(strings.TrimSpace(c.Index.Dir)))
	if d == "/" {
		return d
	}
	return d + "/"
}

// ReservedNames are never listed in the directory index: the configured
// names plus the first path segment of the index page itself.
func (c Config) ReservedNames() []string {
	out := append([]string(nil), c.Index.Reserved...)
	first, _, found := strings.Cut(path.Clean(filepath.ToSlash(c.Index.File)), "/")
	if found && first != "" {
		out = append(out, first)
	}
	return out
}

func isLocalPath(p string) bool {
	return !filepath.IsAbs(p) && filepath.IsLocal(filepath.FromSlash(p))
}

func Load(p string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}

	// fields present in the file override the defaults; the rest stay
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", p, err)
	}

	if err := cfg.Validate(); err != nil {
		var ve domainerr.ValidationError
		if errors.As(err, &ve) {
			ve.Source = p
			return cfg, ve
		}
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(p string) (Config, error) {
	cfg, err := Load(p)
	if err != nil && os.IsNotExist(err) {
		cfg = Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

package site

import (
	"path"
	"path/filepath"
	"strings"
)

type RouteKind string

const (
	RouteHome  RouteKind = "home"
	RouteIndex RouteKind = "index"
	RoutePost  RouteKind = "post"
)

// Route maps a page to its place in the output tree. OutPath is relative to
// the output root and uses forward slashes.
type Route struct {
	Kind    RouteKind
	Slug    string
	OutPath string
}

// PostRoute places a slug at <collectionOut>/<slug>/index.html.
func PostRoute(collectionOut, slug string) Route {
	return Route{
		Kind:    RoutePost,
		Slug:    slug,
		OutPath: path.Join(cleanRel(collectionOut), slug, "index.html"),
	}
}

func PageRoute(kind RouteKind, rel string) Route {
	return Route{Kind: kind, OutPath: cleanRel(rel)}
}

// URL is the site-absolute link for the route. Directory pages drop their
// index.html so "hello/index.html" links as "/hello".
func (r Route) URL() string {
	p := r.OutPath
	if path.Base(p) == "index.html" {
		p = path.Dir(p)
	}
	if p == "." || p == "" {
		return "/"
	}
	return "/" + p
}

// File resolves the route against the output root.
func (r Route) File(root string) string {
	return filepath.Join(root, filepath.FromSlash(r.OutPath))
}

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	if r.Slug != "" {
		parts = append(parts, "slug="+r.Slug)
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}

func cleanRel(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return ""
	}
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "." {
		return ""
	}
	return p
}

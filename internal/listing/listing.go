package listing

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"

	"sitegen/internal/domain/content"
)

var fragments = template.Must(template.New("listing").Parse(`
{{- define "directory" -}}
<ul class="directory">
{{- range .Names}}
<li><a href="{{$.Base}}{{.}}">{{.}}</a></li>
{{- end}}
</ul>
{{end -}}
{{- define "posts" -}}
<ul class="posts">
{{- range .}}
<li><span class="date">{{.DisplayDate}}</span> <a href="{{.URL}}">{{.Title}}</a></li>
{{- end}}
</ul>
{{end -}}
`))

// DirectoryNames returns the immediate subdirectories of dir, sorted by
// name, minus reserved names and dot-directories.
func DirectoryNames(dir string, reserved []string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(reserved))
	for _, r := range reserved {
		skip[r] = struct{}{}
	}

	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DirectoryIndex renders the directory listing of dir as a <ul> fragment
// linking each subdirectory at baseURL+name. baseURL is the site path dir is
// served from, e.g. "/" or "/posts/".
func DirectoryIndex(dir, baseURL string, reserved []string) (string, error) {
	names, err := DirectoryNames(dir, reserved)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return execute("directory", struct {
		Base  string
		Names []string
	}{baseURL, names})
}

// Posts renders entries newest first. The slice is sorted in place.
func Posts(entries []content.Entry) (string, error) {
	SortEntries(entries)
	return execute("posts", entries)
}

// SortEntries orders entries newest first. Entries with a parsed date come
// first, ordered by time; entries whose date did not parse follow, ordered by
// their raw Date text descending. Slug, then collection, break ties, so the
// result does not depend on the input order.
func SortEntries(entries []content.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return compareEntries(entries[i], entries[j]) < 0
	})
}

// compareEntries is negative when a sorts before b.
func compareEntries(a, b content.Entry) int {
	aParsed, bParsed := !a.Published.IsZero(), !b.Published.IsZero()
	switch {
	case aParsed && !bParsed:
		return -1
	case !aParsed && bParsed:
		return 1
	case aParsed:
		if c := b.Published.Compare(a.Published); c != 0 {
			return c
		}
	default:
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
	}
	if c := strings.Compare(a.Slug, b.Slug); c != 0 {
		return c
	}
	return strings.Compare(a.Collection, b.Collection)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s listing: %w", name, err)
	}
	return buf.String(), nil
}

package ingest

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitegen/internal/domain/content"
)

var headerLine = regexp.MustCompile(`^(\w+):\s*(.+?)\s*$`)

// ParseMetadata splits raw into its header and Markdown body. Two header
// styles are understood: leading "Key: Value" lines ended by a blank line,
// and a "---" delimited YAML block. It never fails; input without a
// recognizable header comes back as body with empty metadata.
func ParseMetadata(raw []byte) (content.Metadata, []byte) {
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))

	if bytes.HasPrefix(norm, []byte("---\n")) {
		if meta, body, ok := parseFrontMatter(norm); ok {
			return meta, body
		}
		return nil, norm
	}
	return parseHeaderLines(norm)
}

func parseHeaderLines(src []byte) (content.Metadata, []byte) {
	var meta content.Metadata
	rest := src
	for len(rest) > 0 {
		line, tail, found := bytes.Cut(rest, []byte("\n"))
		if !found {
			// a header needs its terminating newline
			break
		}
		m := headerLine.FindSubmatch(line)
		if m == nil {
			break
		}
		meta = append(meta, content.Field{Key: string(m[1]), Value: string(m[2])})
		rest = tail
	}
	if len(meta) == 0 {
		return nil, src
	}
	if line, tail, found := bytes.Cut(rest, []byte("\n")); found && len(bytes.TrimSpace(line)) == 0 {
		rest = tail
	}
	return meta, rest
}

func parseFrontMatter(src []byte) (content.Metadata, []byte, bool) {
	var fm map[string]any
	body, err := frontmatter.MustParse(bytes.NewReader(src), &fm)
	if err != nil {
		return nil, nil, false
	}
	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	meta := make(content.Metadata, 0, len(keys))
	for _, k := range keys {
		meta = append(meta, content.Field{Key: k, Value: stringify(fm[k])})
	}
	return meta, bytes.TrimLeft(body, "\n"), true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.DateTime)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// LoadDocument reads and splits one source file.
func LoadDocument(sf SourceFile) (content.Document, error) {
	raw, err := os.ReadFile(sf.Path)
	if err != nil {
		return content.Document{}, err
	}
	slug := sf.Slug
	if slug == "" {
		slug = SlugFromPath(sf.Path)
	}
	meta, body := ParseMetadata(raw)
	return content.Document{
		Path: sf.Path,
		Slug: slug,
		Meta: meta,
		Body: body,
	}, nil
}

var dateLayouts = []string{
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	time.RFC3339,
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseTime returns the zero time when s matches none of the known layouts.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// TitleFromSlug turns "my-first_post" into "My First Post".
func TitleFromSlug(slug string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}

// Slugify lowercases s and collapses everything that is not a letter or a
// digit into single dashes.
func Slugify(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var out []rune
	lastDash := false

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]

		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, unicode.ToLower(r))
			lastDash = false
			continue
		}
		if !lastDash && len(out) > 0 {
			out = append(out, '-')
			lastDash = true
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}

package content

import (
	"strings"
	"time"
)

// Recognized metadata keys.
const (
	KeyTitle   = "Title"
	KeyAuthor  = "Author"
	KeyDate    = "Date"
	KeyPublic  = "Public"
	KeyPrivate = "Private"
)

// Field is a single `Key: Value` header line. Keys are kept verbatim.
type Field struct {
	Key   string
	Value string
}

// Metadata is the ordered header of a source document. Lookups ignore key
// case so "title" and "Title" resolve to the same field.
type Metadata []Field

func (m Metadata) Lookup(key string) (string, bool) {
	for _, f := range m {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

func (m Metadata) Get(key string) string {
	v, _ := m.Lookup(key)
	return strings.TrimSpace(v)
}

func (m Metadata) Has(key string) bool {
	_, ok := m.Lookup(key)
	return ok
}

// Document is one Markdown source file split into header and body.
type Document struct {
	Path string
	Slug string
	Meta Metadata
	Body []byte
}

// Entry is what a collection build hands to the listing pages. It only
// lives for the duration of one build.
type Entry struct {
	Collection string
	Title      string
	Date       string
	Published  time.Time
	Slug       string
	URL        string
	SourcePath string
	OutPath    string
}

// DisplayDate is the date part of the raw Date value ("2024/01/02 10:00:00"
// becomes "2024/01/02").
func (e Entry) DisplayDate() string {
	d := strings.TrimSpace(e.Date)
	if i := strings.IndexByte(d, ' '); i >= 0 {
		return d[:i]
	}
	return d
}

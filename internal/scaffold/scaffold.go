package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sitegen/internal/domain/content"
	"sitegen/internal/ingest"
)

// DateLayout is the format new posts are stamped with. It sorts correctly
// as a plain string.
const DateLayout = "2006/01/02 15:04:05"

var ErrExists = errors.New("post already exists")

// Header renders the metadata block for a new post, blank line included.
func Header(title, author string, date time.Time, private bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", content.KeyTitle, title)
	if author != "" {
		fmt.Fprintf(&b, "%s: %s\n", content.KeyAuthor, author)
	}
	fmt.Fprintf(&b, "%s: %s\n", content.KeyDate, date.Format(DateLayout))
	if private {
		fmt.Fprintf(&b, "%s: True\n", content.KeyPrivate)
	} else {
		fmt.Fprintf(&b, "%s: True\n", content.KeyPublic)
	}
	b.WriteString("\n")
	return b.String()
}

// NewPost writes <dir>/<slug>.md with a fresh header and a title heading.
// It refuses to overwrite an existing file.
func NewPost(dir, title, author string, now time.Time, private bool) (string, error) {
	title = strings.TrimSpace(title)
	slug := ingest.Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("cannot derive a file name from title %q", title)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	p := filepath.Join(dir, slug+".md")
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return p, fmt.Errorf("%s: %w", p, ErrExists)
		}
		return "", err
	}
	defer f.Close()

	body := Header(title, author, now, private) + "# " + title + "\n"
	if _, err := f.WriteString(body); err != nil {
		return "", err
	}
	return p, f.Close()
}

package ingest

import "sitegen/internal/domain/content"

// IsVisible implements the publishing policy: a document is rendered and
// listed only when it carries a Public key. Private always wins, and a
// document with neither key stays hidden.
func IsVisible(meta content.Metadata) bool {
	if meta.Has(content.KeyPrivate) {
		return false
	}
	return meta.Has(content.KeyPublic)
}

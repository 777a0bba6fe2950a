package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	domainbuild "sitegen/internal/domain/build"
)

var errDuplicateOutput = errors.New("output already written in this build")

// outputSet tracks every file written during one build, keyed by its
// slash-separated path relative to the output root.
type outputSet struct {
	root     string
	current  map[string]string
	previous map[string]string
	removed  map[string]struct{}
	written  int
	changed  int
}

func newOutputSet(root string) *outputSet {
	return &outputSet{
		root:    root,
		current: make(map[string]string),
		removed: make(map[string]struct{}),
	}
}

func (o *outputSet) has(rel string) bool {
	_, ok := o.current[rel]
	return ok
}

// write replaces the file at rel. Files are always rewritten in full.
func (o *outputSet) write(rel string, data []byte) error {
	if o.has(rel) {
		return fmt.Errorf("%s: %w", rel, errDuplicateOutput)
	}
	full := filepath.Join(o.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return err
	}

	fp := domainbuild.NewFingerprint(rel, data)
	if fp.Changed(o.previous[rel]) {
		o.changed++
	}
	o.current[rel] = fp.Hash
	o.written++
	return nil
}

// keep carries a previous output forward untouched, e.g. when re-rendering
// its source failed under isolate_errors.
func (o *outputSet) keep(rel string) {
	if h, ok := o.previous[rel]; ok && !o.has(rel) {
		o.current[rel] = h
	}
}

func (o *outputSet) hashes() map[string]string {
	out := make(map[string]string, len(o.current))
	for k, v := range o.current {
		out[k] = v
	}
	return out
}

// partial is what an aborted build leaves on disk: the previous outputs it
// did not get to, minus the ones it already pruned, plus everything it wrote.
func (o *outputSet) partial() map[string]string {
	out := make(map[string]string, len(o.previous)+len(o.current))
	for k, v := range o.previous {
		if _, gone := o.removed[k]; !gone {
			out[k] = v
		}
	}
	for k, v := range o.current {
		out[k] = v
	}
	return out
}

// prune deletes files recorded by the previous build that were neither
// written nor kept in this one, plus any directories left empty. Paths in
// pending will still be written later in the build and are left alone.
func (o *outputSet) prune(pending ...string) ([]string, error) {
	skip := make(map[string]struct{}, len(pending))
	for _, p := range pending {
		skip[p] = struct{}{}
	}

	var stale []string
	for rel := range o.previous {
		if o.has(rel) {
			continue
		}
		if _, ok := skip[rel]; ok {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			continue
		}
		stale = append(stale, rel)
	}
	sort.Strings(stale)

	for _, rel := range stale {
		full := filepath.Join(o.root, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		o.removed[rel] = struct{}{}
		o.removeEmptyParents(rel)
	}
	return stale, nil
}

func (o *outputSet) removeEmptyParents(rel string) {
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		// os.Remove refuses non-empty directories, which ends the climb
		if err := os.Remove(filepath.Join(o.root, filepath.FromSlash(dir))); err != nil {
			return
		}
	}
}

package includer

import (
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Category of a fragment file, derived once from the filename prefix and
// immutable for the lifetime of the record.
type Category int

const (
	CategoryPage Category = iota
	CategoryInsert
	CategoryWrap
)

func (c Category) String() string {
	switch c {
	case CategoryPage:
		return "page"
	case CategoryInsert:
		return "insert"
	case CategoryWrap:
		return "wrap"
	default:
		// this should never happen
		panic("unsupported fragment category")
	}
}

// Fragment is a registered fragment document. Content is already
// clip-processed, every consumer sees the clipped form only.
type Fragment struct {
	Path     string
	Category Category
	Content  string
	LoadedAt time.Time
}

// Registry stores known fragment documents keyed by normalized path,
// partitioned by category. One registry belongs to exactly one build
// invocation and is not safe for concurrent use.
type Registry struct {
	opts Options

	pages   map[string]*Fragment
	inserts map[string]*Fragment
	wraps   map[string]*Fragment
}

func NewRegistry(opts Options) *Registry {
	r := &Registry{opts: opts.withDefaults()}
	r.Reset()
	return r
}

// Register classifies content by filename prefix, applies clip processing
// once, and inserts or overwrites the record. Clip problems are reported as
// conditions, the record is still stored (unclipped).
func (r *Registry) Register(p, content string) (*Fragment, Conditions) {
	p = NormalizePath(p)

	clipped, conds := clipContent(content, r.opts)
	f := &Fragment{
		Path:     p,
		Category: r.Categorize(p),
		Content:  clipped,
		LoadedAt: time.Now(),
	}
	r.partition(f.Category)[p] = f
	return f, conds.stamp(p)
}

// Lookup returns the record for the normalized path, if present.
func (r *Registry) Lookup(p string) (*Fragment, bool) {
	p = NormalizePath(p)
	f, ok := r.partition(r.Categorize(p))[p]
	return f, ok
}

// Reset clears all three category partitions. Must be invoked between
// independent builds to avoid stale cross-build state.
func (r *Registry) Reset() {
	r.pages = make(map[string]*Fragment)
	r.inserts = make(map[string]*Fragment)
	r.wraps = make(map[string]*Fragment)
}

// Len reports the total number of registered fragments.
func (r *Registry) Len() int {
	return len(r.pages) + len(r.inserts) + len(r.wraps)
}

// Categorize derives the category from the first rune of the base filename.
func (r *Registry) Categorize(p string) Category {
	base := path.Base(NormalizePath(p))
	first, _ := utf8.DecodeRuneInString(base)
	switch first {
	case r.opts.Markers.Insert:
		return CategoryInsert
	case r.opts.Markers.Wrap:
		return CategoryWrap
	default:
		return CategoryPage
	}
}

func (r *Registry) partition(c Category) map[string]*Fragment {
	switch c {
	case CategoryInsert:
		return r.inserts
	case CategoryWrap:
		return r.wraps
	default:
		return r.pages
	}
}

// NormalizePath converts a path to its canonical slash-separated cleaned
// relative form used as the registry key.
func NormalizePath(p string) string {
	return path.Clean(strings.TrimPrefix(filepath.ToSlash(p), "/"))
}

// resolveRelative resolves a directive target against the host document's
// directory. A leading slash makes the target relative to the source root.
func resolveRelative(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return NormalizePath(target)
	}
	return NormalizePath(path.Join(baseDir, target))
}

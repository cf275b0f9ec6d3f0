// Package includer implements the directive resolution engine: scanning
// comment directives out of document text, resolving them against a fragment
// registry, a data tree and a capability table, and rewriting the text until
// it reaches a directive-free form.
package includer

import (
	"context"

	"go.uber.org/zap"
)

// Kind identifies a recognized directive tag.
type Kind int

const (
	KindInsert Kind = iota
	KindWrap
	KindEndWrap
	KindMiddle
	KindData
	KindJSONInsert
	KindClipBefore
	KindClipAfter
	KindClipBetween
	KindEndClipBetween
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindWrap:
		return "wrap"
	case KindEndWrap:
		return "end-wrap"
	case KindMiddle:
		return "middle"
	case KindData:
		return "data"
	case KindJSONInsert:
		return "json-insert"
	case KindClipBefore:
		return "clip-before"
	case KindClipAfter:
		return "clip-after"
	case KindClipBetween:
		return "clip-between"
	case KindEndClipBetween:
		return "end-clip-between"
	default:
		// this should never happen
		panic("unsupported directive kind")
	}
}

// Span is a half-open byte range [Start, End) in the host text covering the
// whole tag, comment delimiters included.
type Span struct {
	Start, End int
}

// Directive is a parsed occurrence of a tag. For paired kinds Match is the
// index of the matching opener/closer in the slice returned by Scan, -1 when
// the pair could not be matched.
type Directive struct {
	Kind  Kind
	Attrs map[string]string
	Span  Span
	Match int
}

// Attribute names which are not configurable.
const (
	attrFile    = "file" // SSI compatibility spelling of the file path attribute
	attrExpr    = "expr"
	attrDefault = "default"
	attrOutput  = "output"
)

// Markers are filename prefix characters used to categorize fragment files.
type Markers struct {
	Insert rune
	Wrap   rune
}

// Loader fetches raw fragment content by normalized path on registry miss.
type Loader func(ctx context.Context, path string) (string, error)

// Options is the configuration bundle for one engine instance.
type Options struct {
	// TagKeyword is an alternate keyword for the insert directive. The
	// default spelling and the SSI "include" form are always accepted.
	TagKeyword        string
	FilePathAttribute string
	JSONPathAttribute string
	// IterationLimit caps resolution passes per document, 0 means unbounded.
	IterationLimit int
	// StrictCycles makes cyclic includes fail the document up front instead
	// of exhausting the iteration limit.
	StrictCycles bool
	Markers      Markers
	Loader       Loader
	Capabilities Table
	Log          *zap.Logger
}

const (
	DefaultTagKeyword        = "insert"
	DefaultFilePathAttribute = "path"
	DefaultJSONPathAttribute = "jsonPath"
	DefaultInsertMarker      = '-'
	DefaultWrapMarker        = '_'
)

func (o Options) withDefaults() Options {
	if o.TagKeyword == "" {
		o.TagKeyword = DefaultTagKeyword
	}
	if o.FilePathAttribute == "" {
		o.FilePathAttribute = DefaultFilePathAttribute
	}
	if o.JSONPathAttribute == "" {
		o.JSONPathAttribute = DefaultJSONPathAttribute
	}
	if o.Markers.Insert == 0 {
		o.Markers.Insert = DefaultInsertMarker
	}
	if o.Markers.Wrap == 0 {
		o.Markers.Wrap = DefaultWrapMarker
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

// filePath returns the fragment path of an insert or wrap directive, checking
// the configured attribute first and the SSI spelling second.
func (o Options) filePath(d Directive) string {
	if p := d.Attrs[o.FilePathAttribute]; p != "" {
		return p
	}
	return d.Attrs[attrFile]
}

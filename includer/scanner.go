package includer

import (
	"fmt"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

// tagMarker starts a directive inside a comment: <!--#insert path="x" -->
const tagMarker = '#'

// Scan tokenizes directive tags out of raw text, left-to-right, with exact
// source spans. Paired directives are matched to the nearest unmatched
// closing tag (innermost pair first). Malformed tags are reported as
// InvalidDirective conditions and skipped, scanning continues.
func Scan(text string, opts Options) ([]Directive, Conditions) {
	opts = opts.withDefaults()

	var (
		dirs  []Directive
		conds Conditions
	)

	l := html.NewLexer(parse.NewInputString(text))
	offset := 0
	for {
		tt, data := l.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.CommentToken {
			span := Span{Start: offset, End: offset + len(data)}
			if d, cond, ok := parseTag(string(data), span, opts); ok {
				dirs = append(dirs, d)
			} else if cond != nil {
				conds = append(conds, *cond)
			}
		}
		offset += len(data)
	}

	matchPairs(dirs, KindWrap, KindEndWrap)
	matchPairs(dirs, KindClipBetween, KindEndClipBetween)
	return dirs, conds
}

// parseTag parses one comment token. The third return is false when the
// comment is not a directive at all or is malformed; in the latter case a
// condition is returned as well.
func parseTag(comment string, span Span, opts Options) (Directive, *Condition, bool) {
	var d Directive

	interior, ok := commentInterior(comment)
	if !ok || len(interior) == 0 || interior[0] != tagMarker {
		return d, nil, false
	}
	interior = interior[1:]

	i := 0
	for i < len(interior) && isKeywordRune(interior[i]) {
		i++
	}
	kw := interior[:i]
	kind, known := kindOf(kw, opts)
	if !known {
		// an ordinary comment that happens to start with the marker
		return d, nil, false
	}

	attrs, err := parseAttributes(interior[i:])
	if err != nil {
		return d, &Condition{
			Kind:    InvalidDirective,
			Span:    span,
			Message: fmt.Sprintf("malformed %s tag: %v", kw, err),
		}, false
	}

	d = Directive{Kind: kind, Attrs: attrs, Span: span, Match: -1}
	if msg := validateRequired(d, opts); msg != "" {
		return d, &Condition{Kind: InvalidDirective, Span: span, Message: msg}, false
	}
	return d, nil, true
}

func commentInterior(comment string) (string, bool) {
	if !strings.HasPrefix(comment, "<!--") || !strings.HasSuffix(comment, "-->") {
		return "", false
	}
	return strings.TrimSpace(comment[4 : len(comment)-3]), true
}

func isKeywordRune(b byte) bool {
	return b == '-' || b == '_' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func kindOf(keyword string, opts Options) (Kind, bool) {
	switch keyword {
	case opts.TagKeyword, DefaultTagKeyword, "include":
		return KindInsert, true
	case "wrap":
		return KindWrap, true
	case "end-wrap":
		return KindEndWrap, true
	case "middle":
		return KindMiddle, true
	case "data":
		return KindData, true
	case "json-insert":
		return KindJSONInsert, true
	case "clip-before":
		return KindClipBefore, true
	case "clip-after":
		return KindClipAfter, true
	case "clip-between":
		return KindClipBetween, true
	case "end-clip-between":
		return KindEndClipBetween, true
	}
	return 0, false
}

// parseAttributes parses zero or more name="value" pairs. Single quotes are
// accepted as well, values have no escape sequences.
func parseAttributes(s string) (map[string]string, error) {
	attrs := make(map[string]string)
	i := 0
	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
			i++
		}
		if i >= len(s) {
			return attrs, nil
		}

		start := i
		for i < len(s) && isKeywordRune(s[i]) {
			i++
		}
		if i == start {
			return nil, fmt.Errorf("unexpected character %q", s[i])
		}
		name := s[start:i]

		if i >= len(s) || s[i] != '=' {
			return nil, fmt.Errorf("attribute %q is missing a value", name)
		}
		i++
		if i >= len(s) || (s[i] != '"' && s[i] != '\'') {
			return nil, fmt.Errorf("attribute %q value is not quoted", name)
		}
		quote := s[i]
		i++
		end := strings.IndexByte(s[i:], quote)
		if end < 0 {
			return nil, fmt.Errorf("attribute %q value is not terminated", name)
		}
		attrs[name] = s[i : i+end]
		i += end + 1
	}
}

func validateRequired(d Directive, opts Options) string {
	switch d.Kind {
	case KindInsert:
		if opts.filePath(d) == "" && d.Attrs[attrExpr] == "" {
			return fmt.Sprintf("insert tag requires a %q or %q attribute", opts.FilePathAttribute, attrExpr)
		}
	case KindWrap:
		if opts.filePath(d) == "" {
			return fmt.Sprintf("wrap tag requires a %q attribute", opts.FilePathAttribute)
		}
	case KindData, KindJSONInsert:
		if d.Attrs[opts.JSONPathAttribute] == "" && d.Attrs[attrExpr] == "" {
			return fmt.Sprintf("%s tag requires a %q or %q attribute", d.Kind, opts.JSONPathAttribute, attrExpr)
		}
	}
	return ""
}

// matchPairs links openers to their nearest unmatched closer of the same
// kind. Nested pairs of the same kind match innermost first.
func matchPairs(dirs []Directive, opener, closer Kind) {
	var stack []int
	for i := range dirs {
		switch dirs[i].Kind {
		case opener:
			stack = append(stack, i)
		case closer:
			if len(stack) == 0 {
				continue
			}
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			dirs[j].Match = i
			dirs[i].Match = j
		}
	}
}

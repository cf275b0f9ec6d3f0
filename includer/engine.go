package includer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
)

// Engine drives directive resolution for one build invocation. It owns the
// fragment registry exclusively - no two concurrent builds may share an
// engine, and Registry().Reset() (or a fresh engine) separates independent
// builds.
type Engine struct {
	opts Options
	reg  *Registry
	log  *zap.Logger
}

func New(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts: opts,
		reg:  NewRegistry(opts),
		log:  opts.Log.Named("includer"),
	}
}

// Registry exposes the engine's fragment registry, mostly so a build driver
// can reset it between builds.
func (e *Engine) Registry() *Registry {
	return e.reg
}

// Result is the outcome of resolving one document: the fully (or partially,
// on iteration limit) resolved text plus every non-fatal condition met on
// the way.
type Result struct {
	Text       string
	Conditions Conditions
	// Passes is the number of substitution passes spent, recursive fragment
	// resolution included. A directive-free document costs zero.
	Passes int
}

// Resolve rewrites the document text until no directives remain or the
// iteration limit is exhausted. One document's transitive resolution runs to
// completion before the caller moves to the next; the data tree and
// capability table are never mutated. The only returned error is context
// cancellation.
func (e *Engine) Resolve(ctx context.Context, doc string, text string, data cty.Value) (Result, error) {
	if data == cty.NilVal {
		data = cty.EmptyObjectVal
	}
	doc = NormalizePath(doc)

	r := &resolution{eng: e, doc: doc, data: data}

	if e.opts.StrictCycles {
		if cycle := r.detectCycle(ctx, doc, text); len(cycle) > 0 {
			r.record(Condition{
				Kind:    CyclicInclude,
				Message: fmt.Sprintf("fragment dependency cycle: %s", strings.Join(cycle, " -> ")),
			})
			return Result{Text: text, Conditions: r.conds, Passes: r.passes}, nil
		}
	}

	out, err := r.resolveText(ctx, text, path.Dir(doc))
	if err != nil {
		return Result{Text: text, Conditions: r.conds, Passes: r.passes}, err
	}

	e.log.Debug("Document resolved",
		zap.String("doc", doc), zap.Int("passes", r.passes), zap.Int("conditions", len(r.conds)))
	return Result{Text: out, Conditions: r.conds, Passes: r.passes}, nil
}

// resolution is the state of one document's transitive resolution. The pass
// counter is shared across recursive fragment resolution so the iteration
// limit bounds cyclic includes as well.
type resolution struct {
	eng    *Engine
	doc    string
	data   cty.Value
	passes int
	conds  Conditions
}

func (r *resolution) record(c Condition) {
	if c.Doc == "" {
		c.Doc = r.doc
	}
	// spans drift between passes, so duplicates are folded on message
	for _, have := range r.conds {
		if have.Kind == c.Kind && have.Doc == c.Doc && have.Message == c.Message {
			return
		}
	}
	r.conds = append(r.conds, c)
}

func (r *resolution) merge(cs Conditions) {
	for _, c := range cs {
		r.record(c)
	}
}

// resolveText runs the fixed-point loop over one text: scan, dispatch
// left-to-right, splice, rescan the output. Nested inserts and wraps can
// themselves contain further directives, so a single pass is never enough.
func (r *resolution) resolveText(ctx context.Context, text, baseDir string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return text, err
		}

		dirs, scanConds := Scan(text, r.eng.opts)
		r.merge(scanConds)
		if len(dirs) == 0 {
			return text, nil
		}
		if limit := r.eng.opts.IterationLimit; limit > 0 && r.passes >= limit {
			r.record(Condition{
				Kind:    UnresolvedDirective,
				Message: fmt.Sprintf("iteration limit (%d) reached with directives still present", limit),
			})
			return text, nil
		}
		r.passes++

		next, err := r.substitutePass(ctx, text, dirs, baseDir)
		if err != nil {
			return text, err
		}
		text = next
	}
}

// substitutePass performs one left-to-right substitution sweep. Directives
// whose span lies inside an already consumed span (a wrap body) wait for the
// next pass.
func (r *resolution) substitutePass(ctx context.Context, text string, dirs []Directive, baseDir string) (string, error) {
	var sb strings.Builder
	cursor := 0

	for i := range dirs {
		d := dirs[i]
		if d.Span.Start < cursor {
			continue
		}

		var (
			rep      string
			consumed = d.Span.End
			err      error
		)

		switch d.Kind {
		case KindInsert:
			rep, err = r.insert(ctx, d, baseDir)

		case KindWrap:
			if d.Match < 0 {
				r.record(Condition{
					Kind:    InvalidDirective,
					Span:    d.Span,
					Message: "wrap without matching end-wrap",
				})
				break
			}
			end := dirs[d.Match]
			rep, err = r.wrap(ctx, d, text[d.Span.End:end.Span.Start], baseDir)
			consumed = end.Span.End

		case KindEndWrap:
			// matched closers are consumed with their opener, this one is an orphan
			r.record(Condition{
				Kind:    InvalidDirective,
				Span:    d.Span,
				Message: "end-wrap without preceding wrap",
			})

		case KindMiddle:
			r.record(Condition{
				Kind:    InvalidDirective,
				Span:    d.Span,
				Message: "middle marker outside a wrap fragment",
			})

		case KindData, KindJSONInsert:
			rep, err = r.dataValue(ctx, d)

		case KindClipBefore, KindClipAfter, KindClipBetween, KindEndClipBetween:
			// clip markers act at registration time only, in resolved text
			// they are dropped
		}
		if err != nil {
			return text, err
		}

		sb.WriteString(text[cursor:d.Span.Start])
		sb.WriteString(rep)
		cursor = consumed
	}
	sb.WriteString(text[cursor:])
	return sb.String(), nil
}

// insert resolves an insert directive: either an inline expression or a
// fragment include resolved depth-first before splicing, so nested inserts
// are fully expanded before entering the host.
func (r *resolution) insert(ctx context.Context, d Directive, baseDir string) (string, error) {
	p := r.eng.opts.filePath(d)
	if p == "" {
		return r.expression(ctx, d)
	}

	target := resolveRelative(baseDir, p)
	frag, err := r.load(ctx, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.record(Condition{
			Kind:    MissingFragment,
			Span:    d.Span,
			Message: fmt.Sprintf("unable to load %q: %v", target, err),
		})
		return "", nil
	}
	return r.resolveText(ctx, frag.Content, path.Dir(frag.Path))
}

// wrap substitutes the host body into the layout shell at every middle
// marker and splices the filled shell in place of the whole pair. The
// shell's remaining directives resolve on later passes.
func (r *resolution) wrap(ctx context.Context, d Directive, body, baseDir string) (string, error) {
	target := resolveRelative(baseDir, r.eng.opts.filePath(d))
	frag, err := r.load(ctx, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.record(Condition{
			Kind:    MissingFragment,
			Span:    d.Span,
			Message: fmt.Sprintf("unable to load %q: %v", target, err),
		})
		return "", nil
	}

	shell := frag.Content
	dirs, _ := Scan(shell, r.eng.opts)

	var sb strings.Builder
	cursor := 0
	middles := 0
	for i := range dirs {
		if dirs[i].Kind != KindMiddle {
			continue
		}
		middles++
		sb.WriteString(shell[cursor:dirs[i].Span.Start])
		sb.WriteString(body)
		cursor = dirs[i].Span.End
	}
	if middles == 0 {
		r.record(Condition{
			Kind:    InvalidDirective,
			Doc:     frag.Path,
			Message: "wrap fragment has no middle marker, body dropped",
		})
		return shell, nil
	}
	sb.WriteString(shell[cursor:])
	return sb.String(), nil
}

// dataValue resolves a data / json-insert directive against the data tree,
// or evaluates its inline expression form.
func (r *resolution) dataValue(ctx context.Context, d Directive) (string, error) {
	if d.Attrs[attrExpr] != "" && d.Attrs[r.eng.opts.JSONPathAttribute] == "" {
		return r.expression(ctx, d)
	}

	v := ResolveData(r.data, d.Attrs[r.eng.opts.JSONPathAttribute], d.Attrs[attrDefault])
	out, err := FormatValue(v, d.Attrs[attrOutput])
	if err != nil {
		r.record(Condition{
			Kind:    EvaluationError,
			Span:    d.Span,
			Message: fmt.Sprintf("unable to serialize value for %q: %v", d.Attrs[r.eng.opts.JSONPathAttribute], err),
		})
		return "", nil
	}
	return out, nil
}

// expression evaluates the directive's inline expression against the
// capability table. Failure is scoped to this one directive: it substitutes
// empty and resolution continues.
func (r *resolution) expression(ctx context.Context, d Directive) (string, error) {
	v, err := Evaluate(ctx, d.Attrs[attrExpr], r.eng.opts.Capabilities, r.data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.record(Condition{
			Kind:    EvaluationError,
			Span:    d.Span,
			Message: fmt.Sprintf("expression %q: %v", d.Attrs[attrExpr], err),
		})
		return "", nil
	}

	out, err := FormatValue(v, d.Attrs[attrOutput])
	if err != nil {
		r.record(Condition{
			Kind:    EvaluationError,
			Span:    d.Span,
			Message: fmt.Sprintf("expression %q: %v", d.Attrs[attrExpr], err),
		})
		return "", nil
	}
	return out, nil
}

// load looks the fragment up in the registry, lazily loading and registering
// it on a miss.
func (r *resolution) load(ctx context.Context, target string) (*Fragment, error) {
	if f, ok := r.eng.reg.Lookup(target); ok {
		return f, nil
	}
	if r.eng.opts.Loader == nil {
		return nil, fmt.Errorf("no fragment loader configured")
	}
	content, err := r.eng.opts.Loader(ctx, target)
	if err != nil {
		return nil, err
	}
	f, conds := r.eng.reg.Register(target, content)
	r.merge(conds)
	return f, nil
}

// detectCycle walks insert/wrap edges from the entry document and reports
// the first dependency cycle found, loading fragments through the registry
// as it goes. Fragments that fail to load are skipped here, resolution
// reports them properly.
func (r *resolution) detectCycle(ctx context.Context, doc, text string) []string {
	const (
		white = iota // unvisited
		gray         // on the current walk path
		black        // fully explored
	)
	state := map[string]int{}
	var stack []string

	var walk func(p, text, baseDir string) []string
	walk = func(p, text, baseDir string) []string {
		state[p] = gray
		stack = append(stack, p)
		defer func() { stack = stack[:len(stack)-1] }()

		dirs, _ := Scan(text, r.eng.opts)
		for _, d := range dirs {
			if d.Kind != KindInsert && d.Kind != KindWrap {
				continue
			}
			fp := r.eng.opts.filePath(d)
			if fp == "" {
				continue
			}
			target := resolveRelative(baseDir, fp)
			switch state[target] {
			case gray:
				for i, s := range stack {
					if s == target {
						return append(append([]string{}, stack[i:]...), target)
					}
				}
			case black:
				continue
			}
			frag, err := r.load(ctx, target)
			if err != nil {
				continue
			}
			if cycle := walk(target, frag.Content, path.Dir(target)); cycle != nil {
				return cycle
			}
		}
		state[p] = black
		return nil
	}
	return walk(doc, text, path.Dir(doc))
}

package includer

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ConditionKind classifies non-fatal resolution failures.
type ConditionKind int

const (
	// InvalidDirective - malformed tag or attributes, or a mismatched pair.
	InvalidDirective ConditionKind = iota
	// MissingFragment - an insert or wrap target could not be loaded.
	MissingFragment
	// UnresolvedDirective - the iteration limit was reached with directives
	// still present in the document.
	UnresolvedDirective
	// EvaluationError - an inline expression failed to parse, run or settle.
	EvaluationError
	// CyclicInclude - strict mode detected a fragment dependency cycle.
	CyclicInclude
)

func (k ConditionKind) String() string {
	switch k {
	case InvalidDirective:
		return "invalid directive"
	case MissingFragment:
		return "missing fragment"
	case UnresolvedDirective:
		return "unresolved directive"
	case EvaluationError:
		return "evaluation error"
	case CyclicInclude:
		return "cyclic include"
	default:
		// this should never happen
		panic("unsupported condition kind")
	}
}

// Condition records one non-fatal failure. Failures are isolated to the
// smallest unit possible so one broken fragment never aborts a whole build;
// they are aggregated and surfaced to the caller, never silently dropped.
type Condition struct {
	Kind    ConditionKind
	Doc     string
	Span    Span
	Message string
}

func (c Condition) String() string {
	if c.Doc == "" {
		return fmt.Sprintf("%s: %s", c.Kind, c.Message)
	}
	return fmt.Sprintf("%s in %s [%d:%d]: %s", c.Kind, c.Doc, c.Span.Start, c.Span.End, c.Message)
}

type Conditions []Condition

// Err folds all conditions into a single error, nil when there are none.
func (cs Conditions) Err() (err error) {
	for _, c := range cs {
		err = multierr.Append(err, errors.New(c.String()))
	}
	return
}

// stamp fills the document path on conditions that do not carry one yet.
func (cs Conditions) stamp(doc string) Conditions {
	for i := range cs {
		if cs[i].Doc == "" {
			cs[i].Doc = doc
		}
	}
	return cs
}

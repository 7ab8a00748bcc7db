package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError pins one problem to a location inside a graph document,
// such as "nodes[each].config.iterableKey" or "edges[2].targetPortId".
type ValidationError struct {
	Path   string
	Reason string
	// Value is the offending value, if one was present.
	Value any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return e.Path + ": " + e.Reason
	}
	return fmt.Sprintf("%s: %s (got %T)", e.Path, e.Reason, e.Value)
}

// AggregateError carries every problem found in one validation pass.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(e.Errors)))
	b.WriteString(" validation errors:\n")
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err)
	}
	return b.String()
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors lists the problems inside err, which may be wrapped.
// It returns nil when err holds no AggregateError.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// problems accumulates validation failures for a single pass.
type problems []error

func (p *problems) add(path, reason string, value any) {
	*p = append(*p, &ValidationError{Path: path, Reason: reason, Value: value})
}

// merge flattens the problems held by err into p.
func (p *problems) merge(err error) {
	if err == nil {
		return
	}
	if inner := ValidationErrors(err); inner != nil {
		*p = append(*p, inner...)
		return
	}
	*p = append(*p, err)
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &AggregateError{Errors: p}
}

package transform

import (
	"fmt"
	"strings"

	"github.com/cohorttools/curator/internal"
)

// Transformers standardize and anonymize records between the source and
// the staging writers. They are composable: each takes a record and
// returns a (possibly rebuilt) record plus a boolean indicating whether
// to keep it.

// FieldNotFoundError is returned when a transform references a field the
// record does not carry, usually a typo in the delivery config.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("transform: field not found: %s", e.Field)
}

// Transformer processes a single record.
// Returns (transformed record, keep). If keep is false, the record is dropped.
type Transformer interface {
	Transform(r *internal.Record) (*internal.Record, bool, error)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(*internal.Record) (*internal.Record, bool, error)

func (f TransformerFunc) Transform(r *internal.Record) (*internal.Record, bool, error) {
	return f(r)
}

// Chain applies transformers in order, stopping early when one drops the
// record or fails.
type Chain []Transformer

func (c Chain) Transform(r *internal.Record) (*internal.Record, bool, error) {
	for _, t := range c {
		var keep bool
		var err error
		r, keep, err = t.Transform(r)
		if err != nil {
			return r, false, err
		}
		if !keep {
			return r, false, nil
		}
	}
	return r, true, nil
}

// Filter drops records where the given field does not match the value.
// The consent filter is a Filter on the consent flag column.
type Filter struct {
	Field string
	Op    string // "eq" | "neq" | "contains"
	Value any
}

func (t *Filter) Transform(r *internal.Record) (*internal.Record, bool, error) {
	v, ok := r.Get(t.Field)
	if !ok {
		return r, false, &FieldNotFoundError{Field: t.Field}
	}
	switch t.Op {
	case "eq":
		return r, fmt.Sprint(v) == fmt.Sprint(t.Value), nil
	case "neq":
		return r, fmt.Sprint(v) != fmt.Sprint(t.Value), nil
	case "contains":
		return r, strings.Contains(fmt.Sprint(v), fmt.Sprint(t.Value)), nil
	default:
		return r, true, nil
	}
}

// Rename renames fields in a record, preserving field order.
type Rename struct {
	Mapping map[string]string // oldName -> newName
}

func (t *Rename) Transform(r *internal.Record) (*internal.Record, bool, error) {
	fields := make([]string, r.Len())
	for i, field := range r.Fields() {
		if renamed, ok := t.Mapping[field]; ok {
			fields[i] = renamed
		} else {
			fields[i] = field
		}
	}
	return internal.NewRecord(fields, r.Values()), true, nil
}

// Select keeps only the named fields, in the order given. Fields the
// record does not carry are skipped.
type Select struct {
	Fields []string
}

func (t *Select) Transform(r *internal.Record) (*internal.Record, bool, error) {
	fields := make([]string, 0, len(t.Fields))
	values := make([]any, 0, len(t.Fields))
	for _, field := range t.Fields {
		v, ok := r.Get(field)
		if !ok {
			continue
		}
		fields = append(fields, field)
		values = append(values, v)
	}
	return internal.NewRecord(fields, values), true, nil
}

// Redact overwrites the named fields with a fixed replacement value.
// Used to blank protected health information before delivery.
type Redact struct {
	Fields      []string
	Replacement string
}

func (t *Redact) Transform(r *internal.Record) (*internal.Record, bool, error) {
	redact := make(map[string]struct{}, len(t.Fields))
	for _, field := range t.Fields {
		redact[field] = struct{}{}
	}

	values := make([]any, r.Len())
	for i, field := range r.Fields() {
		if _, ok := redact[field]; ok {
			values[i] = t.Replacement
		} else {
			values[i] = r.Values()[i]
		}
	}
	return internal.NewRecord(r.Fields(), values), true, nil
}

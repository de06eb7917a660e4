package flatten

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldNotFoundError indicates a schema declared a field the record could
// not supply. It is a caller configuration bug, not a recoverable runtime
// condition; callers decide whether to skip the record or abort the run.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("record has no field %q", e.Field)
}

// ConversionError indicates a raw value could not be rendered as text.
type ConversionError struct {
	Field string
	Value any
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert field %q value of type %T to text", e.Field, e.Value)
}

// Schema is the ordered list of field names for one staging file. It
// defines both the column order and which fields of a record are emitted.
type Schema []string

// NewSchema validates that the field list is non-empty and free of
// duplicates.
func NewSchema(fields ...string) (Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema requires at least one field")
	}
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			return nil, fmt.Errorf("duplicate schema field %q", field)
		}
		seen[field] = struct{}{}
	}
	return Schema(fields), nil
}

// Header returns the tab-joined header line for the staging file.
func (s Schema) Header() string {
	return strings.Join(s, "\t")
}

// Getter is any record shape that can answer "give me the value named X".
// *internal.Record is the canonical implementation.
type Getter interface {
	Get(field string) (any, bool)
}

// Override rewrites a single field's text value after whitespace
// normalization. Overrides are keyed by field name on the Flattener.
type Override func(value string) string

// SentinelToEmpty blanks values that equal the sentinel. Upstream systems
// use sentinels such as "-1" on date fields to mean "not applicable".
func SentinelToEmpty(sentinel string) Override {
	return func(value string) string {
		if value == sentinel {
			return ""
		}
		return value
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeWhitespace replaces every maximal run of whitespace, newlines
// included, with a single space so no value can break the one-line
// tab-delimited staging format.
func NormalizeWhitespace(value string) string {
	return whitespaceRun.ReplaceAllString(value, " ")
}

type Option func(*Flattener)

// WithOverride registers a field-specific override rule.
func WithOverride(field string, o Override) Option {
	return func(f *Flattener) {
		f.overrides[field] = o
	}
}

// Flattener projects a record onto a schema, producing a single
// tab-delimited line. It is a pure transform: no I/O, no shared mutable
// state, safe for concurrent use once constructed.
type Flattener struct {
	schema    Schema
	overrides map[string]Override
}

func New(schema Schema, opts ...Option) *Flattener {
	f := &Flattener{
		schema:    schema,
		overrides: make(map[string]Override),
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flattener) Schema() Schema {
	return f.schema
}

// Flatten resolves each schema field against the record, normalizes the
// text, applies any registered override and joins the results with tabs.
// The returned line carries no terminator; the sink owns newlines.
func (f *Flattener) Flatten(record Getter) (string, error) {
	fields := make([]string, len(f.schema))
	for i, field := range f.schema {
		raw, ok := record.Get(field)
		if !ok {
			return "", &FieldNotFoundError{Field: field}
		}

		value, err := formatValue(field, raw)
		if err != nil {
			return "", err
		}

		value = NormalizeWhitespace(value)
		if override, ok := f.overrides[field]; ok {
			value = override(value)
		}
		fields[i] = value
	}

	// Strip leading/trailing spaces from the whole line. Tabs are the
	// field separators and must survive even when edge fields are empty.
	return strings.Trim(strings.Join(fields, "\t"), " "), nil
}

// formatValue renders a raw value in its canonical, locale-independent
// text form. Absent values render as the empty string.
func formatValue(field string, raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", &ConversionError{Field: field, Value: raw}
	}
}

package internal

// Record is a struct that contains a set of fields and their corresponding values.
// It is used to represent a row of data from a source.
// Field order is critical for staging-file serializers, so we keep them in a separate slice.
type Record struct {
	fields []string
	values []any

	index map[string]int
}

func NewRecord(fields []string, values []any) *Record {
	index := make(map[string]int, len(fields))
	for i, field := range fields {
		index[field] = i
	}
	return &Record{
		fields: fields,
		values: values,
		index:  index,
	}
}

func (r *Record) Len() int {
	return len(r.fields)
}

func (r *Record) Fields() []string {
	return r.fields
}

func (r *Record) Values() []any {
	return r.values
}

// Get returns the value for a named field. The second return is false
// when the record has no such field.
func (r *Record) Get(field string) (any, bool) {
	i, ok := r.index[field]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

func (r *Record) Map() map[string]any {
	m := make(map[string]any)
	for i, field := range r.fields {
		m[field] = r.values[i]
	}
	return m
}

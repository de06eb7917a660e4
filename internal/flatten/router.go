package flatten

// Bucket classifies where a flattened line belongs. Records whose
// identifier is in the known-new set go to the new staging file, the rest
// to the old one.
type Bucket string

const (
	BucketNew Bucket = "new"
	BucketOld Bucket = "old"
)

// Router classifies records by membership of their identifier field in a
// set of identifiers. Pure; safe for concurrent use.
type Router struct {
	idField string
	ids     map[string]struct{}
	member  Bucket
	rest    Bucket
}

// NewRouter builds a router over a set of known-new identifiers: members
// classify as BucketNew, everything else as BucketOld.
func NewRouter(idField string, newIDs []string) *Router {
	ids := make(map[string]struct{}, len(newIDs))
	for _, id := range newIDs {
		ids[id] = struct{}{}
	}
	return &Router{
		idField: idField,
		ids:     ids,
		member:  BucketNew,
		rest:    BucketOld,
	}
}

// NewSeenRouter builds a router over the set of identifiers delivered by
// prior runs: members classify as BucketOld, first-time identifiers as
// BucketNew.
func NewSeenRouter(idField string, seen map[string]struct{}) *Router {
	return &Router{
		idField: idField,
		ids:     seen,
		member:  BucketOld,
		rest:    BucketNew,
	}
}

func (r *Router) IDField() string {
	return r.idField
}

// ID resolves the record's identifier in its canonical text form.
func (r *Router) ID(record Getter) (string, error) {
	raw, ok := record.Get(r.idField)
	if !ok {
		return "", &FieldNotFoundError{Field: r.idField}
	}
	return formatValue(r.idField, raw)
}

func (r *Router) Classify(record Getter) (Bucket, error) {
	id, err := r.ID(record)
	if err != nil {
		return "", err
	}

	if _, ok := r.ids[id]; ok {
		return r.member, nil
	}
	return r.rest, nil
}

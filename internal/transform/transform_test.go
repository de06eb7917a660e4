package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohorttools/curator/internal"
)

func sampleRecord() *internal.Record {
	return internal.NewRecord(
		[]string{"SAMPLE_ID", "PATIENT_ID", "CONSENTED", "PATIENT_NAME"},
		[]any{"P-001-T01", "P-001", "YES", "Jane Doe"},
	)
}

func TestFilter(t *testing.T) {
	t.Run("keeps consented records", func(t *testing.T) {
		f := &Filter{Field: "CONSENTED", Op: "eq", Value: "YES"}
		_, keep, err := f.Transform(sampleRecord())
		require.NoError(t, err)
		assert.True(t, keep)
	})

	t.Run("drops non-consented records", func(t *testing.T) {
		f := &Filter{Field: "CONSENTED", Op: "eq", Value: "NO"}
		_, keep, err := f.Transform(sampleRecord())
		require.NoError(t, err)
		assert.False(t, keep)
	})

	t.Run("missing filter field is an error", func(t *testing.T) {
		f := &Filter{Field: "MISSING", Op: "eq", Value: "YES"}
		_, _, err := f.Transform(sampleRecord())

		var notFound *FieldNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "MISSING", notFound.Field)
	})
}

func TestRename(t *testing.T) {
	r := &Rename{Mapping: map[string]string{"CONSENTED": "PARTA_CONSENTED"}}
	out, keep, err := r.Transform(sampleRecord())
	require.NoError(t, err)
	require.True(t, keep)

	assert.Equal(t,
		[]string{"SAMPLE_ID", "PATIENT_ID", "PARTA_CONSENTED", "PATIENT_NAME"},
		out.Fields(),
	)

	v, ok := out.Get("PARTA_CONSENTED")
	require.True(t, ok)
	assert.Equal(t, "YES", v)
}

func TestSelect(t *testing.T) {
	s := &Select{Fields: []string{"PATIENT_ID", "SAMPLE_ID", "MISSING"}}
	out, keep, err := s.Transform(sampleRecord())
	require.NoError(t, err)
	require.True(t, keep)

	assert.Equal(t, []string{"PATIENT_ID", "SAMPLE_ID"}, out.Fields())
	assert.Equal(t, []any{"P-001", "P-001-T01"}, out.Values())
}

func TestRedact(t *testing.T) {
	r := &Redact{Fields: []string{"PATIENT_NAME"}, Replacement: "REDACTED"}
	out, keep, err := r.Transform(sampleRecord())
	require.NoError(t, err)
	require.True(t, keep)

	v, ok := out.Get("PATIENT_NAME")
	require.True(t, ok)
	assert.Equal(t, "REDACTED", v)

	// original record untouched
	v, _ = sampleRecord().Get("PATIENT_NAME")
	assert.Equal(t, "Jane Doe", v)
}

func TestChain(t *testing.T) {
	chain := Chain{
		&Filter{Field: "CONSENTED", Op: "eq", Value: "YES"},
		&Redact{Fields: []string{"PATIENT_NAME"}, Replacement: ""},
		&Select{Fields: []string{"SAMPLE_ID", "PATIENT_ID", "PATIENT_NAME"}},
	}

	out, keep, err := chain.Transform(sampleRecord())
	require.NoError(t, err)
	require.True(t, keep)
	assert.Equal(t, []string{"SAMPLE_ID", "PATIENT_ID", "PATIENT_NAME"}, out.Fields())
	assert.Equal(t, []any{"P-001-T01", "P-001", ""}, out.Values())

	t.Run("stops on drop", func(t *testing.T) {
		chain := Chain{&Filter{Field: "CONSENTED", Op: "eq", Value: "NO"}}
		_, keep, err := chain.Transform(sampleRecord())
		require.NoError(t, err)
		assert.False(t, keep)
	})

	t.Run("stops on error", func(t *testing.T) {
		chain := Chain{
			&Filter{Field: "MISSING", Op: "eq", Value: "YES"},
			&Select{Fields: []string{"SAMPLE_ID"}},
		}
		_, _, err := chain.Transform(sampleRecord())

		var notFound *FieldNotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

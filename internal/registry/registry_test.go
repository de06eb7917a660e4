package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("load without ledger returns empty set", func(t *testing.T) {
		r := New(t.TempDir(), zap.NewNop())
		seen, err := r.Load(ctx, "partner-a")
		require.NoError(t, err)
		assert.Empty(t, seen)
	})

	t.Run("save then load round trips", func(t *testing.T) {
		r := New(t.TempDir(), zap.NewNop())

		err := r.Save(ctx, "partner-a", map[string]struct{}{
			"P-001-T01": {},
			"P-002-T01": {},
		})
		require.NoError(t, err)

		seen, err := r.Load(ctx, "partner-a")
		require.NoError(t, err)
		assert.Len(t, seen, 2)
		assert.Contains(t, seen, "P-001-T01")
		assert.Contains(t, seen, "P-002-T01")
	})

	t.Run("ledgers are per delivery", func(t *testing.T) {
		r := New(t.TempDir(), zap.NewNop())

		err := r.Save(ctx, "partner-a", map[string]struct{}{"P-001-T01": {}})
		require.NoError(t, err)

		seen, err := r.Load(ctx, "partner-b")
		require.NoError(t, err)
		assert.Empty(t, seen)
	})

	t.Run("delete removes the ledger", func(t *testing.T) {
		r := New(t.TempDir(), zap.NewNop())

		err := r.Save(ctx, "partner-a", map[string]struct{}{"P-001-T01": {}})
		require.NoError(t, err)
		require.NoError(t, r.Delete(ctx, "partner-a"))

		seen, err := r.Load(ctx, "partner-a")
		require.NoError(t, err)
		assert.Empty(t, seen)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		r := New(t.TempDir(), zap.NewNop())
		assert.NoError(t, r.Delete(ctx, "never-saved"))
	})
}

package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cohorttools/curator/internal/registry"
)

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer(t *testing.T) {
	t.Run("lists no deliveries", func(t *testing.T) {
		s := NewServer(zap.NewNop())

		w := doRequest(t, s, "/api/v1/deliveries")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body struct {
			Deliveries []DeliveryInfo `json:"deliveries"`
			Count      int            `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 0, body.Count)
		assert.Empty(t, body.Deliveries)
	})

	t.Run("lists registered deliveries", func(t *testing.T) {
		s := NewServer(zap.NewNop())
		d := newTestDelivery(t, newMemoryRepository(), registry.New(t.TempDir(), zap.NewNop()))
		s.RegisterDelivery(d)

		w := doRequest(t, s, "/api/v1/deliveries")
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Deliveries []DeliveryInfo `json:"deliveries"`
			Count      int            `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "partner-a", body.Deliveries[0].Name)
		assert.Equal(t, StateCreated, body.Deliveries[0].State)
	})

	t.Run("reports delivery state and stats by name", func(t *testing.T) {
		s := NewServer(zap.NewNop())
		d := newTestDelivery(t, newMemoryRepository(), registry.New(t.TempDir(), zap.NewNop()))
		s.RegisterDelivery(d)

		_, err := d.Run(context.Background(), uuid.Must(uuid.NewUUID()))
		require.NoError(t, err)

		w := doRequest(t, s, "/api/v1/deliveries/partner-a")
		assert.Equal(t, http.StatusOK, w.Code)

		var info DeliveryInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, "partner-a", info.Name)
		assert.Equal(t, StateCompleted, info.State)
		assert.Equal(t, 3, info.Stats.SourceRecords)
		assert.Equal(t, 2, info.Stats.Processed)
		assert.Equal(t, 1, info.Stats.Dropped)
	})

	t.Run("unknown delivery is a 404", func(t *testing.T) {
		s := NewServer(zap.NewNop())

		w := doRequest(t, s, "/api/v1/deliveries/partner-z")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unregistered deliveries disappear", func(t *testing.T) {
		s := NewServer(zap.NewNop())
		d := newTestDelivery(t, newMemoryRepository(), registry.New(t.TempDir(), zap.NewNop()))
		s.RegisterDelivery(d)
		s.UnregisterDelivery(d.Name())

		w := doRequest(t, s, "/api/v1/deliveries/"+d.Name())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

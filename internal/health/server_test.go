package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/store"
)

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, ReadyResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHealthAlwaysOK(t *testing.T) {
	s := NewServer(Config{ServiceName: "banker-pool", Logger: logger.Discard()})
	w, resp := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Status)
}

func TestReadyRequiresSetReady(t *testing.T) {
	s := NewServer(Config{
		ServiceName: "banker-pool",
		Logger:      logger.Discard(),
		Checks:      map[string]Pinger{"store": StoreCheck(store.NewMemoryStore())},
	})

	w, resp := get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", resp.Checks["service"])
	assert.Equal(t, "ok", resp.Checks["store"])

	s.SetReady(true)
	w, resp = get(t, s, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Status)
}

func TestReadyReportsFailingCheck(t *testing.T) {
	db := &mockPinger{}
	db.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	s := NewServer(Config{
		ServiceName: "banker-pool",
		Logger:      logger.Discard(),
		Checks:      map[string]Pinger{"database": db},
	})
	s.SetReady(true)

	w, resp := get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "error: connection refused", resp.Checks["database"])
	db.AssertExpectations(t)
}

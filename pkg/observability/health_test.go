package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) HealthCheck(_ context.Context) error { return f.err }

func TestHealthChecker_Healthy(t *testing.T) {
	hc := NewHealthChecker(&fakePinger{})

	status := hc.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks["database"])
}

func TestHealthChecker_Degraded(t *testing.T) {
	hc := NewHealthChecker(&fakePinger{err: errors.New("connection refused")})

	status := hc.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "connection refused", status.Checks["database"])
}

func TestHealthChecker_Handler(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus int
	}{
		{"healthy", nil, http.StatusOK},
		{"degraded", errors.New("down"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker(&fakePinger{err: tt.pingErr})

			rec := httptest.NewRecorder()
			hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var status HealthStatus
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
			assert.Equal(t, tt.pingErr == nil, status.Healthy)
		})
	}
}

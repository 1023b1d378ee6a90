package health

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadinessAllUp(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", func(ctx context.Context) error { return nil })
	h.RegisterNonCritical("kafka", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
	assert.Contains(t, rec.Body.String(), `"up"`)
}

func TestReadinessCriticalDown(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, rec.Body.String(), "not ready")
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestReadinessNonCriticalDown(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", func(ctx context.Context) error { return nil })
	h.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return errors.New("brokers unreachable")
	})

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"down"`)
}

func TestLiveness(t *testing.T) {
	h := NewHandler()

	rec := httptest.NewRecorder()
	h.LivenessHandler(rec, httptest.NewRequest("GET", "/live", nil))

	assert.Equal(t, 200, rec.Code)
}

package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/tripdesk/internal/app/features/health"
	"github.com/dalemusser/tripdesk/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func serve(t *testing.T, h *health.Handler) (int, healthBody) {
	t.Helper()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, body
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	code, body := serve(t, handler)
	if code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, code)
	}
	if body.Status != "ok" || body.Database != "connected" {
		t.Errorf("got %+v", body)
	}
	if body.Redis != "" {
		t.Errorf("redis should be omitted when not configured, got %q", body.Redis)
	}
}

func TestServe_Redis(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	handler := health.NewHandler(db.Client(), rdb, zap.NewNop())

	code, body := serve(t, handler)
	if code != http.StatusOK || body.Status != "ok" || body.Redis != "connected" {
		t.Errorf("code=%d body=%+v", code, body)
	}

	mr.Close()
	code, body = serve(t, handler)
	if code != http.StatusOK {
		t.Errorf("redis down: expected status %d, got %d", http.StatusOK, code)
	}
	if body.Status != "degraded" || body.Redis != "disconnected" {
		t.Errorf("redis down: got %+v", body)
	}
}

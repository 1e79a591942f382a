package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/tripdesk/internal/app/system/auth"
	"github.com/dalemusser/tripdesk/internal/app/system/metrics"
	"github.com/dalemusser/tripdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/tripdesk/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testAppConfig() AppConfig {
	return AppConfig{
		MongoURI:                "mongodb://localhost:27017",
		SessionKey:              devSessionKey,
		SessionName:             "test-session",
		SessionMaxAge:           time.Hour,
		InvitationTTL:           7 * 24 * time.Hour,
		InviteRateLimit:         5,
		InviteRateWindow:        time.Hour,
		InvitationRetention:     30 * 24 * time.Hour,
		InvitationPurgeInterval: time.Hour,
		AuditLogAdmin:           "all",
		AuditLogSecurity:        "off",
		BaseURL:                 "http://localhost:8080",
		MailFromName:            "TripDesk",
	}
}

func testDeps(t *testing.T) DBDeps {
	t.Helper()
	db := testutil.SetupSchemaDB(t)
	reg := prometheus.NewRegistry()
	return DBDeps{
		TripDeskMongoClient:   db.Client(),
		TripDeskMongoDatabase: db,
		Registry:              reg,
		Metrics:               metrics.New(reg),
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults ok", "dev", func(*AppConfig) {}, ""},
		{"zero ttl", "dev", func(c *AppConfig) { c.InvitationTTL = 0 }, "invitation_ttl"},
		{"negative rate limit", "dev", func(c *AppConfig) { c.InviteRateLimit = -1 }, "invite_rate_limit"},
		{"missing window", "dev", func(c *AppConfig) { c.InviteRateWindow = 0 }, "invite_rate_window"},
		{"rate limit disabled without window", "dev", func(c *AppConfig) { c.InviteRateLimit = 0; c.InviteRateWindow = 0 }, ""},
		{"missing retention", "dev", func(c *AppConfig) { c.InvitationRetention = 0 }, "invitation_retention"},
		{"bad audit setting", "dev", func(c *AppConfig) { c.AuditLogSecurity = "sometimes" }, "audit_log_security"},
		{"dev key in prod", "prod", func(*AppConfig) {}, "session_key"},
		{"real key in prod", "prod", func(c *AppConfig) { c.SessionKey = strings.Repeat("k", 48) }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewInviteLimiter(t *testing.T) {
	defer stopBackground()

	cfg := testAppConfig()
	cfg.InviteRateLimit = 0
	if l := newInviteLimiter(cfg, DBDeps{}, testLogger()); l != nil {
		t.Errorf("limit 0: got %T, want nil", l)
	}

	cfg.InviteRateLimit = 3
	if l, ok := newInviteLimiter(cfg, DBDeps{}, testLogger()).(*ratelimit.Limiter); !ok || l == nil {
		t.Errorf("no redis: want in-process limiter")
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	if _, ok := newInviteLimiter(cfg, DBDeps{Redis: rdb}, testLogger()).(*ratelimit.Redis); !ok {
		t.Errorf("with redis: want redis limiter")
	}
}

func TestEnsureSchema(t *testing.T) {
	deps := testDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Running twice must be a no-op the second time.
	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, &config.CoreConfig{}, testAppConfig(), deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema pass %d: %v", i+1, err)
		}
	}

	names, err := deps.TripDeskMongoDatabase.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "agencies", "members", "invitations", "audit_events"} {
		if !have[want] {
			t.Errorf("collection %q missing", want)
		}
	}
}

func TestStartup_PurgeWorker(t *testing.T) {
	deps := testDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := testAppConfig()
	cfg.InvitationPurgeInterval = 0
	if err := Startup(ctx, &config.CoreConfig{}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup (disabled): %v", err)
	}
	if background.purge != nil {
		t.Error("purge worker started while disabled")
	}

	cfg.InvitationPurgeInterval = time.Hour
	if err := Startup(ctx, &config.CoreConfig{}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if background.purge == nil {
		t.Fatal("purge worker not started")
	}
	stopBackground()
	if background.purge != nil {
		t.Error("purge worker not cleared after stop")
	}
	stopBackground()
}

func TestBuildHandler(t *testing.T) {
	defer stopBackground()
	deps := testDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := testAppConfig()
	cfg.JWTSecret = "test-jwt-secret"
	cfg.JWTIssuer = "tripdesk-test"

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	fx := testutil.NewFixtures(t, deps.TripDeskMongoDatabase)
	owner := fx.CreateUser(ctx, "Olivia Owner", "owner@example.com")
	verifier, err := auth.NewBearerVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		t.Fatalf("NewBearerVerifier: %v", err)
	}
	token, err := verifier.Issue(owner.ID.Hex(), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	do := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(httptest.NewRequest("GET", "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("/health: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec := do(httptest.NewRequest("GET", "/agencies", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /agencies: expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	bad := httptest.NewRequest("GET", "/agencies", nil)
	bad.Header.Set("Authorization", "Bearer not-a-jwt")
	if rec := do(bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	create := testutil.NewJSONRequest(t, "POST", "/agencies", map[string]any{"name": "Sunny Tours"})
	create.Header.Set("Authorization", "Bearer "+token)
	if rec := do(create); rec.Code != http.StatusCreated {
		t.Fatalf("POST /agencies: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	list := httptest.NewRequest("GET", "/agencies", nil)
	list.Header.Set("Authorization", "Bearer "+token)
	rec := do(list)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Sunny Tours") {
		t.Errorf("GET /agencies: code=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `tripdesk_operations_total{operation="create_agency",outcome="ok"} 1`) {
		t.Errorf("/metrics missing create_agency counter:\n%s", rec.Body.String())
	}
}

func TestBuildHandler_DevSessionOutsideProdOnly(t *testing.T) {
	defer stopBackground()
	deps := testDeps(t)

	tests := []struct {
		env  string
		want int
	}{
		{"dev", http.StatusOK},
		{"prod", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			h, err := BuildHandler(&config.CoreConfig{Env: tt.env}, testAppConfig(), deps, testLogger())
			if err != nil {
				t.Fatalf("BuildHandler: %v", err)
			}
			req := testutil.NewJSONRequest(t, "POST", "/dev/session", map[string]string{"email": "dev@example.com", "name": "Dev"})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("POST /dev/session in %s: expected status %d, got %d", tt.env, tt.want, rec.Code)
			}
		})
	}
}

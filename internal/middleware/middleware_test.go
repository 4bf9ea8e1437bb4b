package middleware

import (
	jwtPkg "FaceGate/pkg/jwt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestApp(cfg Config) *fiber.App {
	m := New(quietLogger(), cfg)

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Use(m.NewLoggingMiddleware)
	app.Use(m.NewRateLimiter)
	app.Use(m.NewTokenMiddleware)
	app.Get("/ping", func(c *fiber.Ctx) error {
		client, err := jwtPkg.GetClient(c)
		if err != nil {
			return c.SendString("anonymous")
		}
		return c.SendString(client.ID)
	})
	return app
}

func TestRateLimiter(t *testing.T) {
	app := newTestApp(Config{RateLimit: 0.001, RateBurst: 2})

	want := []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}
	for i, status := range want {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != status {
			t.Errorf("request %d: status = %d, want %d", i, resp.StatusCode, status)
		}
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	r := newRateLimiter(1, 1)
	r.idleTTL = time.Minute
	r.lastSweep = clock
	r.now = func() time.Time { return clock }

	idle := r.GetLimiterFrom("10.0.0.1")
	active := r.GetLimiterFrom("10.0.0.2")

	clock = clock.Add(45 * time.Second)
	if got := r.GetLimiterFrom("10.0.0.2"); got != active {
		t.Fatal("an active client must keep its bucket")
	}

	clock = clock.Add(45 * time.Second)
	r.GetLimiterFrom("10.0.0.3")

	if n := r.Len(); n != 2 {
		t.Fatalf("Len() = %d, want 2 after the idle client is evicted", n)
	}
	if got := r.GetLimiterFrom("10.0.0.2"); got != active {
		t.Error("client seen within the idle window was evicted")
	}
	if got := r.GetLimiterFrom("10.0.0.1"); got == idle {
		t.Error("idle client kept its old bucket")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	app := newTestApp(DefaultConfig())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get(RequestIDKey); len(got) != 26 {
		t.Errorf("expected a generated ULID request id, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDKey, "caller-id")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get(RequestIDKey); got != "caller-id" {
		t.Errorf("expected caller request id to be kept, got %q", got)
	}
}

func TestTokenMiddleware(t *testing.T) {
	valid, _, err := jwtPkg.Sign(map[string]interface{}{"id": "kiosk-1"}, time.Hour, "secret")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	noID, _, err := jwtPkg.Sign(map[string]interface{}{"name": "Lobby"}, time.Hour, "secret")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name     string
		enabled  bool
		header   string
		status   int
		wantBody string
	}{
		{name: "disabled", enabled: false, status: fiber.StatusOK, wantBody: "anonymous"},
		{name: "missing header", enabled: true, status: fiber.StatusUnauthorized},
		{name: "not bearer", enabled: true, header: "Basic abc", status: fiber.StatusUnauthorized},
		{name: "bad token", enabled: true, header: "Bearer nope", status: fiber.StatusUnauthorized},
		{name: "missing id claim", enabled: true, header: "Bearer " + noID, status: fiber.StatusUnauthorized},
		{name: "valid", enabled: true, header: "Bearer " + valid, status: fiber.StatusOK, wantBody: "kiosk-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(Config{AuthEnabled: tt.enabled, TokenSecret: "secret"})

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
		})
	}
}

func TestSanitizeRequestBody(t *testing.T) {
	got := sanitizeRequestBody([]byte(`{"id":"s1","frame":"aGVsbG8=","api_key":"k"}`))

	if strings.Contains(got, "aGVsbG8=") {
		t.Errorf("frame payload leaked into log: %s", got)
	}
	if !strings.Contains(got, "[frame 8 bytes]") {
		t.Errorf("expected frame size marker, got %s", got)
	}
	if strings.Contains(got, `"k"`) {
		t.Errorf("secret leaked into log: %s", got)
	}
	if !strings.Contains(got, `"s1"`) {
		t.Errorf("expected id to be kept, got %s", got)
	}

	if got := sanitizeRequestBody([]byte("plain")); got != "[non-JSON body]" {
		t.Errorf("non-JSON body = %q", got)
	}
}

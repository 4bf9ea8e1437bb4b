package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.App.Port != "3000" {
		t.Errorf("port = %q, want 3000", settings.App.Port)
	}
	if settings.Detection.Engine != "pigo" {
		t.Errorf("engine = %q, want pigo", settings.Detection.Engine)
	}
	if settings.Detection.DebounceInterval != 1500*time.Millisecond {
		t.Errorf("debounce = %s, want 1.5s", settings.Detection.DebounceInterval)
	}
	if settings.Detection.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", settings.Detection.Timeout)
	}
	if settings.Snapshot.Format != "jpeg" || settings.Snapshot.Quality != 100 {
		t.Errorf("snapshot = %+v", settings.Snapshot)
	}
	if settings.Pigo.MinSize != 60 || settings.Pigo.ScaleFactor != 1.1 {
		t.Errorf("pigo = %+v", settings.Pigo)
	}
	if settings.Remote.PingInterval != 30*time.Second {
		t.Errorf("remote ping interval = %s", settings.Remote.PingInterval)
	}
	if settings.Redis.Enabled || settings.Redis.TTL != 10*time.Minute {
		t.Errorf("redis = %+v", settings.Redis)
	}
	if settings.HTTP.RateLimit != 50 || settings.HTTP.RateBurst != 100 || settings.HTTP.AuthEnabled {
		t.Errorf("http = %+v", settings.HTTP)
	}
}

func TestLoadSettingsEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("FACE_ENGINE", "remote")
	t.Setenv("AI_FACE_DETECTION_URL", "ws://detector:9000/ws")
	t.Setenv("FACE_DEBOUNCE_INTERVAL", "2000")
	t.Setenv("FACE_DETECTION_TIMEOUT", "750ms")
	t.Setenv("FACE_SNAPSHOT_FORMAT", "webp")
	t.Setenv("FACE_SNAPSHOT_QUALITY", "80")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("RATE_LIMIT_RPS", "12.5")
	t.Setenv("FACE_AUTH_ENABLED", "true")
	t.Setenv("JWT_ACCESS_TOKEN_SECRET", "secret")
	t.Setenv("PIGO_CASCADE_PATH", "/opt/cascades/facefinder")
	t.Setenv("PIGO_PUPLOC_PATH", "/opt/cascades/puploc")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.App.Port != "8080" {
		t.Errorf("port = %q", settings.App.Port)
	}
	if settings.Detection.Engine != "remote" || settings.Remote.URL != "ws://detector:9000/ws" {
		t.Errorf("engine = %q url = %q", settings.Detection.Engine, settings.Remote.URL)
	}
	if settings.Detection.DebounceInterval != 2*time.Second {
		t.Errorf("debounce = %s, want 2s", settings.Detection.DebounceInterval)
	}
	if settings.Detection.Timeout != 750*time.Millisecond {
		t.Errorf("timeout = %s, want 750ms", settings.Detection.Timeout)
	}
	if settings.Snapshot.Format != "webp" || settings.Snapshot.Quality != 80 {
		t.Errorf("snapshot = %+v", settings.Snapshot)
	}
	if !settings.Redis.Enabled || settings.Redis.DB != 2 {
		t.Errorf("redis = %+v", settings.Redis)
	}
	if settings.HTTP.RateLimit != 12.5 || !settings.HTTP.AuthEnabled || settings.HTTP.TokenSecret != "secret" {
		t.Errorf("http = %+v", settings.HTTP)
	}
	if settings.Pigo.CascadePath != "/opt/cascades/facefinder" || settings.Pigo.PuplocPath != "/opt/cascades/puploc" {
		t.Errorf("pigo = %+v", settings.Pigo)
	}
}

func TestLoadSettingsRejects(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown engine", env: map[string]string{"FACE_ENGINE": "mlkit"}, wantErr: "unknown face engine"},
		{name: "unknown format", env: map[string]string{"FACE_SNAPSHOT_FORMAT": "gif"}, wantErr: "unsupported snapshot format"},
		{name: "quality out of range", env: map[string]string{"FACE_SNAPSHOT_QUALITY": "101"}, wantErr: "quality"},
		{name: "bad duration", env: map[string]string{"FACE_DETECTION_TIMEOUT": "soon"}, wantErr: "FACE_DETECTION_TIMEOUT"},
		{name: "bad bool", env: map[string]string{"REDIS_ENABLED": "maybe"}, wantErr: "REDIS_ENABLED"},
		{name: "auth without secret", env: map[string]string{"FACE_AUTH_ENABLED": "true"}, wantErr: "JWT_ACCESS_TOKEN_SECRET"},
		{name: "zero debounce", env: map[string]string{"FACE_DEBOUNCE_INTERVAL": "0"}, wantErr: "debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_ACCESS_TOKEN_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadSettings()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

package config

import (
	"FaceGate/internal/entity"
	"FaceGate/pkg/detector"
	"FaceGate/pkg/utils"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed facegate.yaml
var defaultSettingsYAML []byte

type Settings struct {
	App       AppSettings           `yaml:"app"`
	Detection DetectionSettings     `yaml:"detection"`
	Snapshot  SnapshotSettings      `yaml:"snapshot"`
	Pigo      detector.PigoConfig   `yaml:"pigo"`
	Remote    detector.RemoteConfig `yaml:"remote"`
	Redis     RedisSettings         `yaml:"redis"`
	HTTP      HTTPSettings          `yaml:"http"`
}

type AppSettings struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DetectionSettings struct {
	Engine             string        `yaml:"engine"`
	DebounceInterval   time.Duration `yaml:"debounce_interval"`
	Timeout            time.Duration `yaml:"timeout"`
	DirectionThreshold float64       `yaml:"direction_threshold"`
}

type SnapshotSettings struct {
	Format       string `yaml:"format"`
	Quality      int    `yaml:"quality"`
	MaxDimension int    `yaml:"max_dimension"`
}

type RedisSettings struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type HTTPSettings struct {
	BodyLimit   int     `yaml:"body_limit"`
	RateLimit   float64 `yaml:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst"`
	AuthEnabled bool    `yaml:"auth_enabled"`
	TokenSecret string  `yaml:"-"`
}

// LoadSettings reads the embedded defaults and applies environment overrides.
func LoadSettings() (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(defaultSettingsYAML, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded facegate.yaml: %w", err)
	}

	if err := settings.applyEnv(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

func (s *Settings) applyEnv() error {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	envString("APP_PORT", &s.App.Port)
	envString("FACE_ENGINE", &s.Detection.Engine)
	envString("PIGO_CASCADE_PATH", &s.Pigo.CascadePath)
	envString("PIGO_PUPLOC_PATH", &s.Pigo.PuplocPath)
	envString("AI_FACE_DETECTION_URL", &s.Remote.URL)
	envString("FACE_SNAPSHOT_FORMAT", &s.Snapshot.Format)
	envString("REDIS_ADDRESS", &s.Redis.Address)
	envString("REDIS_PASSWORD", &s.Redis.Password)
	envString("JWT_ACCESS_TOKEN_SECRET", &s.HTTP.TokenSecret)

	collect(envDuration("FACE_DEBOUNCE_INTERVAL", &s.Detection.DebounceInterval))
	collect(envDuration("FACE_DETECTION_TIMEOUT", &s.Detection.Timeout))
	collect(envInt("FACE_SNAPSHOT_QUALITY", &s.Snapshot.Quality))
	collect(envInt("FACE_SNAPSHOT_MAX_DIMENSION", &s.Snapshot.MaxDimension))
	collect(envBool("FACE_AUTH_ENABLED", &s.HTTP.AuthEnabled))
	collect(envBool("REDIS_ENABLED", &s.Redis.Enabled))
	collect(envInt("REDIS_DB", &s.Redis.DB))
	collect(envFloat("RATE_LIMIT_RPS", &s.HTTP.RateLimit))
	collect(envInt("RATE_LIMIT_BURST", &s.HTTP.RateBurst))

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Settings) Validate() error {
	if entity.ParseSessionEngine(s.Detection.Engine) == entity.SessionEngineUnknown {
		return fmt.Errorf("unknown face engine %q", s.Detection.Engine)
	}

	switch strings.ToLower(s.Snapshot.Format) {
	case utils.SnapshotFormatJPEG, "jpg", utils.SnapshotFormatPNG, utils.SnapshotFormatWebP:
	default:
		return fmt.Errorf("%w: %s", utils.ErrUnsupportedSnapshotFormat, s.Snapshot.Format)
	}

	if s.Snapshot.Quality < 1 || s.Snapshot.Quality > 100 {
		return fmt.Errorf("snapshot quality must be within 1..100, got %d", s.Snapshot.Quality)
	}
	if s.Detection.DebounceInterval <= 0 {
		return fmt.Errorf("debounce interval must be positive, got %s", s.Detection.DebounceInterval)
	}
	if s.Detection.Timeout <= 0 {
		return fmt.Errorf("detection timeout must be positive, got %s", s.Detection.Timeout)
	}
	if s.HTTP.AuthEnabled && s.HTTP.TokenSecret == "" {
		return fmt.Errorf("JWT_ACCESS_TOKEN_SECRET is required when auth is enabled")
	}

	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// envDuration accepts Go durations ("1500ms") or bare milliseconds ("1500").
func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

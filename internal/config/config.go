// Package config loads omara's settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/omara/internal/logging"
	"github.com/erazemk/omara/internal/store"
)

// Config is the complete server configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        logging.Config   `koanf:"log"`
	Store      StoreConfig      `koanf:"store"`
	Images     ImagesConfig     `koanf:"images"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Maps       MapsConfig       `koanf:"maps"`
	Calendar   CalendarConfig   `koanf:"calendar"`
	Auth       AuthConfig       `koanf:"auth"`
	CORS       CORSConfig       `koanf:"cors"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig selects the item backend. An empty Path uses the backend's
// default file under data/.
type StoreConfig struct {
	Backend    string `koanf:"backend"`
	Path       string `koanf:"path"`
	SchemaPath string `koanf:"schema_path"`
}

// ImagesConfig bounds uploads and says where ingested images are kept.
type ImagesConfig struct {
	Dir            string `koanf:"dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`
	MaxDimension   int    `koanf:"max_dimension"`
}

// ClassifierConfig points at a remote label service. Without a URL the
// built-in heuristic labels images.
type ClassifierConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// MapsConfig is the Places search client. Without an APIKey place lookups fail.
type MapsConfig struct {
	APIKey        string        `koanf:"api_key"`
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
}

// CalendarConfig is the service account used to schedule item events.
type CalendarConfig struct {
	CredentialsFile string        `koanf:"credentials_file"`
	CalendarID      string        `koanf:"calendar_id"`
	BaseURL         string        `koanf:"base_url"`
	Timeout         time.Duration `koanf:"timeout"`
}

// AuthConfig enables owner login when PasswordHash is set. An empty
// JWTSecret is generated and kept in the SQLite settings table, or per
// process for the JSON backend.
type AuthConfig struct {
	PasswordHash string        `koanf:"password_hash"`
	JWTSecret    string        `koanf:"jwt_secret"`
	TokenTTL     time.Duration `koanf:"token_ttl"`
}

// Enabled reports whether requests must carry a token.
func (a AuthConfig) Enabled() bool { return a.PasswordHash != "" }

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: logging.Config{Level: "info", Format: logging.FormatConsole},
		Store: StoreConfig{
			Backend: store.BackendJSON,
		},
		Images: ImagesConfig{
			Dir:            "data/images",
			MaxUploadBytes: 10 << 20,
			MaxDimension:   1024,
		},
		Classifier: ClassifierConfig{Timeout: 10 * time.Second},
		Maps: MapsConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 10,
		},
		Calendar: CalendarConfig{
			CalendarID: "primary",
			Timeout:    10 * time.Second,
		},
		Auth: AuthConfig{TokenTTL: 7 * 24 * time.Hour},
	}
}

// StorePath returns the configured store path or the backend's default.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == store.BackendSQLite {
		return "data/omara.sqlite3"
	}
	return "data/wardrobe.json"
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Backend {
	case store.BackendJSON, store.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", store.BackendJSON, store.BackendSQLite, c.Store.Backend))
	}
	if c.Images.Dir == "" {
		errs = append(errs, errors.New("images.dir is required"))
	}
	if c.Images.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("images.max_upload_bytes must be positive"))
	}
	if c.Images.MaxDimension <= 0 {
		errs = append(errs, errors.New("images.max_dimension must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"classifier.timeout": c.Classifier.Timeout,
		"maps.timeout":       c.Maps.Timeout,
		"calendar.timeout":   c.Calendar.Timeout,
		"auth.token_ttl":     c.Auth.TokenTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Maps.RatePerSecond < 0 {
		errs = append(errs, errors.New("maps.rate_per_second must not be negative"))
	}
	return errors.Join(errs...)
}

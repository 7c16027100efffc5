package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "OMARA_"
)

// LoadOptions select the sources read by Load.
type LoadOptions struct {
	// File is an optional YAML file. A missing file is an error only when
	// the path was given explicitly.
	File string
	// DotEnv is a .env file loaded into the environment first. Missing is fine.
	DotEnv string
	// Overrides are applied last, keyed like "server.addr".
	Overrides map[string]any
}

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. Overrides (command line flags)
//  2. Environment variables (OMARA_SERVER_ADDR -> server.addr)
//  3. YAML file
//  4. Default()
//
// GOOGLE_API_KEY and GOOGLE_CALENDAR_CREDENTIALS fill maps.api_key and
// calendar.credentials_file when those are still empty.
func Load(opts LoadOptions) (*Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", opts.DotEnv, err)
		}
	}

	k := koanf.New(".")

	if opts.File != "" {
		content, err := readConfigFile(opts.File)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", opts.File, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, val := range opts.Overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Maps.APIKey == "" {
		cfg.Maps.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.Calendar.CredentialsFile == "" {
		cfg.Calendar.CredentialsFile = os.Getenv("GOOGLE_CALENDAR_CREDENTIALS")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps OMARA_SECTION_FIELD_NAME to section.field_name. Variables
// without the prefix or without a field map to "", which koanf skips.
func envKey(s string) string {
	if !strings.HasPrefix(s, EnvPrefix) {
		return ""
	}
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok || section == "" || field == "" {
		return ""
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return content, nil
}

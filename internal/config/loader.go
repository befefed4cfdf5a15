package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey is the environment variable that overrides gateway.api_key.
const EnvAPIKey = "EPHIT_GATEWAY_API_KEY"

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// overrides, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays environment-sourced secrets onto cfg so that
// API keys never need to live in the config file.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.Gateway.APIKey = key
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.Server.ListenAddr); err != nil {
			errs = append(errs, fmt.Errorf("server.listen_addr %q is not a host:port address: %w", cfg.Server.ListenAddr, err))
		}
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Gateway
	if cfg.Gateway.APIKey == "" {
		errs = append(errs, fmt.Errorf("gateway.api_key is required (or set %s)", EnvAPIKey))
	}
	if cfg.Gateway.Timeout < 0 {
		errs = append(errs, fmt.Errorf("gateway.timeout %s must not be negative", cfg.Gateway.Timeout))
	}
	if cfg.Gateway.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("gateway.rate_limit %g must not be negative", cfg.Gateway.RateLimit))
	}
	if cfg.Gateway.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("gateway.rate_burst %d must not be negative", cfg.Gateway.RateBurst))
	}
	if cfg.Gateway.RateLimit > 0 && cfg.Gateway.RateBurst == 0 {
		errs = append(errs, errors.New("gateway.rate_burst is required when gateway.rate_limit is set"))
	}

	// Chat
	if cfg.Chat.TurnTimeout < 0 {
		errs = append(errs, fmt.Errorf("chat.turn_timeout %s must not be negative", cfg.Chat.TurnTimeout))
	}
	if cfg.Chat.MaxLinks < 0 {
		errs = append(errs, fmt.Errorf("chat.max_links %d must not be negative", cfg.Chat.MaxLinks))
	}

	// Quiz
	if cfg.Quiz.HistoryCap < 0 {
		errs = append(errs, fmt.Errorf("quiz.history_cap %d must not be negative", cfg.Quiz.HistoryCap))
	}
	if cfg.Quiz.RecommendCount < 0 {
		errs = append(errs, fmt.Errorf("quiz.recommend_count %d must not be negative", cfg.Quiz.RecommendCount))
	}

	return errors.Join(errs...)
}

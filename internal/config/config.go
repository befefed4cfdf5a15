// Package config provides the configuration schema, loader, and file watcher
// for the e-PHIT server.
package config

import "time"

// LogLevel controls log verbosity for the e-PHIT server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the e-PHIT server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gateway GatewayConfig `yaml:"gateway"`
	Catalog CatalogConfig `yaml:"catalog"`
	Chat    ChatConfig    `yaml:"chat"`
	Quiz    QuizConfig    `yaml:"quiz"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// GatewayConfig holds settings for the hosted AI gateway used by the chat.
type GatewayConfig struct {
	// APIKey authenticates against the gateway. The EPHIT_GATEWAY_API_KEY
	// environment variable overrides this value when set.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the gateway's default endpoint. Leave empty to use
	// the built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "google/gemini-2.5-flash").
	// Leave empty to use the built-in default.
	Model string `yaml:"model"`

	// Timeout caps a single streamed request end to end. Zero means the
	// client default.
	Timeout time.Duration `yaml:"timeout"`

	// RateLimit is the client-side request ceiling in requests per second.
	// Zero means the client default.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the burst size for RateLimit. Zero means the client
	// default.
	RateBurst int `yaml:"rate_burst"`
}

// CatalogConfig holds settings for the video catalog.
type CatalogConfig struct {
	// IndexPath points at a YAML index file. Leave empty to serve the
	// embedded catalog.
	IndexPath string `yaml:"index_path"`
}

// ChatConfig holds per-session chat behaviour.
type ChatConfig struct {
	// TurnTimeout caps how long a single turn may stream before it is
	// settled with an apology. Zero disables the cap.
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// MaxLinks caps the number of videos linked under one assistant
	// message. Zero means the built-in default.
	MaxLinks int `yaml:"max_links"`
}

// QuizConfig holds quiz flow settings.
type QuizConfig struct {
	// HistoryCap bounds how many completed quiz runs are retained per
	// connection. Zero means the built-in default.
	HistoryCap int `yaml:"history_cap"`

	// RecommendCount is how many videos a finished quiz suggests. Zero
	// means the built-in default.
	RecommendCount int `yaml:"recommend_count"`
}

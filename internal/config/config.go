// Package config provides configuration management for the linehaul daemon.
package config

import "time"

// Config holds all configuration options for the linehaul server and
// migrate commands.
type Config struct {
	// Table identifies the warehouse destination as
	// "projectId.datasetId.tableId". Required positional argument.
	Table string `json:"table"`

	// Network
	BindAddress string `json:"bind_address"`
	Port        int    `json:"port"`

	// Auth (front-end token, NOT the warehouse OAuth2 credentials)
	Token string `json:"-"` // sensitive, never logged

	// Codec / framing
	MaxLineSize int `json:"max_line_size"`
	RecvSize    int `json:"recv_size"`

	// Connection lifecycle
	CleanupTimeout time.Duration `json:"cleanup_timeout"`

	// Queueing
	QueuedEvents int `json:"queued_events"`

	// Batching
	BatchSize    int           `json:"batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout"`

	// Retry / backoff
	RetryMaxAttempts int           `json:"retry_max_attempts"`
	RetryMaxWait     time.Duration `json:"retry_max_wait"`
	RetryMultiplier  float64       `json:"retry_multiplier"`

	// Outbound API
	APITimeout        time.Duration `json:"api_timeout"`
	APIMaxConnections int           `json:"api_max_connections"`

	// Warehouse credentials (mutually exclusive; see internal/bigquery)
	CredentialsFile string `json:"credentials_file,omitempty"`
	CredentialsBlob string `json:"-"` // sensitive, never logged

	// DogStatsD metrics sink
	StatsdHost      string `json:"statsd_host"`
	StatsdPort      int    `json:"statsd_port"`
	StatsdNamespace string `json:"statsd_namespace"`

	// Optional secondary Prometheus surface
	MetricsAddr string `json:"metrics_addr"`

	// Observability
	Verbose   bool   `json:"verbose"`
	LogFormat string `json:"log_format"` // json, text
	LogLevel  string `json:"log_level"`  // debug, info, warn, error
}

// SensitiveFields lists the config fields masked when configuration is
// logged at startup, mirroring the original daemon's
// SENSITIVE = {"token"} convention (extended here to cover the warehouse
// credentials blob as well).
var SensitiveFields = map[string]bool{
	"token":            true,
	"credentials_blob": true,
}

// Default returns a Config populated with the same defaults as the
// original daemon's "server" command.
func Default() *Config {
	return &Config{
		BindAddress: "0.0.0.0",
		Port:        512,
		Token:       "",

		MaxLineSize: 16384,
		RecvSize:    8192,

		CleanupTimeout: 30 * time.Second,

		QueuedEvents: 10000,

		BatchSize:    500,
		BatchTimeout: 30 * time.Second,

		RetryMaxAttempts: 10,
		RetryMaxWait:     60 * time.Second,
		RetryMultiplier:  0.5,

		APITimeout:        30 * time.Second,
		APIMaxConnections: 30,

		StatsdHost:      "127.0.0.1",
		StatsdPort:      8125,
		StatsdNamespace: "linehaul.",

		MetricsAddr: "",

		Verbose:   false,
		LogFormat: "json",
		LogLevel:  "info",
	}
}

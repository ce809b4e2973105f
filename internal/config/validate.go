package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var tableRE = regexp.MustCompile(`^[\w-]+\.[\w-]+\.[\w-]+$`)

// Validate checks the configuration for errors and inconsistencies,
// uniformly rejecting any structurally invalid combination (see
// SPEC_FULL.md §C.4 on uniform unknown-key rejection).
// Returns nil if valid, or a combined error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Table == "" {
		errs = append(errs, ValidationError{Field: "table", Message: "TABLE is required (projectId.datasetId.tableId)"})
	} else if !tableRE.MatchString(cfg.Table) {
		errs = append(errs, ValidationError{Field: "table", Message: fmt.Sprintf("must look like projectId.datasetId.tableId (got %q)", cfg.Table)})
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, ValidationError{Field: "port", Message: "must be between 1 and 65535"})
	}

	if cfg.MaxLineSize <= 0 {
		errs = append(errs, ValidationError{Field: "max_line_size", Message: "must be positive"})
	}
	if cfg.RecvSize <= 0 {
		errs = append(errs, ValidationError{Field: "recv_size", Message: "must be positive"})
	}
	if cfg.RecvSize > cfg.MaxLineSize {
		errs = append(errs, ValidationError{Field: "recv_size", Message: "must not exceed max_line_size"})
	}

	if cfg.CleanupTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "cleanup_timeout", Message: "must be positive"})
	}

	if cfg.QueuedEvents <= 0 {
		errs = append(errs, ValidationError{Field: "queued_events", Message: "must be positive"})
	}

	if cfg.BatchSize <= 0 {
		errs = append(errs, ValidationError{Field: "batch_size", Message: "must be positive"})
	}
	if cfg.BatchTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "batch_timeout", Message: "must be positive"})
	}

	if cfg.RetryMaxAttempts <= 0 {
		errs = append(errs, ValidationError{Field: "retry_max_attempts", Message: "must be positive"})
	}
	if cfg.RetryMaxWait <= 0 {
		errs = append(errs, ValidationError{Field: "retry_max_wait", Message: "must be positive"})
	}
	if cfg.RetryMultiplier <= 0 {
		errs = append(errs, ValidationError{Field: "retry_multiplier", Message: "must be positive"})
	}

	if cfg.APITimeout <= 0 {
		errs = append(errs, ValidationError{Field: "api_timeout", Message: "must be positive"})
	}
	if cfg.APIMaxConnections <= 0 {
		errs = append(errs, ValidationError{Field: "api_max_connections", Message: "must be at least 1"})
	}

	if cfg.CredentialsFile != "" && cfg.CredentialsBlob != "" {
		errs = append(errs, ValidationError{Field: "credentials", Message: "-credentials-file and -credentials-blob are mutually exclusive"})
	}
	if cfg.CredentialsFile == "" && cfg.CredentialsBlob == "" {
		errs = append(errs, ValidationError{Field: "credentials", Message: "one of -credentials-file or -credentials-blob is required"})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.LogFormat)] {
		errs = append(errs, ValidationError{Field: "log_format", Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat)})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{Field: "log_level", Message: fmt.Sprintf("must be debug, info, warn, or error (got %q)", cfg.LogLevel)})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Redact returns a copy of cfg's loggable fields with SensitiveFields
// masked, for startup logging.
func Redact(cfg *Config) map[string]any {
	return map[string]any{
		"table":               cfg.Table,
		"bind_address":        cfg.BindAddress,
		"port":                cfg.Port,
		"token":               maskIfSet(cfg.Token),
		"max_line_size":       cfg.MaxLineSize,
		"recv_size":           cfg.RecvSize,
		"cleanup_timeout":     cfg.CleanupTimeout,
		"queued_events":       cfg.QueuedEvents,
		"batch_size":          cfg.BatchSize,
		"batch_timeout":       cfg.BatchTimeout,
		"retry_max_attempts":  cfg.RetryMaxAttempts,
		"retry_max_wait":      cfg.RetryMaxWait,
		"retry_multiplier":    cfg.RetryMultiplier,
		"api_timeout":         cfg.APITimeout,
		"api_max_connections": cfg.APIMaxConnections,
		"credentials_file":    cfg.CredentialsFile,
		"credentials_blob":    maskIfSet(cfg.CredentialsBlob),
		"statsd_host":         cfg.StatsdHost,
		"statsd_port":         cfg.StatsdPort,
		"metrics_addr":        cfg.MetricsAddr,
		"log_format":          cfg.LogFormat,
		"log_level":           cfg.LogLevel,
	}
}

func maskIfSet(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

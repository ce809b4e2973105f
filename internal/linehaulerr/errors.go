// Package linehaulerr classifies the error kinds the ingestion pipeline
// can produce, per the error handling design: each kind carries its own
// disposition, and no error recovered inside one component is allowed to
// tear down a sibling component.
package linehaulerr

import "fmt"

// LineTooLong is raised by the codec when a connection's accumulated
// buffer reaches MaxLineSize without a newline. The connection is closed;
// no partial line is forwarded.
type LineTooLong struct {
	Limit int
}

func (e *LineTooLong) Error() string {
	return fmt.Sprintf("line exceeds max_line_size of %d bytes", e.Limit)
}

// ShutdownTimeout is raised when a connection handler's cleanup_timeout
// elapses while draining outstanding enqueue operations.
type ShutdownTimeout struct {
	Timeout string
}

func (e *ShutdownTimeout) Error() string {
	return fmt.Sprintf("connection drain exceeded cleanup_timeout (%s)", e.Timeout)
}

// TokenRefreshError wraps a failed OAuth2 token exchange. It is always
// classified as retryable by the shipper's delivery loop.
type TokenRefreshError struct {
	Err error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// TransientAPIError covers 429, 5xx, and network/timeout responses from
// the warehouse API. The shipper retries these per the backoff schedule.
type TransientAPIError struct {
	StatusCode int
	Err        error
}

func (e *TransientAPIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient warehouse error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient warehouse error (status %d)", e.StatusCode)
}

func (e *TransientAPIError) Unwrap() error { return e.Err }

// PermanentAPIError covers any 4xx response other than 401/403/429. The
// batch is dropped and the error logged; retrying cannot help.
type PermanentAPIError struct {
	StatusCode int
	Body       string
}

func (e *PermanentAPIError) Error() string {
	return fmt.Sprintf("permanent warehouse error (status %d): %s", e.StatusCode, e.Body)
}

// AuthTokenRejected is raised when the warehouse API responds 401 or 403
// to an otherwise well-formed request. The shipper invalidates its cached
// token and retries immediately, without counting against retry_max_attempts.
type AuthTokenRejected struct {
	StatusCode int
}

func (e *AuthTokenRejected) Error() string {
	return fmt.Sprintf("warehouse rejected bearer token (status %d)", e.StatusCode)
}

// ConfigError is fatal at startup.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("configuration error: %v", e.Err) }

func (e *ConfigError) Unwrap() error { return e.Err }

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by resolvers when no row matches an event reference.
// It marks a skippable event, not a failure.
var ErrNotFound = errors.New("record not found")

// ErrStreamIdle is returned by an event stream when the wait window elapsed
// without a notification. Callers use it as the liveness-check trigger.
var ErrStreamIdle = errors.New("event stream idle")

// ConfigError reports required configuration that is missing at startup.
type ConfigError struct {
	Tenant  string
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tenant %s: missing required configuration: %s", e.Tenant, strings.Join(e.Missing, ", "))
}

// AuthError reports a rejected or failed client-credentials grant.
type AuthError struct {
	TenantID string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token grant for identity tenant %s failed: %v", e.TenantID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SendError reports a failed hand-off to the mail API: a non-202 response,
// or a rejection before the request was attempted. Body carries the raw
// response so operators can see provider-side rejections in the log.
type SendError struct {
	Status int
	Body   string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mail API send rejected: %v", e.Err)
	}
	return fmt.Sprintf("mail API returned %d: %s", e.Status, e.Body)
}

func (e *SendError) Unwrap() error { return e.Err }

// DecodeError reports a notification payload that could not be parsed.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode event payload: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// connErrorMarkers are the substrings that classify an error as a lost or
// unusable connection. Matching is case-insensitive.
var connErrorMarkers = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"conn closed",
	"conn busy",
	"connection lost",
	"broken pipe",
	"unexpected eof",
	"eof",
	"timeout",
	"timed out",
	"ssl",
	"tls",
	"terminating connection",
	"server closed",
	"no connection",
}

// IsConnectionError reports whether err indicates the database connection is
// gone and the worker should reconnect rather than resume in place.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range connErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

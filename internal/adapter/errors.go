package adapter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrUnauthorized is returned on 401 responses: the token is missing,
	// expired, or revoked. Recoverable by re-authenticating, never by
	// retrying the same request.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrVersionConflict is returned when the server rejects a conditional
	// vault write because another device moved the version forward. This is
	// a resolvable state, not a generic failure: the caller must fetch the
	// server copy and decide a resolution.
	ErrVersionConflict = errors.New("vault version conflict")

	// ErrNotFound is returned on 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrTransient wraps timeouts, connection failures and 5xx responses.
	// Operations failing with it stay queued and may be retried with
	// backoff.
	ErrTransient = errors.New("transient network failure")
)

// IsTransient reports whether err is a retryable network failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// mapHTTPError converts a non-2xx response into the matching sentinel.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrVersionConflict, body)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrTransient, code, body)
	default:
		return fmt.Errorf("http %d: %s", code, body)
	}
}

// mapTransportError wraps request-level failures (connection refused,
// timeout, DNS) as transient.
func mapTransportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
}

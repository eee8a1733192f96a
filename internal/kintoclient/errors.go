// Package kintoclient is a stateless-ish wrapper around the Kinto REST
// protocol: change-fetch, batch-write, and server-settings requests, plus
// backoff/deprecation signalling.
package kintoclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tonimelisma/kinto-sync/internal/syncresult"
)

// Sentinel errors for HTTP status code classification. Use errors.Is to
// check which class a returned error belongs to.
var (
	ErrBadRequest   = errors.New("kintoclient: bad request")
	ErrUnauthorized = errors.New("kintoclient: unauthorized")
	ErrForbidden    = errors.New("kintoclient: forbidden")
	ErrNotFound     = errors.New("kintoclient: not found")
	ErrConflict     = errors.New("kintoclient: precondition failed")
	ErrThrottled    = errors.New("kintoclient: throttled")
	ErrServerError  = errors.New("kintoclient: server error")
)

// HTTPError is any non-2xx/3xx response not otherwise interpreted. It
// carries the original response status and body for inspection.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Err        error // sentinel, for errors.Is()
}

// Error renders the server's errno as a human description when the body
// carries one, falling back to the raw body otherwise.
func (e *HTTPError) Error() string {
	var body syncresult.ErrorBody
	if err := json.Unmarshal(e.Body, &body); err == nil && body.Errno != 0 {
		body.StatusText = http.StatusText(e.StatusCode)
		desc := syncresult.Describe(body)

		if body.Message != "" {
			return fmt.Sprintf("kintoclient: HTTP %d %s: %s", e.StatusCode, desc, body.Message)
		}

		return fmt.Sprintf("kintoclient: HTTP %d %s", e.StatusCode, desc)
	}

	return fmt.Sprintf("kintoclient: HTTP %d: %s", e.StatusCode, string(e.Body))
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ProtocolError is a malformed server response (unparseable JSON, missing
// expected fields). It wraps the underlying parse error.
type ProtocolError struct {
	Context string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("kintoclient: protocol error (%s): %v", e.Context, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error. Returns nil
// for 2xx/3xx codes; a 4xx code without a sentinel of its own maps to
// ErrBadRequest.
func classifyStatus(code int) error {
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code >= http.StatusMultipleChoices && code < http.StatusBadRequest:
		return nil
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusPreconditionFailed:
		return ErrConflict
	case code == http.StatusTooManyRequests:
		return ErrThrottled
	case code >= http.StatusInternalServerError:
		return ErrServerError
	case code >= http.StatusBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}

// isRetryable reports whether a response with this status code should be
// retried by the HTTP loop. 404/412 inside a batch are handled explicitly
// by the batch demultiplexer, not retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

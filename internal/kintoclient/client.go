package kintoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tonimelisma/kinto-sync/internal/kintoevents"
)

// Retry tuning for transient transport and server failures.
const (
	maxRetries    = 5
	baseBackoff   = 1 * time.Second
	maxBackoff    = 60 * time.Second
	backoffFactor = 2.0
	jitterFrac    = 0.25
	userAgent     = "kinto-sync/0.1"
)

// TokenSource provides OAuth2/bearer tokens for Authorization headers.
// Satisfied by oauth2 token sources via the OAuth2TokenSource adapter.
type TokenSource interface {
	Token() (string, error)
}

// Client issues change-fetch, batch-write, and server-settings requests
// against a Kinto-style server, and tracks server-imposed backoff and
// deprecation notices.
type Client struct {
	endpoints *Endpoints
	http      *http.Client
	token     TokenSource
	listener  kintoevents.Listener
	logger    *slog.Logger
	sleepFunc func(ctx context.Context, d time.Duration) error

	mu             sync.Mutex
	backoffUntil   time.Time // zero if no backoff in effect
	cachedSettings Settings
	haveCached     bool
}

// New constructs a Client. baseURL must be non-empty and end in exactly
// "/v1"; any other version segment is rejected.
func New(baseURL string, httpClient *http.Client, token TokenSource, listener kintoevents.Listener, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("kintoclient: base URL must not be empty")
	}

	if !strings.HasSuffix(baseURL, "/"+supportedVersion) {
		return nil, fmt.Errorf("kintoclient: base URL %q must end in /%s", baseURL, supportedVersion)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if listener == nil {
		listener = kintoevents.NoopListener{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoints: newEndpoints(baseURL),
		http:      httpClient,
		token:     token,
		listener:  listener,
		logger:    logger,
		sleepFunc: sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the milliseconds remaining before the server-imposed
// backoff window clears (0 if none or elapsed).
func (c *Client) Backoff() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := time.Until(c.backoffUntil)
	if remaining <= 0 {
		return 0
	}

	return remaining.Milliseconds()
}

// doRequest executes an authenticated request with retry on transient
// transport/HTTP failures and inspects response headers for Backoff/Alert
// signals on every response.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, headers http.Header) (*http.Response, error) {
	url := path

	var attempt int

	for {
		resp, err := c.doOnce(ctx, method, url, body, headers)
		if err != nil {
			if attempt < maxRetries {
				if sleepErr := c.sleepFunc(ctx, c.calcBackoff(attempt)); sleepErr != nil {
					return nil, sleepErr
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("kintoclient: %s %s failed after %d retries: %w", method, path, maxRetries, err)
		}

		c.observeSignals(resp.Header)

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		if resp.StatusCode == http.StatusNotModified {
			return resp, nil
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			errBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			c.logger.Warn("kintoclient: retrying after HTTP error",
				"method", method, "path", path, "status", resp.StatusCode, "attempt", attempt+1, "body", string(errBody))

			if sleepErr := c.sleepFunc(ctx, c.calcBackoff(attempt)); sleepErr != nil {
				return nil, sleepErr
			}

			attempt++

			continue
		}

		return resp, nil
	}
}

func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, headers http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("kintoclient: creating request: %w", err)
	}

	if c.token != nil {
		tok, err := c.token.Token()
		if err != nil {
			return nil, fmt.Errorf("kintoclient: obtaining token: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+tok)
	}

	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	return c.http.Do(req)
}

// calcBackoff computes exponential backoff with jitter for attempt N.
func (c *Client) calcBackoff(attempt int) time.Duration {
	d := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if d > float64(maxBackoff) {
		d = float64(maxBackoff)
	}

	jitter := d * jitterFrac * (rand.Float64()*2 - 1)

	return time.Duration(d + jitter)
}

// observeSignals inspects the Backoff and Alert response headers and
// notifies the listener.
func (c *Client) observeSignals(h http.Header) {
	if v := h.Get("Backoff"); v != "" {
		secs, err := strconv.Atoi(v)
		if err == nil {
			c.setBackoff(secs)
		}
	}

	if v := h.Get("Alert"); v != "" {
		var notice kintoevents.DeprecationNotice
		if err := json.Unmarshal([]byte(v), &notice); err != nil {
			c.logger.Warn("kintoclient: malformed Alert header, ignoring", "error", err)
		} else {
			c.listener.OnDeprecated(notice)
		}
	}
}

func (c *Client) setBackoff(seconds int) {
	c.mu.Lock()

	if seconds <= 0 {
		c.backoffUntil = time.Time{}
	} else {
		c.backoffUntil = time.Now().Add(time.Duration(seconds) * time.Second)
	}

	release := c.backoffUntil
	c.mu.Unlock()

	releaseMillis := int64(0)
	if !release.IsZero() {
		releaseMillis = release.UnixMilli()
	}

	c.listener.OnBackoff(releaseMillis)
}

package kintoclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Settings is the server-settings payload, the "settings" object of the
// root endpoint. Kept as an open map since the server may expose settings
// this client has no fixed notion of.
type Settings map[string]any

// BatchMaxRequests returns the server's cliquet.batch_max_requests setting,
// if present, used to decide whether a batch needs chunking.
func (s Settings) BatchMaxRequests() (int, bool) {
	v, ok := s["cliquet.batch_max_requests"]
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

type settingsResponse struct {
	Settings Settings `json:"settings"`
}

// FetchServerSettings returns the server's settings, caching the first
// successful result for the lifetime of the Client.
func (c *Client) FetchServerSettings(ctx context.Context) (Settings, error) {
	c.mu.Lock()
	if c.haveCached {
		cached := c.cachedSettings
		c.mu.Unlock()

		return cached, nil
	}
	c.mu.Unlock()

	resp, err := c.doRequest(ctx, "GET", c.endpoints.Root(true), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		body, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body, Err: err}
	}

	var parsed settingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProtocolError{Context: "decoding server settings", Err: err}
	}

	if parsed.Settings == nil {
		return nil, &ProtocolError{Context: "decoding server settings", Err: fmt.Errorf("missing settings field")}
	}

	c.mu.Lock()
	c.cachedSettings = parsed.Settings
	c.haveCached = true
	c.mu.Unlock()

	return parsed.Settings, nil
}

package kintoclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tonimelisma/kinto-sync/internal/cleaner"
	"github.com/tonimelisma/kinto-sync/internal/record"
	"github.com/tonimelisma/kinto-sync/internal/syncresult"
)

// BatchOpts configures Batch.
type BatchOpts struct {
	// Safe requests server-side preconditions (If-Match/If-None-Match) so
	// concurrent modifications are rejected with HTTP 412. server_wins
	// pushes pass false deliberately: they overwrite unconditionally.
	Safe    bool
	Headers http.Header
}

// BatchResult aggregates one batch call's demultiplexed responses.
type BatchResult struct {
	Errors    []syncresult.SubrequestError
	Published []record.Record // tombstone acknowledgements carry deleted: true
	Conflicts []syncresult.Conflict
	Skipped   []record.Record
}

type batchSubrequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    *batchBody        `json:"body,omitempty"`
}

type batchBody struct {
	Data record.Record `json:"data"`
}

type batchRequestBody struct {
	Defaults batchDefaults     `json:"defaults"`
	Requests []batchSubrequest `json:"requests"`
}

type batchDefaults struct {
	Headers map[string]string `json:"headers,omitempty"`
}

type batchResponseItem struct {
	Status  int               `json:"status"`
	Body    json.RawMessage   `json:"body"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

type batchResponse struct {
	Responses []batchResponseItem `json:"responses"`
}

// Batch sends the given records to the server as one (or several, if the
// server's batch_max_requests caps it) POST /batch call, and demultiplexes
// the per-record responses.
func (c *Client) Batch(ctx context.Context, bucket, name string, records []record.Record, opts BatchOpts) (*BatchResult, error) {
	if len(records) == 0 {
		return &BatchResult{}, nil
	}

	chunkSize := len(records)

	if settings, err := c.FetchServerSettings(ctx); err == nil {
		if max, ok := settings.BatchMaxRequests(); ok && max > 0 && max < len(records) {
			chunkSize = max
		}
	}

	result := &BatchResult{}

	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))

		chunkResult, err := c.batchOne(ctx, bucket, name, records[start:end], opts)
		if err != nil {
			return nil, err
		}

		result.Errors = append(result.Errors, chunkResult.Errors...)
		result.Published = append(result.Published, chunkResult.Published...)
		result.Conflicts = append(result.Conflicts, chunkResult.Conflicts...)
		result.Skipped = append(result.Skipped, chunkResult.Skipped...)
	}

	return result, nil
}

// batchOne sends a single POST /batch request for a chunk that fits within
// the server's batch_max_requests limit.
func (c *Client) batchOne(ctx context.Context, bucket, name string, records []record.Record, opts BatchOpts) (*BatchResult, error) {
	reqs := make([]batchSubrequest, len(records))
	for i, r := range records {
		reqs[i] = c.buildSubrequest(bucket, name, r, opts.Safe)
	}

	body := batchRequestBody{
		Defaults: batchDefaults{Headers: headerToMap(opts.Headers)},
		Requests: reqs,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ProtocolError{Context: "encoding batch request", Err: err}
	}

	resp, err := c.doRequest(ctx, "POST", c.endpoints.Batch(true), payload, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: errBody, Err: err}
	}

	var parsed batchResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil {
		return nil, &ProtocolError{Context: "decoding batch response", Err: decodeErr}
	}

	if len(parsed.Responses) != len(records) {
		return nil, &ProtocolError{Context: "batch response", Err: fmt.Errorf(
			"server returned %d responses for %d requests", len(parsed.Responses), len(records))}
	}

	return demux(records, parsed.Responses), nil
}

// buildSubrequest builds one batch subrequest for a record: DELETE for
// virtually-deleted records, PUT with a cleaned body otherwise. Under safe
// mode, preconditions are attached so the server rejects concurrent
// modifications with 412.
func (c *Client) buildSubrequest(bucket, name string, r record.Record, safe bool) batchSubrequest {
	path := c.endpoints.Record(false, bucket, name, r.ID())
	headers := map[string]string{}

	if safe {
		if lm, ok := r.LastModified(); ok {
			headers["If-Match"] = fmt.Sprintf("%q", fmt.Sprintf("%d", lm))
		} else {
			headers["If-None-Match"] = "*"
		}
	}

	if r.Status() == record.StatusDeleted {
		return batchSubrequest{Method: "DELETE", Path: path, Headers: headers}
	}

	return batchSubrequest{
		Method:  "PUT",
		Path:    path,
		Headers: headers,
		Body:    &batchBody{Data: cleaner.Clean(r)},
	}
}

// demux classifies each aligned (request, response) pair:
// 2xx/3xx -> published, 404 -> skipped, 412 -> conflicts, else -> errors.
// Positional indexing is the only correlation mechanism used, never URLs
// or ids.
func demux(sent []record.Record, responses []batchResponseItem) *BatchResult {
	result := &BatchResult{}

	for i, resp := range responses {
		switch {
		case resp.Status >= 200 && resp.Status < 400:
			var decoded struct {
				Data record.Record `json:"data"`
			}

			if err := json.Unmarshal(resp.Body, &decoded); err == nil && decoded.Data != nil {
				result.Published = append(result.Published, decoded.Data)
			}
		case resp.Status == http.StatusNotFound:
			result.Skipped = append(result.Skipped, sent[i])
		case resp.Status == http.StatusPreconditionFailed:
			var decoded struct {
				Details struct {
					Existing record.Record `json:"existing"`
				} `json:"details"`
			}

			_ = json.Unmarshal(resp.Body, &decoded)

			result.Conflicts = append(result.Conflicts, syncresult.Conflict{
				Type:   syncresult.ConflictOutgoing,
				Local:  sent[i],
				Remote: decoded.Details.Existing,
			})
		default:
			var body any
			_ = json.Unmarshal(resp.Body, &body)

			var errBody syncresult.ErrorBody
			_ = json.Unmarshal(resp.Body, &errBody)
			errBody.StatusText = http.StatusText(resp.Status)

			result.Errors = append(result.Errors, syncresult.SubrequestError{
				Path:        resp.Path,
				Sent:        sent[i],
				Error:       body,
				Description: syncresult.Describe(errBody),
			})
		}
	}

	return result
}

func headerToMap(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}

	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}

	return out
}

package collection

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/kinto-sync/internal/kintoclient"
	"github.com/tonimelisma/kinto-sync/internal/kintostore"
	"github.com/tonimelisma/kinto-sync/internal/record"
)

// fakeServer is a minimal Kinto server stand-in: a change feed that returns
// the given changes on every pull, and a batch endpoint that answers every
// subrequest with batchStatus (a 412 carries an existing record, any other
// status an acknowledged one).
func fakeServer(t *testing.T, changes []record.Record, batchStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"settings": map[string]any{}})
	})

	mux.HandleFunc("/v1/buckets/default/collections/articles/records", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": changes})
	})

	mux.HandleFunc("/v1/batch", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Requests []json.RawMessage `json:"requests"`
		}

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		responses := make([]map[string]any, len(body.Requests))
		for i := range responses {
			respBody := map[string]any{"data": map[string]any{"id": "pushed", "last_modified": 200}}
			if batchStatus == http.StatusPreconditionFailed {
				respBody = map[string]any{"details": map[string]any{"existing": map[string]any{"id": "conflicted", "last_modified": 999}}}
			}

			responses[i] = map[string]any{
				"status": batchStatus,
				"body":   respBody,
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"responses": responses})
	})

	return httptest.NewServer(mux)
}

func newSyncTestCollection(t *testing.T, srv *httptest.Server) *Collection {
	t.Helper()

	return newSyncTestCollectionWithStore(t, srv, kintostore.NewMemoryAdapter())
}

func newSyncTestCollectionWithStore(t *testing.T, srv *httptest.Server, store *kintostore.MemoryAdapter) *Collection {
	t.Helper()

	client, err := kintoclient.New(srv.URL+"/v1", srv.Client(), nil, nil, nil)
	require.NoError(t, err)

	return New(Config{
		Bucket: "default",
		Name:   "articles",
		Store:  store,
		Remote: client,
	})
}

func TestSync_PullsRemoteCreate(t *testing.T) {
	id := "22222222-2222-2222-2222-222222222222"

	srv := fakeServer(t, []record.Record{{"id": id, "last_modified": 100, "title": "hi"}}, 200)
	defer srv.Close()

	c := newSyncTestCollection(t, srv)

	result, err := c.Sync(t.Context(), SyncOpts{})
	require.NoError(t, err)
	assert.True(t, result.OK())
	require.Len(t, result.Created, 1)
	assert.Equal(t, record.StatusSynced, result.Created[0].Status())

	out, err := c.Get(t.Context(), id, GetOpts{})
	require.NoError(t, err)
	assert.Equal(t, record.StatusSynced, out.Data.Status())
}

func TestSync_PushesLocalCreate(t *testing.T) {
	srv := fakeServer(t, nil, 200)
	defer srv.Close()

	c := newSyncTestCollection(t, srv)

	_, err := c.Create(t.Context(), record.Record{"title": "local"}, CreateOpts{})
	require.NoError(t, err)

	result, err := c.Sync(t.Context(), SyncOpts{})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.NotEmpty(t, result.Published)
}

func TestSync_RefusesWhenBackoffActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Backoff", "30")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	client, err := kintoclient.New(srv.URL+"/v1", srv.Client(), nil, nil, nil)
	require.NoError(t, err)

	c := New(Config{Bucket: "default", Name: "articles", Store: kintostore.NewMemoryAdapter(), Remote: client})

	_, err = c.Sync(t.Context(), SyncOpts{})
	require.NoError(t, err) // first call observes the header, does not yet block

	_, err = c.Sync(t.Context(), SyncOpts{})
	require.Error(t, err)
	assert.IsType(t, &BackoffError{}, err)
}

func TestSync_IgnoreBackoffBypassesWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Backoff", "60")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	client, err := kintoclient.New(srv.URL+"/v1", srv.Client(), nil, nil, nil)
	require.NoError(t, err)

	c := New(Config{Bucket: "default", Name: "articles", Store: kintostore.NewMemoryAdapter(), Remote: client})

	_, err = c.Sync(t.Context(), SyncOpts{})
	require.NoError(t, err) // observes the Backoff header

	_, err = c.Sync(t.Context(), SyncOpts{})
	require.Error(t, err, "the window is now in effect")

	result, err := c.Sync(t.Context(), SyncOpts{IgnoreBackoff: true})
	require.NoError(t, err, "IgnoreBackoff must proceed despite the window")
	assert.True(t, result.OK())
}

func TestSync_NeverSyncedDeletionIsPurgedWithoutPush(t *testing.T) {
	srv := fakeServer(t, nil, 200)
	defer srv.Close()

	store := kintostore.NewMemoryAdapter()
	c := newSyncTestCollectionWithStore(t, srv, store)

	id := "33333333-3333-3333-3333-333333333333"

	_, err := store.Create(t.Context(), record.New(id).WithStatus(record.StatusDeleted))
	require.NoError(t, err)

	result, err := c.Sync(t.Context(), SyncOpts{})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, result.Published, "a never-synced deletion must not reach the server")

	got, err := store.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Nil(t, got, "the record should be purged locally during push")
}

func TestSync_OutgoingConflictManualIsSurfaced(t *testing.T) {
	srv := fakeServer(t, nil, http.StatusPreconditionFailed)
	defer srv.Close()

	c := newSyncTestCollection(t, srv)

	_, err := c.Create(t.Context(), record.Record{"title": "conflicted"}, CreateOpts{})
	require.NoError(t, err)

	result, err := c.Sync(t.Context(), SyncOpts{Strategy: StrategyManual})
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.NotEmpty(t, result.Conflicts)
}

// incomingConflictServer models a local update racing a concurrent
// remote update: the change feed reports record
// "11111111-1111-1111-1111-111111111111" at v:3/last_modified:150 to any
// pull not already at _since=150 (which gets an empty feed), and the batch
// endpoint (used only by the client_wins push) acknowledges whatever is sent.
func incomingConflictServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"settings": map[string]any{}})
	})

	mux.HandleFunc("/v1/buckets/default/collections/articles/records", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"150"`)

		if r.URL.Query().Get("_since") == "150" {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []record.Record{}})

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []record.Record{{"id": "11111111-1111-1111-1111-111111111111", "v": float64(3), "last_modified": 150}},
		})
	})

	mux.HandleFunc("/v1/batch", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Requests []json.RawMessage `json:"requests"`
		}

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		responses := make([]map[string]any, len(body.Requests))
		for i := range responses {
			responses[i] = map[string]any{
				"status": 200,
				"body":   map[string]any{"data": map[string]any{"id": "11111111-1111-1111-1111-111111111111", "v": float64(2), "last_modified": 150}},
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"responses": responses})
	})

	return httptest.NewServer(mux)
}

func seedDirtyRecord(t *testing.T, c *Collection) {
	t.Helper()

	_, err := c.Create(t.Context(), record.Record{"id": "11111111-1111-1111-1111-111111111111", "v": float64(1), "last_modified": int64(100)}, CreateOpts{Synced: true})
	require.NoError(t, err)

	_, err = c.Update(t.Context(), record.Record{"id": "11111111-1111-1111-1111-111111111111", "v": float64(2), "last_modified": int64(100)}, UpdateOpts{})
	require.NoError(t, err)
}

func TestSync_IncomingConflictManualIsSurfaced(t *testing.T) {
	srv := incomingConflictServer(t)
	defer srv.Close()

	c := newSyncTestCollection(t, srv)
	seedDirtyRecord(t, c)

	result, err := c.Sync(t.Context(), SyncOpts{Strategy: StrategyManual})
	require.NoError(t, err)
	assert.False(t, result.OK())
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "incoming", string(result.Conflicts[0].Type))

	out, err := c.Get(t.Context(), "11111111-1111-1111-1111-111111111111", GetOpts{})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out.Data["v"])
	assert.Equal(t, record.StatusUpdated, out.Data.Status())
}

func TestSync_IncomingConflictServerWins(t *testing.T) {
	srv := incomingConflictServer(t)
	defer srv.Close()

	c := newSyncTestCollection(t, srv)
	seedDirtyRecord(t, c)

	result, err := c.Sync(t.Context(), SyncOpts{Strategy: StrategyServerWins})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, result.Conflicts)
	require.Len(t, result.Resolved, 1)

	out, err := c.Get(t.Context(), "11111111-1111-1111-1111-111111111111", GetOpts{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), out.Data["v"])
	assert.Equal(t, record.StatusSynced, out.Data.Status())
}

func TestSync_IncomingConflictClientWins(t *testing.T) {
	srv := incomingConflictServer(t)
	defer srv.Close()

	c := newSyncTestCollection(t, srv)
	seedDirtyRecord(t, c)

	result, err := c.Sync(t.Context(), SyncOpts{Strategy: StrategyClientWins})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, result.Conflicts)
	assert.NotEmpty(t, result.Published)

	out, err := c.Get(t.Context(), "11111111-1111-1111-1111-111111111111", GetOpts{})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out.Data["v"])
	assert.Equal(t, record.StatusSynced, out.Data.Status())
}

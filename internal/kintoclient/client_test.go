package kintoclient

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/kinto-sync/internal/kintoevents"
)

func TestNew_RejectsEmptyBaseURL(t *testing.T) {
	_, err := New("", nil, nil, nil, nil)
	require.Error(t, err)
}

func TestNew_RejectsWrongVersion(t *testing.T) {
	_, err := New("https://example.org/v2", nil, nil, nil, nil)
	require.Error(t, err)
}

func TestNew_AcceptsV1BaseURL(t *testing.T) {
	c, err := New("https://example.org/v1", nil, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestEndpoints_FullURLVsRelative(t *testing.T) {
	e := newEndpoints("https://example.org/v1")

	assert.Equal(t, "https://example.org/v1/buckets/default/collections/articles/records", e.Records(true, "default", "articles"))
	assert.Equal(t, "/v1/buckets/default/collections/articles/records", e.Records(false, "default", "articles"))
	assert.Equal(t, "https://example.org/v1/batch", e.Batch(true))
	assert.Equal(t, "https://example.org/v1/", e.Root(true))
}

func TestClient_BackoffSignalling(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Backoff", "60")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"settings": {}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/v1", srv.Client(), nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), c.Backoff())

	_, err = c.FetchServerSettings(t.Context())
	require.NoError(t, err)

	assert.Greater(t, c.Backoff(), int64(0))
	assert.Equal(t, 1, calls)
}

func TestClient_BackoffZeroClears(t *testing.T) {
	c, err := New("https://example.org/v1", nil, nil, nil, nil)
	require.NoError(t, err)

	c.setBackoff(60)
	assert.Greater(t, c.Backoff(), int64(0))

	c.setBackoff(0)
	assert.Equal(t, int64(0), c.Backoff())
}

func TestClient_DeprecationAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alert", `{"message":"upgrade soon","url":"https://example.org/upgrade"}`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"settings": {}}`))
	}))
	defer srv.Close()

	listener := &recordingListener{}

	c, err := New(srv.URL+"/v1", srv.Client(), nil, listener, nil)
	require.NoError(t, err)

	_, err = c.FetchServerSettings(t.Context())
	require.NoError(t, err)

	require.Len(t, listener.notices, 1)
	assert.Equal(t, "upgrade soon", listener.notices[0].Message)
}

type recordingListener struct {
	backoffs []int64
	notices  []kintoevents.DeprecationNotice
}

func (r *recordingListener) OnBackoff(ms int64) {
	r.backoffs = append(r.backoffs, ms)
}

func (r *recordingListener) OnDeprecated(n kintoevents.DeprecationNotice) {
	r.notices = append(r.notices, n)
}

func TestHTTPError_DescribesKnownErrno(t *testing.T) {
	withErrno := &HTTPError{StatusCode: 403, Body: []byte(`{"errno":121,"message":"not yours"}`)}
	assert.Equal(t, "kintoclient: HTTP 403 Forbidden: not yours", withErrno.Error())

	unknownErrno := &HTTPError{StatusCode: 418, Body: []byte(`{"errno":9999}`)}
	assert.Equal(t, "kintoclient: HTTP 418 I'm a teapot", unknownErrno.Error())

	noErrno := &HTTPError{StatusCode: 500, Body: []byte(`oops`)}
	assert.Equal(t, "kintoclient: HTTP 500: oops", noErrno.Error())
}

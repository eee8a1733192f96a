package kintoclient

import "fmt"

// supportedVersion is the only version segment a Client will accept in its
// base URL.
const supportedVersion = "v1"

// Endpoints builds the relative and absolute paths for every Kinto
// endpoint the core needs, rooted at a base URL ending in "/v1".
type Endpoints struct {
	baseURL string // e.g. "https://example.org/v1"
}

func newEndpoints(baseURL string) *Endpoints {
	return &Endpoints{baseURL: baseURL}
}

// path returns rel prefixed with the base URL when fullURL is true, or with
// just the version segment ("/v1") otherwise.
func (e *Endpoints) path(rel string, fullURL bool) string {
	if fullURL {
		return e.baseURL + rel
	}

	return "/" + supportedVersion + rel
}

// Root is the server settings endpoint.
func (e *Endpoints) Root(fullURL bool) string {
	return e.path("/", fullURL)
}

// Batch is the batched-write endpoint.
func (e *Endpoints) Batch(fullURL bool) string {
	return e.path("/batch", fullURL)
}

// Bucket is a bucket's own endpoint.
func (e *Endpoints) Bucket(fullURL bool, bucket string) string {
	return e.path(fmt.Sprintf("/buckets/%s", bucket), fullURL)
}

// Collection is a collection's own endpoint.
func (e *Endpoints) Collection(fullURL bool, bucket, name string) string {
	return e.path(fmt.Sprintf("/buckets/%s/collections/%s", bucket, name), fullURL)
}

// Records is a collection's change-feed / batch-write records endpoint.
func (e *Endpoints) Records(fullURL bool, bucket, name string) string {
	return e.path(fmt.Sprintf("/buckets/%s/collections/%s/records", bucket, name), fullURL)
}

// Record is a single record's endpoint.
func (e *Endpoints) Record(fullURL bool, bucket, name, id string) string {
	return e.path(fmt.Sprintf("/buckets/%s/collections/%s/records/%s", bucket, name, id), fullURL)
}

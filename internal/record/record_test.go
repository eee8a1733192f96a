package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_StatusAndLastModified(t *testing.T) {
	r := New("a").WithStatus(StatusCreated)
	assert.Equal(t, "a", r.ID())
	assert.Equal(t, StatusCreated, r.Status())

	_, ok := r.LastModified()
	assert.False(t, ok, "created record should have no last_modified")

	r2 := r.WithStatus(StatusSynced).WithLastModified(100)
	ts, ok := r2.LastModified()
	assert.True(t, ok)
	assert.Equal(t, int64(100), ts)

	// Original must be untouched (WithStatus/WithLastModified are copy-on-write).
	assert.Equal(t, StatusCreated, r.Status())
}

func TestRecord_LastModified_AcceptsJSONFloat(t *testing.T) {
	r := Record{FieldID: "a", FieldLastModified: float64(150)}

	ts, ok := r.LastModified()
	assert.True(t, ok)
	assert.Equal(t, int64(150), ts)
}

func TestRecord_IsDeleted(t *testing.T) {
	tomb := Record{FieldID: "a", FieldDeleted: true, FieldLastModified: int64(5)}
	assert.True(t, tomb.IsDeleted())

	plain := Record{FieldID: "a"}
	assert.False(t, plain.IsDeleted())
}

func TestRecord_Clone_IsIndependent(t *testing.T) {
	r := Record{FieldID: "a", "title": "hello"}
	c := r.Clone()
	c["title"] = "changed"

	assert.Equal(t, "hello", r["title"])
	assert.Equal(t, "changed", c["title"])
}

func TestRecord_Equal(t *testing.T) {
	a := Record{FieldID: "a", "v": 1, "nested": map[string]any{"x": 1.0}}
	b := Record{FieldID: "a", "v": 1.0, "nested": map[string]any{"x": 1}}
	assert.True(t, a.Equal(b), "numeric type differences across a JSON boundary must not break equality")

	c := Record{FieldID: "a", "v": 2}
	assert.False(t, a.Equal(c))

	d := Record{FieldID: "a"}
	assert.False(t, a.Equal(d), "different field counts must not be equal")
}

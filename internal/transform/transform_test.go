package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

// orderTransformer appends "encode:<name>" or "decode:<name>" to an "order"
// field, letting tests observe call order directly.
type orderTransformer struct {
	name string
}

func (o orderTransformer) Encode(_ context.Context, r record.Record) (record.Record, error) {
	out := r.Clone()

	order, _ := out["order"].([]string)
	out["order"] = append(append([]string{}, order...), "encode:"+o.name)

	return out, nil
}

func (o orderTransformer) Decode(_ context.Context, r record.Record) (record.Record, error) {
	out := r.Clone()

	order, _ := out["order"].([]string)
	out["order"] = append(append([]string{}, order...), "decode:"+o.name)

	return out, nil
}

func TestPipeline_EncodeRunsInRegistrationOrder(t *testing.T) {
	p := NewPipeline(orderTransformer{"first"}, orderTransformer{"second"})

	out, err := p.Encode(context.Background(), record.New("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"encode:first", "encode:second"}, out["order"])
}

func TestPipeline_DecodeRunsInReverseOrder(t *testing.T) {
	p := NewPipeline(orderTransformer{"first"}, orderTransformer{"second"})

	out, err := p.Decode(context.Background(), record.New("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"decode:second", "decode:first"}, out["order"])
}

func TestPipeline_DecodeBypassesDeletions(t *testing.T) {
	p := NewPipeline(orderTransformer{"first"})

	tomb := record.Record{record.FieldID: "a", record.FieldDeleted: true}
	out, err := p.Decode(context.Background(), tomb)
	require.NoError(t, err)
	assert.Nil(t, out["order"], "deletion payloads must bypass decoding entirely")
}

func TestPipeline_EmptyPipelineIsIdentity(t *testing.T) {
	p := NewPipeline()

	r := record.New("a")
	out, err := p.Encode(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

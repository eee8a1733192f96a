// Package transform implements the ordered transformer pipeline applied to
// records crossing the remote boundary.
package transform

import (
	"context"
	"fmt"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

// Transformer encodes a record leaving the collection for the remote, and
// decodes a record arriving from the remote. Implementations may perform
// I/O (encryption key lookups, schema remapping) so both directions take a
// context and can fail.
type Transformer interface {
	Encode(ctx context.Context, r record.Record) (record.Record, error)
	Decode(ctx context.Context, r record.Record) (record.Record, error)
}

// Pipeline is an ordered list of Transformers applied as a sequential async
// fold: each step's result is awaited before the next step starts.
//
// Encode runs the list in registration order (first registered runs
// first). Decode runs it in reverse, so the last transformer to touch a
// record on the way out is the first to see it on the way back in.
type Pipeline struct {
	steps []Transformer
}

// NewPipeline builds a Pipeline from steps, in registration order.
func NewPipeline(steps ...Transformer) *Pipeline {
	return &Pipeline{steps: steps}
}

// Encode runs every transformer's Encode in registration order.
func (p *Pipeline) Encode(ctx context.Context, r record.Record) (record.Record, error) {
	cur := r
	for i, t := range p.steps {
		next, err := t.Encode(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("transform: encode step %d: %w", i, err)
		}

		cur = next
	}

	return cur, nil
}

// Decode runs every transformer's Decode in reverse registration order.
// A deletion payload (record.FieldDeleted == true) bypasses decoding
// entirely and is returned unchanged.
func (p *Pipeline) Decode(ctx context.Context, r record.Record) (record.Record, error) {
	if r.IsDeleted() {
		return r, nil
	}

	cur := r
	for i := len(p.steps) - 1; i >= 0; i-- {
		next, err := p.steps[i].Decode(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("transform: decode step %d: %w", i, err)
		}

		cur = next
	}

	return cur, nil
}

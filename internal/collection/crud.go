package collection

import (
	"context"
	"fmt"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

// Create inserts a new local record.
//
// id is required iff synced or useRecordId; it is rejected if both are
// absent and an id is present anyway, or if required but missing.
func (c *Collection) Create(ctx context.Context, r record.Record, opts CreateOpts) (Outcome, error) {
	id := r.ID()
	required := opts.Synced || opts.UseRecordID

	if required && id == "" {
		return Outcome{}, &ValidationError{Reason: "id is required when synced or useRecordId is set"}
	}

	if !required && id != "" {
		return Outcome{}, &ValidationError{Reason: "id must not be supplied unless synced or useRecordId is set"}
	}

	if id == "" {
		id = c.schema.Generate()
	} else if !c.schema.Validate(id) {
		return Outcome{}, &ValidationError{Reason: fmt.Sprintf("id %q does not validate against the identifier schema", id)}
	}

	status := record.StatusCreated
	if opts.Synced {
		status = record.StatusSynced
	}

	toStore := r.Clone()
	toStore[record.FieldID] = id
	toStore = toStore.WithStatus(status)

	stored, err := c.store.Create(ctx, toStore)
	if err != nil {
		return Outcome{}, err
	}

	return outcomeOf(stored), nil
}

// Update overwrites an existing local record. The record
// must already exist; update does not create.
func (c *Collection) Update(ctx context.Context, r record.Record, opts UpdateOpts) (Outcome, error) {
	id := r.ID()
	if id == "" {
		return Outcome{}, &ValidationError{Reason: "id is required for update"}
	}

	if !c.schema.Validate(id) {
		return Outcome{}, &ValidationError{Reason: fmt.Sprintf("id %q does not validate against the identifier schema", id)}
	}

	existing, err := c.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	if existing == nil {
		return Outcome{}, &RecordNotFoundError{ID: id}
	}

	status := record.StatusUpdated

	switch {
	case r.Status() == record.StatusDeleted:
		status = record.StatusDeleted
	case opts.Synced:
		status = record.StatusSynced
	}

	updated := r.WithStatus(status)

	stored, err := c.store.Update(ctx, updated)
	if err != nil {
		return Outcome{}, err
	}

	return outcomeOf(stored), nil
}

// Get returns a single local record. Fails with
// RecordNotFoundError if the record is absent, or is virtually deleted and
// includeDeleted is false.
func (c *Collection) Get(ctx context.Context, id string, opts GetOpts) (Outcome, error) {
	if !c.schema.Validate(id) {
		return Outcome{}, &ValidationError{Reason: fmt.Sprintf("id %q does not validate against the identifier schema", id)}
	}

	r, err := c.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	if r == nil {
		return Outcome{}, &RecordNotFoundError{ID: id}
	}

	if r.Status() == record.StatusDeleted && !opts.IncludeDeleted {
		return Outcome{}, &RecordNotFoundError{ID: id}
	}

	return outcomeOf(r), nil
}

// Delete removes a local record. Under virtual deletion (the default), a
// record that already had a last_modified is retained with _status =
// deleted until the server acknowledges the deletion; a record that never
// synced is hard-deleted immediately. Deleting an
// already-virtually-deleted record resolves idempotently.
func (c *Collection) Delete(ctx context.Context, id string, opts DeleteOpts) (Outcome, error) {
	if !c.schema.Validate(id) {
		return Outcome{}, &ValidationError{Reason: fmt.Sprintf("id %q does not validate against the identifier schema", id)}
	}

	existing, err := c.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	if existing == nil {
		return Outcome{}, &RecordNotFoundError{ID: id}
	}

	if !opts.Virtual {
		if _, err := c.store.Delete(ctx, id); err != nil {
			return Outcome{}, err
		}

		return outcomeOf(record.New(id)), nil
	}

	if existing.Status() == record.StatusDeleted {
		return outcomeOf(record.New(id)), nil
	}

	if _, hasLM := existing.LastModified(); !hasLM {
		if _, err := c.store.Delete(ctx, id); err != nil {
			return Outcome{}, err
		}

		return outcomeOf(record.New(id)), nil
	}

	deleted := existing.WithStatus(record.StatusDeleted)

	stored, err := c.store.Update(ctx, deleted)
	if err != nil {
		return Outcome{}, err
	}

	return outcomeOf(stored), nil
}

// List returns local records matching filters/order, excluding virtually
// deleted records unless includeDeleted is set.
func (c *Collection) List(ctx context.Context, opts ListOpts) ([]record.Record, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]record.Record, 0, len(all))

	for _, r := range all {
		if r.Status() == record.StatusDeleted && !opts.IncludeDeleted {
			continue
		}

		if matchesFilters(r, opts.Filters) {
			out = append(out, r)
		}
	}

	sortByOrder(out, opts.Order)

	return out, nil
}

func matchesFilters(r record.Record, filters map[string]any) bool {
	for field, want := range filters {
		got, ok := r[field]
		if !ok || !fieldEquals(got, want) {
			return false
		}
	}

	return true
}

func fieldEquals(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

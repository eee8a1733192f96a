package collection

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/kinto-sync/internal/kintoclient"
	"github.com/tonimelisma/kinto-sync/internal/record"
	"github.com/tonimelisma/kinto-sync/internal/syncresult"
)

// pushChanges gathers locally dirty records and dispatches them as one
// batch, purging never-synced virtual deletions locally in parallel with
// the batch request. It is a no-op when the result already carries
// conflicts or errors, and returns whether any record was actually
// published, so Sync knows whether a second pull is owed.
func (c *Collection) pushChanges(ctx context.Context, result *syncresult.Result, opts SyncOpts) (bool, error) {
	if !result.OK() {
		return false, nil
	}

	toDelete, toSync, err := c.gatherLocalChanges(ctx)
	if err != nil {
		return false, err
	}

	encoded := make([]record.Record, len(toSync))

	for i, r := range toSync {
		if r.Status() == record.StatusDeleted {
			encoded[i] = r

			continue
		}

		enc, err := c.pipeline.Encode(ctx, r)
		if err != nil {
			return false, err
		}

		encoded[i] = enc
	}

	// server_wins pushes overwrite unconditionally, and so does a
	// client_wins follow-up republish of already-resolved records; every
	// other push relies on If-Match/If-None-Match preconditions to
	// surface genuine conflicts.
	safe := opts.Strategy != StrategyServerWins && !opts.resolved

	var batchResult *kintoclient.BatchResult

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for _, id := range toDelete {
			if _, err := c.store.Delete(gctx, id); err != nil {
				return err
			}
		}

		return nil
	})

	group.Go(func() error {
		br, err := c.remote.Batch(gctx, c.bucket, c.name, encoded, kintoclient.BatchOpts{
			Safe:    safe,
			Headers: opts.Headers,
		})
		if err != nil {
			return err
		}

		batchResult = br

		return nil
	})

	if err := group.Wait(); err != nil {
		return false, err
	}

	published := false

	for _, item := range batchResult.Published {
		published = true

		if err := c.applyPublished(ctx, item); err != nil {
			return published, err
		}

		result.Published = append(result.Published, item)
	}

	for _, skipped := range batchResult.Skipped {
		if _, err := c.store.Delete(ctx, skipped.ID()); err != nil {
			return published, err
		}

		result.Skipped = append(result.Skipped, skipped)
	}

	result.Errors = append(result.Errors, batchResult.Errors...)

	retryPublished, err := c.handleOutgoingConflicts(ctx, result, opts, batchResult.Conflicts)
	if err != nil {
		return published, err
	}

	return published || retryPublished, nil
}

// gatherLocalChanges scans the local store (virtually deleted records
// included) and splits it into ids safe to hard-delete without server
// contact (virtually deleted and never synced) and records owed a batch
// subrequest.
func (c *Collection) gatherLocalChanges(ctx context.Context) ([]string, []record.Record, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		toDelete []string
		toSync   []record.Record
	)

	for _, r := range all {
		if r.Status() == record.StatusDeleted {
			if _, hasLM := r.LastModified(); !hasLM {
				toDelete = append(toDelete, r.ID())

				continue
			}
		}

		switch r.Status() {
		case record.StatusCreated, record.StatusUpdated, record.StatusDeleted:
			toSync = append(toSync, r)
		}
	}

	return toDelete, toSync, nil
}

// applyPublished marks a record acknowledged by the server as synced with
// the server-assigned last_modified, or hard-deletes it if the published
// item is a tombstone acknowledgement.
func (c *Collection) applyPublished(ctx context.Context, item record.Record) error {
	if item.IsDeleted() {
		_, err := c.store.Delete(ctx, item.ID())

		return err
	}

	decoded, err := c.pipeline.Decode(ctx, item)
	if err != nil {
		return err
	}

	_, err = c.store.Update(ctx, decoded.WithStatus(record.StatusSynced))

	return err
}

// handleOutgoingConflicts applies the configured strategy to the 412
// conflicts of one push batch. Under client_wins every conflict is
// resolved first (local body kept, last_modified forced to the remote's)
// and then a single follow-up push republishes them; opts.resolved
// bounds that to at most one extra round.
func (c *Collection) handleOutgoingConflicts(ctx context.Context, result *syncresult.Result, opts SyncOpts, conflicts []syncresult.Conflict) (bool, error) {
	if len(conflicts) == 0 {
		return false, nil
	}

	switch opts.Strategy {
	case StrategyServerWins:
		for _, conflict := range conflicts {
			// A 412 without an existing body means the record is gone on
			// the server; taking the server's side means dropping it.
			if conflict.Remote == nil {
				if _, err := c.store.Delete(ctx, conflict.Local.ID()); err != nil {
					return false, err
				}

				result.Resolved = append(result.Resolved, record.Record{
					record.FieldID:      conflict.Local.ID(),
					record.FieldDeleted: true,
				})

				continue
			}

			decoded, err := c.pipeline.Decode(ctx, conflict.Remote)
			if err != nil {
				return false, err
			}

			resolved := decoded.WithStatus(record.StatusSynced)

			if _, err := c.store.Update(ctx, resolved); err != nil {
				return false, err
			}

			result.Resolved = append(result.Resolved, resolved)
		}

		return false, nil

	case StrategyClientWins:
		if opts.resolved {
			result.Conflicts = append(result.Conflicts, conflicts...)

			return false, nil
		}

		for _, conflict := range conflicts {
			lm, _ := conflict.Remote.LastModified()
			retry := conflict.Local.WithLastModified(lm)

			if _, err := c.store.Update(ctx, retry); err != nil {
				return false, err
			}

			result.Resolved = append(result.Resolved, retry)
		}

		retryOpts := opts
		retryOpts.resolved = true

		return c.pushChanges(ctx, result, retryOpts)

	default: // StrategyManual
		result.Conflicts = append(result.Conflicts, conflicts...)

		return false, nil
	}
}

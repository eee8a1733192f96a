package collection

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/kinto-sync/internal/cleaner"
	"github.com/tonimelisma/kinto-sync/internal/kintoclient"
	"github.com/tonimelisma/kinto-sync/internal/record"
	"github.com/tonimelisma/kinto-sync/internal/syncresult"
)

// pullChanges fetches the change feed since the collection's known
// lastModified, imports each change into the local store, and folds the
// outcomes into result. It is a no-op when the
// result already carries conflicts or errors.
func (c *Collection) pullChanges(ctx context.Context, result *syncresult.Result, opts SyncOpts) error {
	if !result.OK() {
		return nil
	}

	lastModified, err := c.store.GetLastModified(ctx)
	if err != nil {
		return err
	}

	changes, err := c.remote.FetchChangesSince(ctx, c.bucket, c.name, kintoclient.ChangesOpts{
		LastModified: lastModified,
		Headers:      opts.Headers,
	})
	if err != nil {
		return err
	}

	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)

	for _, remoteRec := range changes.Changes {
		remoteRec := remoteRec

		group.Go(func() error {
			outcome, detail, err := c.importChange(gctx, remoteRec, opts.Strategy)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			switch outcome {
			case importCreated:
				result.Created = append(result.Created, detail.stored)
			case importUpdated:
				result.Updated = append(result.Updated, detail.stored)
			case importDeleted:
				result.Deleted = append(result.Deleted, remoteRec)
			case importSkipped:
				result.Skipped = append(result.Skipped, remoteRec)
			case importResolved:
				result.Resolved = append(result.Resolved, detail.resolved)
			case importConflict:
				result.Conflicts = append(result.Conflicts, *detail.conflict)
			case importErrored:
				result.Errors = append(result.Errors, *detail.subError)
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	// The collection's persisted checkpoint only advances once this pull's
	// outcomes are folded in clean: an unresolved conflict or error means
	// the caller has not actually caught up to lastModified yet, and the
	// checkpoint must not move past it.
	if result.OK() {
		if _, err := c.store.SaveLastModified(ctx, &changes.LastModified); err != nil {
			return err
		}
	}

	return nil
}

type importOutcome int

const (
	importCreated importOutcome = iota
	importUpdated
	importDeleted
	importConflict
	importResolved
	importSkipped
	importErrored
	importNoop
)

// importDetail carries the extra payload an outcome needs beyond its tag:
// the locally stored representation for importCreated/importUpdated, the
// conflict entry for importConflict, the resolved record for
// importResolved, or the per-record error for importErrored.
type importDetail struct {
	stored   record.Record
	conflict *syncresult.Conflict
	resolved record.Record
	subError *syncresult.SubrequestError
}

// importChange reconciles one incoming change against local state.
func (c *Collection) importChange(ctx context.Context, remoteRec record.Record, strategy Strategy) (importOutcome, importDetail, error) {
	id := remoteRec.ID()

	local, err := c.store.Get(ctx, id)
	if err != nil {
		return importNoop, importDetail{}, err
	}

	isDeletion := remoteRec.IsDeleted()

	if local == nil {
		if isDeletion {
			return importSkipped, importDetail{}, nil
		}

		decoded, err := c.pipeline.Decode(ctx, remoteRec)
		if err != nil {
			return importNoop, importDetail{}, fmt.Errorf("collection: decoding incoming record %q: %w", id, err)
		}

		stored, err := c.store.Create(ctx, decoded.WithStatus(record.StatusSynced))
		if err != nil {
			return importErrored, importDetail{subError: &syncresult.SubrequestError{
				Sent:  remoteRec,
				Error: err.Error(),
			}}, nil
		}

		return importCreated, importDetail{stored: stored}, nil
	}

	if local.Status() != record.StatusSynced {
		if local.Status() == record.StatusDeleted {
			// A locally virtually-deleted record is already pending its
			// own deletion push; any remote change arriving first is
			// skipped rather than reconciled.
			return importSkipped, importDetail{}, nil
		}

		var remoteBody record.Record

		if isDeletion {
			remoteBody = remoteRec
		} else {
			decoded, err := c.pipeline.Decode(ctx, remoteRec)
			if err != nil {
				return importNoop, importDetail{}, fmt.Errorf("collection: decoding incoming record %q: %w", id, err)
			}

			remoteBody = decoded
		}

		if cleaner.Clean(local).Equal(cleaner.Clean(remoteBody)) {
			stored, err := c.store.Update(ctx, remoteBody.WithStatus(record.StatusSynced))
			if err != nil {
				return importNoop, importDetail{}, err
			}

			return importUpdated, importDetail{stored: stored}, nil
		}

		return c.resolveIncoming(ctx, local, remoteBody, isDeletion, strategy)
	}

	if isDeletion {
		if _, err := c.store.Delete(ctx, id); err != nil {
			return importNoop, importDetail{}, err
		}

		return importDeleted, importDetail{}, nil
	}

	decoded, err := c.pipeline.Decode(ctx, remoteRec)
	if err != nil {
		return importNoop, importDetail{}, fmt.Errorf("collection: decoding incoming record %q: %w", id, err)
	}

	if cleaner.Clean(local).Equal(cleaner.Clean(decoded)) {
		return importNoop, importDetail{}, nil
	}

	stored, err := c.store.Update(ctx, decoded.WithStatus(record.StatusSynced))
	if err != nil {
		return importNoop, importDetail{}, err
	}

	return importUpdated, importDetail{stored: stored}, nil
}

// resolveIncoming handles a genuine incoming conflict (remote edit landing
// on a locally dirty record whose body actually differs) per the
// collection's configured strategy. manual surfaces the conflict for the
// caller; client_wins and server_wins apply the resolution immediately and
// report the outcome as resolved, not as a raw conflict.
func (c *Collection) resolveIncoming(ctx context.Context, local, remote record.Record, isDeletion bool, strategy Strategy) (importOutcome, importDetail, error) {
	switch strategy {
	case StrategyServerWins:
		if isDeletion {
			if _, err := c.store.Delete(ctx, local.ID()); err != nil {
				return importNoop, importDetail{}, err
			}

			return importResolved, importDetail{resolved: remote}, nil
		}

		resolved := remote.WithStatus(record.StatusSynced)

		if _, err := c.store.Update(ctx, resolved); err != nil {
			return importNoop, importDetail{}, err
		}

		return importResolved, importDetail{resolved: resolved}, nil

	case StrategyClientWins:
		// The local body is kept but last_modified is forced to the
		// remote's value, so the record's eventual push batches its
		// precondition against the server's current ETag.
		lm, _ := remote.LastModified()
		resolved := local.WithLastModified(lm)

		if _, err := c.store.Update(ctx, resolved); err != nil {
			return importNoop, importDetail{}, err
		}

		return importResolved, importDetail{resolved: resolved}, nil

	default: // StrategyManual
		return importConflict, importDetail{conflict: &syncresult.Conflict{
			Type:   syncresult.ConflictIncoming,
			Local:  local,
			Remote: remote,
		}}, nil
	}
}

package collection

import (
	"context"
	"fmt"

	"github.com/tonimelisma/kinto-sync/internal/syncresult"
)

// Sync runs one pull-then-push-then-pull cycle. It refuses
// outright if the server has signalled a backoff window still in effect,
// unless opts.IgnoreBackoff is set.
func (c *Collection) Sync(ctx context.Context, opts SyncOpts) (*syncresult.Result, error) {
	if c.remote == nil {
		return nil, fmt.Errorf("collection: sync requires a remote client")
	}

	if opts.Strategy == "" {
		opts.Strategy = StrategyManual
	}

	if !opts.IgnoreBackoff {
		if remaining := c.remote.Backoff(); remaining > 0 {
			return nil, &BackoffError{RemainingSeconds: remaining / 1000}
		}
	}

	lastModified, err := c.store.GetLastModified(ctx)
	if err != nil {
		return nil, err
	}

	result := syncresult.New(lastModified)

	if err := c.pullChanges(ctx, result, opts); err != nil {
		return nil, err
	}

	pushed, err := c.pushChanges(ctx, result, opts)
	if err != nil {
		return nil, err
	}

	// A successful push may have advanced the server's collection
	// timestamp past what the first pull observed; a second pull folds
	// that back in before Sync returns.
	if pushed {
		if err := c.pullChanges(ctx, result, opts); err != nil {
			return nil, err
		}
	}

	lm, err := c.store.GetLastModified(ctx)
	if err != nil {
		return nil, err
	}

	result.LastModified = lm

	return result, nil
}

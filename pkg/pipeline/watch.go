package pipeline

import (
	"context"

	"github.com/matzehuels/kintree/pkg/store"
)

// Follow runs the pipeline once, then again after every store mutation,
// delivering each outcome to fn. Store ticks are coalesced, so a burst of
// writes produces one recomputation from the latest snapshot.
//
// A failed run still invokes fn; Result.Model holds the last good model
// when one exists. Follow returns when ctx is done.
func (r *Runner) Follow(ctx context.Context, st store.Store, opts Options, fn func(*Result, error)) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	run := func() {
		snap, err := st.Snapshot(ctx)
		if err != nil {
			fn(&Result{Model: r.LastGoodModel()}, err)
			return
		}
		fn(r.Execute(ctx, snap, opts))
	}

	// Subscribe before the initial run so a write landing between the
	// two still triggers a recomputation.
	changes := st.Watch(ctx)
	run()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
			run()
		}
	}
}

// Snapshot is a convenience wrapper that loads the store contents and
// runs the pipeline once.
func (r *Runner) Snapshot(ctx context.Context, st store.Store, opts Options) (*Result, error) {
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, snap, opts)
}

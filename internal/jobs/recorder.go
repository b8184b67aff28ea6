package jobs

import (
	"context"

	"github.com/mgpai22/sublens/internal/logging"
)

// Recorder writes job history on a best-effort basis. Bookkeeping errors are
// logged, never returned, and a Recorder without a store does nothing.
type Recorder struct {
	store  *Store
	logger *logging.Logger
}

func NewRecorder(store *Store, logger *logging.Logger) *Recorder {
	return &Recorder{store: store, logger: logging.OrNop(logger)}
}

// Start records a running job and returns its ID, "" when nothing was recorded.
func (r *Recorder) Start(ctx context.Context, sourcePath string, origin Origin, region string, interval float64) string {
	if r == nil || r.store == nil {
		return ""
	}
	job, err := r.store.Begin(ctx, sourcePath, origin, region, interval)
	if err != nil {
		r.logger.Warnw("failed to record job", "source", sourcePath, "error", err)
		return ""
	}
	return job.ID
}

// Finish marks the job succeeded, or failed when cause is non-nil.
func (r *Recorder) Finish(ctx context.Context, id string, outcome Outcome, cause error) {
	if r == nil || r.store == nil || id == "" {
		return
	}
	var err error
	if cause != nil {
		err = r.store.Fail(context.WithoutCancel(ctx), id, cause)
	} else {
		err = r.store.Complete(context.WithoutCancel(ctx), id, outcome)
	}
	if err != nil {
		r.logger.Warnw("failed to update job", "id", id, "error", err)
	}
}

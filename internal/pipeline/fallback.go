package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autopress/internal/logger"
)

// ErrStageFatal marks a failure in a load-bearing stage. The pipeline stops
// and the wrapped cause is surfaced verbatim on the job record.
var ErrStageFatal = errors.New("fatal stage failure")

// runStage executes one stage under its own deadline with panic containment.
// The returned error is the stage's own failure; the caller decides whether
// that is fatal or absorbed by a fallback.
func runStage(ctx context.Context, job *Job, stage Stage, timeout time.Duration) (err error) {
	stageCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage.Name(), r)
		}
	}()

	return stage.Run(stageCtx, job)
}

// absorb logs a non-fatal stage failure and applies its fallback, leaving the
// job in a state the remaining stages can work with.
func absorb(stage Stage, err error, fallback func()) {
	logger.Warn("stage failed, continuing with fallback", "stage", stage.Name(), "error", err.Error())
	if fallback != nil {
		fallback()
	}
}

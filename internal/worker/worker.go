package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/careslot/scheduling/internal/logger"
	"github.com/careslot/scheduling/internal/schedule"
)

// Worker runs the daily maintenance pass: expire availabilities whose end
// has passed, then advance every eligible availability's slot window. The
// engine's entry points are idempotent, so an extra or repeated run is
// harmless.
type Worker struct {
	service    *schedule.Service
	logger     *logger.Logger
	cron       *cron.Cron
	schedule   string
	runOnStart bool
}

// New creates the maintenance worker with a cron schedule expression
func New(service *schedule.Service, log *logger.Logger, cronSchedule string, runOnStart bool) *Worker {
	return &Worker{
		service:    service,
		logger:     log,
		cron:       cron.New(),
		schedule:   cronSchedule,
		runOnStart: runOnStart,
	}
}

// Start registers the cron entry and begins scheduling
func (w *Worker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedule, func() { w.runPass(ctx) }); err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Maintenance worker started", map[string]interface{}{
		"schedule": w.schedule,
	})

	if w.runOnStart {
		go w.runPass(ctx)
	}
	return nil
}

// Stop halts scheduling and waits for a running pass to finish
func (w *Worker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info("Maintenance worker stopped", nil)
}

func (w *Worker) runPass(ctx context.Context) {
	expired, err := w.service.ExpireDue(ctx)
	if err != nil {
		w.logger.Error("Expiry sweep failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	created, err := w.service.AdvanceDue(ctx)
	if err != nil {
		w.logger.Error("Advance pass failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.logger.Info("Maintenance pass completed", map[string]interface{}{
		"expired":       expired,
		"slots_created": created,
	})
}

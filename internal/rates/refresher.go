package rates

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher re-fetches the rate table on a cron schedule, mirroring the
// refresh the mobile app performs on resume.
type Refresher struct {
	manager *Manager
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewRefresher schedules a periodic FetchRates. schedule is a cron
// expression or descriptor such as "@every 1h".
func NewRefresher(manager *Manager, schedule string, logger *zap.Logger) (*Refresher, error) {
	r := &Refresher{
		manager: manager,
		cron:    cron.New(),
		logger:  logger,
	}

	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.manager.FetchRates(ctx)
		r.logger.Debug("exchange rates refreshed", zap.String("schedule", schedule))
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Start begins the refresh schedule.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

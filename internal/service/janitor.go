package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor periodically fails pending orders that never received a checkout
// session. Orders with a session are left for the gateway to settle.
type Janitor struct {
	orders       OrderStore
	log          *zap.Logger
	abandonAfter time.Duration
	cron         *cron.Cron
	now          func() time.Time
}

func NewJanitor(orders OrderStore, log *zap.Logger, abandonAfter time.Duration) *Janitor {
	return &Janitor{
		orders:       orders,
		log:          log,
		abandonAfter: abandonAfter,
		cron:         cron.New(),
		now:          time.Now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 10m".
func (j *Janitor) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := j.Sweep(ctx); err != nil {
			j.log.Error("abandoned order sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("order janitor started", zap.String("schedule", schedule), zap.Duration("abandon_after", j.abandonAfter))
	return nil
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.orders.FailAbandoned(ctx, j.now().Add(-j.abandonAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.log.Info("abandoned orders failed", zap.Int64("count", n))
	}
	return n, nil
}

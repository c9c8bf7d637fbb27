package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmacy_pos_backend/pkg/utils"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const defaultSweepTimeout = 2 * time.Minute

// Sweeper flips overdue active subscriptions to expired.
type Sweeper interface {
	SweepExpired(ctx context.Context) ([]int64, error)
}

// ExpirySweeper runs a Sweeper on a cron schedule.
type ExpirySweeper struct {
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

// NewExpirySweeper registers the sweep on schedule ("@every 1h", "0 * * * *", ...).
// An empty schedule or "off" yields a disabled sweeper whose Start and Stop do nothing.
func NewExpirySweeper(sweeper Sweeper, schedule string) (*ExpirySweeper, error) {
	s := &ExpirySweeper{
		sweeper:  sweeper,
		schedule: strings.TrimSpace(schedule),
		timeout:  defaultSweepTimeout,
	}
	if !s.Enabled() {
		return s, nil
	}

	cronLogger := cron.PrintfLogger(&log.Logger)
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	return s, nil
}

// Enabled reports whether a schedule was configured.
func (s *ExpirySweeper) Enabled() bool {
	return s.schedule != "" && !strings.EqualFold(s.schedule, "off")
}

// Start begins scheduling in the background.
func (s *ExpirySweeper) Start() {
	if s.cron == nil {
		utils.LogInfo("Subscription expiry sweeper disabled")
		return
	}
	s.cron.Start()
	utils.LogInfo("Subscription expiry sweeper started", map[string]interface{}{"schedule": s.schedule})
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to end.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		utils.LogInfo("Subscription expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for expiry sweep: %w", ctx.Err())
	}
}

// RunOnce performs a single sweep and returns how many subscriptions expired.
func (s *ExpirySweeper) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	ids, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		utils.LogError(err, "Subscription expiry sweep failed")
		return 0
	}
	utils.LogInfo("Subscription expiry sweep completed", map[string]interface{}{
		"expired":  len(ids),
		"duration": time.Since(start).String(),
	})
	return len(ids)
}

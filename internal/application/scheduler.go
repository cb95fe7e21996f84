package application

import (
	"context"
	"strings"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	"github.com/rs/zerolog"
)

// defaultTick is how often the scheduler checks for due connections. Actual
// run spacing comes from each connection's syncFrequencyMinutes and the
// retry schedule, not from the tick.
const defaultTick = 30 * time.Second

// SyncScheduler triggers periodic sync runs for every active connection.
// Failed runs are rescheduled on the retry delay table instead of the
// regular frequency; the per-integration run lock makes a scheduled trigger
// racing a manual one harmless.
type SyncScheduler struct {
	connections ports.ConnectionRepository
	sync        *SyncService
	logger      zerolog.Logger
	tick        time.Duration
	now         func() time.Time

	schedules map[string]*RetrySchedule
	nextDue   map[string]time.Time
}

// SchedulerOption customizes a SyncScheduler.
type SchedulerOption func(*SyncScheduler)

// WithTick overrides the scheduler polling interval.
func WithTick(tick time.Duration) SchedulerOption {
	return func(s *SyncScheduler) {
		s.tick = tick
	}
}

// WithSchedulerClock overrides the time source, used in tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *SyncScheduler) {
		s.now = now
	}
}

// NewSyncScheduler creates a new scheduler.
func NewSyncScheduler(
	connections ports.ConnectionRepository,
	sync *SyncService,
	logger zerolog.Logger,
	opts ...SchedulerOption,
) *SyncScheduler {
	s := &SyncScheduler{
		connections: connections,
		sync:        sync,
		logger:      logger,
		tick:        defaultTick,
		now:         time.Now,
		schedules:   make(map[string]*RetrySchedule),
		nextDue:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks, triggering due syncs every tick until the context is
// cancelled.
func (s *SyncScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue performs one scheduler pass: every active connection whose next-due
// time has passed gets a sync run, and its next-due time is recomputed from
// the outcome.
func (s *SyncScheduler) RunDue(ctx context.Context) {
	connections, err := s.connections.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list active connections")
		return
	}

	now := s.now()
	seen := make(map[string]struct{}, len(connections))
	for _, conn := range connections {
		seen[conn.ID] = struct{}{}

		if due, ok := s.nextDue[conn.ID]; ok && now.Before(due) {
			continue
		}
		s.runOne(ctx, conn)
	}

	// Drop state for connections that disappeared or were deactivated.
	for id := range s.nextDue {
		if _, ok := seen[id]; !ok {
			delete(s.nextDue, id)
			delete(s.schedules, id)
		}
	}
}

func (s *SyncScheduler) runOne(ctx context.Context, conn *domain.IntegrationConnection) {
	schedule, ok := s.schedules[conn.ID]
	if !ok {
		schedule = NewRetrySchedule()
		s.schedules[conn.ID] = schedule
	}

	result, err := s.sync.RunSync(ctx, conn.ID)

	attemptErr := err
	if attemptErr == nil && !result.Success {
		attemptErr = domain.TransientError("run_failed", strings.Join(result.Errors, "; "), nil)
	}
	schedule.Observe(attemptErr)

	now := s.now()
	if delay, retry := schedule.Next(); retry {
		s.nextDue[conn.ID] = now.Add(delay)
		s.logger.Info().
			Str("integrationID", conn.ID).
			Dur("retryIn", delay).
			Msg("Sync run failed, retry scheduled")
		return
	}

	s.nextDue[conn.ID] = now.Add(time.Duration(conn.Settings.SyncFrequencyMinutes) * time.Minute)
}

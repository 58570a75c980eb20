package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func parseCronSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, expr, err)
	}
	return schedule, nil
}

// newScheduler builds a cron scheduler whose entries push jobs through m.
// ctx is the manager's run context.
func (m *Manager) newScheduler(ctx context.Context) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cronParser))
	for _, sched := range m.schedules {
		schedule, err := parseCronSchedule(sched.schedule)
		if err != nil {
			return nil, err
		}
		c.Schedule(schedule, cron.FuncJob(func() {
			m.fireSchedule(ctx, sched)
		}))
	}
	return c, nil
}

// fireSchedule enqueues one run of a scheduled task.
func (m *Manager) fireSchedule(ctx context.Context, sched scheduleConfig) {
	id, err := m.queue.Push(ctx, sched.name, nil)
	if err != nil {
		m.logger.ErrorContext(ctx, "scheduled task enqueue failed",
			slog.String("task", sched.name),
			slog.String("schedule", sched.schedule),
			slog.Any("error", err),
		)
		return
	}
	m.logger.DebugContext(ctx, "scheduled task enqueued",
		slog.String("task", sched.name),
		slog.Int64("job_id", id),
	)
}

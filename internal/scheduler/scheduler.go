package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"land-review/internal/config"
)

// StaleReminder emits reminders for reviews that have been idle too long
type StaleReminder interface {
	RemindStale(ctx context.Context, idle time.Duration) (int, error)
}

// RoleMapReloader re-reads the role mapping when it changed
type RoleMapReloader interface {
	Reload() (bool, error)
}

// Scheduler handles periodic tasks
type Scheduler struct {
	reviews    StaleReminder
	roles      RoleMapReloader
	config     *config.SchedulerConfig
	staleAfter time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler. Either dependency may be nil to
// disable its task.
func NewScheduler(reviews StaleReminder, roles RoleMapReloader, cfg *config.SchedulerConfig, staleAfter time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		reviews:    reviews,
		roles:      roles,
		config:     cfg,
		staleAfter: staleAfter,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() error {
	slog.Info("Starting scheduler",
		"stale_reminders_enabled", s.config.EnableStaleReminders,
		"rolemap_reload_interval", s.config.RoleMapReloadInterval)

	if s.config.EnableStaleReminders && s.reviews != nil {
		if err := s.startCronTask(s.config.StaleReminderCron, "stale_reminders", s.sendStaleReminders); err != nil {
			return fmt.Errorf("failed to start stale reminders: %w", err)
		}
	}

	if s.config.RoleMapReloadInterval > 0 && s.roles != nil {
		s.goTask(func() { s.scheduleIntervalTask(s.config.RoleMapReloadInterval, "rolemap_reload", s.reloadRoleMap) })
	}

	slog.Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running tasks to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		slog.Info("Stopping scheduler")
		s.cancel()
	})
	s.wg.Wait()
}

func (s *Scheduler) goTask(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

type scheduleKind int

const (
	everyMinutes scheduleKind = iota
	everyHours
	daily
	weekly
)

// schedule is a parsed cron expression
type schedule struct {
	kind     scheduleKind
	interval int
	minute   int
	hour     int
	weekday  time.Weekday
}

// parseCron parses a simple cron expression: "minute hour day month weekday".
// Supported forms: "*/5 * * * *", "30 */2 * * *", "0 8 * * *", "0 9 * * 1".
func parseCron(cronExpr string) (schedule, error) {
	parts := strings.Fields(cronExpr)
	if len(parts) != 5 {
		return schedule{}, fmt.Errorf("invalid cron expression: %s (expected 5 fields)", cronExpr)
	}

	if strings.HasPrefix(parts[0], "*/") {
		interval, err := strconv.Atoi(parts[0][2:])
		if err != nil || interval < 1 || interval > 59 {
			return schedule{}, fmt.Errorf("invalid minute interval in cron: %s", parts[0])
		}
		return schedule{kind: everyMinutes, interval: interval}, nil
	}

	minute, err := strconv.Atoi(parts[0])
	if err != nil || minute < 0 || minute > 59 {
		return schedule{}, fmt.Errorf("invalid minute in cron: %s", parts[0])
	}

	if strings.HasPrefix(parts[1], "*/") {
		interval, err := strconv.Atoi(parts[1][2:])
		if err != nil || interval < 1 || interval > 23 {
			return schedule{}, fmt.Errorf("invalid hour interval in cron: %s", parts[1])
		}
		return schedule{kind: everyHours, interval: interval, minute: minute}, nil
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		return schedule{}, fmt.Errorf("invalid hour in cron: %s", parts[1])
	}

	if parts[4] == "*" {
		return schedule{kind: daily, hour: hour, minute: minute}, nil
	}

	weekday, err := strconv.Atoi(parts[4])
	if err != nil || weekday < 0 || weekday > 6 {
		return schedule{}, fmt.Errorf("invalid weekday in cron: %s (0-6, 0=Sunday)", parts[4])
	}
	return schedule{kind: weekly, hour: hour, minute: minute, weekday: time.Weekday(weekday)}, nil
}

// next returns the first run time strictly after from
func (sc schedule) next(from time.Time) time.Time {
	switch sc.kind {
	case everyMinutes:
		return from.Add(time.Duration(sc.interval) * time.Minute)
	case everyHours:
		return nextHourlyInterval(from, sc.interval, sc.minute)
	case weekly:
		return nextWeekday(from, sc.weekday, sc.hour, sc.minute)
	default:
		return nextDailyRun(from, sc.hour, sc.minute)
	}
}

// startCronTask parses a cron expression and starts the task
func (s *Scheduler) startCronTask(cronExpr, taskName string, task func(ctx context.Context)) error {
	sc, err := parseCron(cronExpr)
	if err != nil {
		return err
	}

	if sc.kind == everyMinutes {
		interval := time.Duration(sc.interval) * time.Minute
		s.goTask(func() { s.scheduleIntervalTask(interval, taskName, task) })
		return nil
	}

	s.goTask(func() { s.scheduleTask(sc, taskName, task) })
	return nil
}

// scheduleIntervalTask runs a task immediately and then at regular intervals
func (s *Scheduler) scheduleIntervalTask(interval time.Duration, taskName string, task func(ctx context.Context)) {
	slog.Debug("Starting interval task", "task", taskName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	task(s.ctx)

	for {
		select {
		case <-ticker.C:
			task(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// scheduleTask runs a task at the times given by sc
func (s *Scheduler) scheduleTask(sc schedule, taskName string, task func(ctx context.Context)) {
	for {
		now := time.Now()
		next := sc.next(now)

		slog.Info("Next task scheduled", "task", taskName, "next_run", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			slog.Info("Running scheduled task", "task", taskName)
			task(s.ctx)
		case <-s.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextHourlyInterval calculates the next run time for hourly intervals
func nextHourlyInterval(from time.Time, hourInterval, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	for next.Hour()%hourInterval != 0 {
		next = next.Add(time.Hour)
	}
	return next
}

// nextWeekday calculates the next occurrence of a specific weekday and time
func nextWeekday(from time.Time, weekday time.Weekday, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	daysUntil := int(weekday - from.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}
	next = next.AddDate(0, 0, daysUntil)

	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// nextDailyRun calculates the next daily run time
func nextDailyRun(from time.Time, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// sendStaleReminders emits assignment.stale for idle reviews
func (s *Scheduler) sendStaleReminders(ctx context.Context) {
	n, err := s.reviews.RemindStale(ctx, s.staleAfter)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Failed to send stale reminders", "error", err)
		}
		return
	}
	slog.Info("Stale reminders completed", "reminders_sent", n, "idle_after", s.staleAfter)
}

// reloadRoleMap picks up changes to the role mapping file
func (s *Scheduler) reloadRoleMap(context.Context) {
	changed, err := s.roles.Reload()
	if err != nil {
		slog.Error("Failed to reload role mapping, keeping current mapping", "error", err)
		return
	}
	if changed {
		slog.Info("Role mapping reloaded")
	}
}

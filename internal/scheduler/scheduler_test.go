package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"land-review/internal/config"
)

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		want    schedule
		wantErr bool
	}{
		{expr: "*/5 * * * *", want: schedule{kind: everyMinutes, interval: 5}},
		{expr: "30 */2 * * *", want: schedule{kind: everyHours, interval: 2, minute: 30}},
		{expr: "0 8 * * *", want: schedule{kind: daily, hour: 8}},
		{expr: "15 9 * * 1", want: schedule{kind: weekly, hour: 9, minute: 15, weekday: time.Monday}},
		{expr: "0 8 * *", wantErr: true},
		{expr: "*/0 * * * *", wantErr: true},
		{expr: "60 8 * * *", wantErr: true},
		{expr: "0 24 * * *", wantErr: true},
		{expr: "0 8 * * 7", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := parseCron(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseCron(%q) = %+v, want %+v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestNextRuns(t *testing.T) {
	// Wednesday
	from := time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		got  time.Time
		want time.Time
	}{
		{"daily later today", nextDailyRun(from, 11, 0), time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC)},
		{"daily already passed", nextDailyRun(from, 8, 0), time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)},
		{"daily exactly now", nextDailyRun(from, 10, 30), time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)},
		{"weekly monday", nextWeekday(from, time.Monday, 9, 0), time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
		{"weekly same day later", nextWeekday(from, time.Wednesday, 12, 0), time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)},
		{"weekly same day passed", nextWeekday(from, time.Wednesday, 9, 0), time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC)},
		{"every 4 hours", nextHourlyInterval(from, 4, 0), time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)},
		{"every 2 hours at :45", nextHourlyInterval(from, 2, 45), time.Date(2026, 10, 14, 10, 45, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

type fakeReminder struct {
	calls atomic.Int32
	idle  atomic.Int64
}

func (f *fakeReminder) RemindStale(ctx context.Context, idle time.Duration) (int, error) {
	f.calls.Add(1)
	f.idle.Store(int64(idle))
	return 2, nil
}

type fakeReloader struct {
	calls atomic.Int32
	err   error
}

func (f *fakeReloader) Reload() (bool, error) {
	f.calls.Add(1)
	return f.err == nil, f.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSchedulerRunsTasks(t *testing.T) {
	reminder := &fakeReminder{}
	reloader := &fakeReloader{err: errors.New("bad yaml")}

	s := NewScheduler(reminder, reloader, &config.SchedulerConfig{
		RoleMapReloadInterval: 10 * time.Millisecond,
		StaleReminderCron:     "*/1 * * * *",
		EnableStaleReminders:  true,
	}, 48*time.Hour)

	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}

	waitFor(t, func() bool { return reloader.calls.Load() >= 3 })
	waitFor(t, func() bool { return reminder.calls.Load() >= 1 })
	s.Stop()

	if got := time.Duration(reminder.idle.Load()); got != 48*time.Hour {
		t.Errorf("Expected idle threshold 48h, got %v", got)
	}

	calls := reloader.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if reloader.calls.Load() != calls {
		t.Error("Tasks should not run after Stop")
	}

	// Stop is idempotent
	s.Stop()
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	s := NewScheduler(&fakeReminder{}, nil, &config.SchedulerConfig{
		StaleReminderCron:    "every day",
		EnableStaleReminders: true,
	}, time.Hour)
	defer s.Stop()

	if err := s.Start(); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestSchedulerDisabledTasks(t *testing.T) {
	reminder := &fakeReminder{}
	s := NewScheduler(reminder, nil, &config.SchedulerConfig{StaleReminderCron: "*/1 * * * *"}, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	s.Stop()

	if reminder.calls.Load() != 0 {
		t.Error("Disabled reminders should not run")
	}
}

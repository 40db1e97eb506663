package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

type fakeLister struct {
	statuses []*domain.ExtractionStatus
	err      error
}

func (f *fakeLister) ListActive(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	return f.statuses, f.err
}

type fakeWorker struct {
	last     time.Time
	interval time.Duration
}

func (f *fakeWorker) LastPass() time.Time     { return f.last }
func (f *fakeWorker) Interval() time.Duration { return f.interval }

type fakeCounter struct {
	count int64
	err   error
}

func (f *fakeCounter) Count(ctx context.Context) (int64, error) { return f.count, f.err }

func newTestMonitor(lister StatusLister, worker WorkerProbe, dl DeadLetterCounter, now time.Time) *Monitor {
	m := NewMonitor(lister, worker, dl)
	m.started = now
	m.now = func() time.Time { return now }
	return m
}

func TestMonitor_Healthy(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(
		&fakeLister{},
		&fakeWorker{last: now.Add(-30 * time.Second), interval: time.Minute},
		&fakeCounter{count: 0},
		now,
	)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.Status)
	}
}

func TestMonitor_StoreFailureIsCritical(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(&fakeLister{err: errors.New("db gone")}, &fakeWorker{interval: time.Minute}, nil, now)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("expected critical, got %s", report.Status)
	}
	if report.StoreError == "" {
		t.Error("store error missing from report")
	}
}

func TestMonitor_CountsJobs(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	retrying := domain.NewExtractionStatus("retrying", 1, now)
	retrying.IsRetrying = true
	retrying.NextRetryTime = &future

	due := domain.NewExtractionStatus("due", 1, now)
	due.IsRetrying = true
	due.NextRetryTime = &past

	m := newTestMonitor(
		&fakeLister{statuses: []*domain.ExtractionStatus{
			domain.NewExtractionStatus("plain", 1, now),
			retrying,
			due,
		}},
		&fakeWorker{last: now, interval: time.Minute},
		nil,
		now,
	)

	report := m.CheckHealth(context.Background())
	if report.ActiveJobs != 3 {
		t.Errorf("expected 3 active jobs, got %d", report.ActiveJobs)
	}
	if report.RetryingJobs != 2 {
		t.Errorf("expected 2 retrying jobs, got %d", report.RetryingJobs)
	}
	if report.DueJobs != 1 {
		t.Errorf("expected 1 due job, got %d", report.DueJobs)
	}
}

func TestMonitor_WorkerNeverRan(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(&fakeLister{}, &fakeWorker{interval: time.Minute}, nil, now)

	// Inside the startup grace window the silence is fine.
	m.started = now.Add(-2 * time.Minute)
	if report := m.CheckHealth(context.Background()); report.Status != StatusHealthy {
		t.Errorf("expected healthy during grace window, got %s", report.Status)
	}

	// Past three intervals with no pass at all the loop never started.
	m.started = now.Add(-4 * time.Minute)
	if report := m.CheckHealth(context.Background()); report.Status != StatusCritical {
		t.Errorf("expected critical after grace window, got %s", report.Status)
	}
}

func TestMonitor_StaleWorkerDegrades(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(
		&fakeLister{},
		&fakeWorker{last: now.Add(-5 * time.Minute), interval: time.Minute},
		nil,
		now,
	)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.LastPass == nil {
		t.Error("last pass missing from report")
	}
}

func TestMonitor_DeadLettersDegrade(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(
		&fakeLister{},
		&fakeWorker{last: now, interval: time.Minute},
		&fakeCounter{count: 2},
		now,
	)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.DeadLetters != 2 {
		t.Errorf("expected 2 dead letters, got %d", report.DeadLetters)
	}

	// A counter failure must not take health down with it.
	m = newTestMonitor(
		&fakeLister{},
		&fakeWorker{last: now, interval: time.Minute},
		&fakeCounter{err: errors.New("redis gone")},
		now,
	)
	if report := m.CheckHealth(context.Background()); report.Status != StatusHealthy {
		t.Errorf("counter failure should not degrade health, got %s", report.Status)
	}
}

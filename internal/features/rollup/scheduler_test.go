package rollup

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/config"

	"go.uber.org/zap"
)

type fakeCapturer struct {
	days []common_models.Date
	err  error
}

func (f *fakeCapturer) Capture(ctx context.Context, day common_models.Date) (*CaptureResult, error) {
	f.days = append(f.days, day)
	if f.err != nil {
		return nil, f.err
	}
	return &CaptureResult{Date: day}, nil
}

func TestYesterdayUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:00 on the 10th at +05:00 is still the 9th in UTC
	got := Yesterday(time.Date(2026, time.March, 10, 2, 0, 0, 0, loc))
	if got.String() != "2026-03-08" {
		t.Errorf("Yesterday() = %s, want 2026-03-08", got)
	}
}

func TestRunOnceCapturesYesterday(t *testing.T) {
	capturer := &fakeCapturer{}
	s := NewScheduler(capturer, &config.Config{}, zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, time.March, 10, 0, 5, 0, 0, time.UTC) }

	s.RunOnce()

	if len(capturer.days) != 1 || capturer.days[0].String() != "2026-03-09" {
		t.Fatalf("captured %v", capturer.days)
	}
	if last, err := s.LastRun(); last.IsZero() || err != nil {
		t.Errorf("LastRun() = %v, %v", last, err)
	}
}

func TestRunOnceRecordsFailure(t *testing.T) {
	capturer := &fakeCapturer{err: errors.New("mongo down")}
	s := NewScheduler(capturer, &config.Config{}, zap.NewNop())

	s.RunOnce()

	if _, err := s.LastRun(); err == nil {
		t.Error("LastRun() should report the capture error")
	}
}

func TestStartSchedule(t *testing.T) {
	disabled := NewScheduler(&fakeCapturer{}, &config.Config{RollupSchedule: ""}, zap.NewNop())
	if err := disabled.Start(); err != nil {
		t.Fatalf("Start() with empty schedule error = %v", err)
	}
	disabled.Stop()

	bad := NewScheduler(&fakeCapturer{}, &config.Config{RollupSchedule: "every night"}, zap.NewNop())
	if err := bad.Start(); err == nil {
		t.Error("Start() should reject an invalid schedule")
	}

	good := NewScheduler(&fakeCapturer{}, &config.Config{RollupSchedule: "5 0 * * *"}, zap.NewNop())
	if err := good.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	good.Stop()
}

package highlight

import (
	"testing"

	"github.com/google/uuid"
)

func TestReportBuilderTallyiesUsageAndReasons(t *testing.T) {
	b := NewReportBuilder(2)
	b.RecordTick(2, Decision{Action: ActionHold, Reason: ReasonCooldown})
	b.RecordTick(2, Decision{Action: ActionHold, Reason: ReasonMinHold})
	b.RecordTick(0, Decision{Action: ActionSwitch, Reason: ReasonBallInExitZone})

	report := b.Build()

	if report.Phase0Camera != 2 {
		t.Errorf("expected phase0_camera=2, got %d", report.Phase0Camera)
	}
	if report.CameraUsage[2] != 2 || report.CameraUsage[0] != 1 {
		t.Errorf("unexpected camera usage: %+v", report.CameraUsage)
	}
	if report.ReasonHistogram["cooldown"] != 1 || report.ReasonHistogram["min_hold"] != 1 || report.ReasonHistogram["ball_in_exit_zone"] != 1 {
		t.Errorf("unexpected reasons histogram: %+v", report.ReasonHistogram)
	}
	if report.Counters.FramesProcessed != 3 {
		t.Errorf("expected 3 frames processed, got %d", report.Counters.FramesProcessed)
	}
}

func TestReportBuilderRecordsSwitchesAndCounters(t *testing.T) {
	b := NewReportBuilder(0)
	event := SwitchEvent{
		ID:       uuid.New(),
		Decision: Decision{Action: ActionSwitch, From: 0, To: 1, Reason: ReasonBallInExitZone},
		RefIndex: 42,
	}
	b.RecordSwitch(event)
	b.RecordWrite()
	b.RecordWrite()
	b.RecordFallbackHit()
	b.RecordDetectorError()

	report := b.Build()

	if len(report.Switches) != 1 || report.Switches[0].ID != event.ID {
		t.Fatalf("expected the recorded switch event to be preserved, got %+v", report.Switches)
	}
	if report.Counters.SwitchesApplied != 1 {
		t.Errorf("expected switches_applied=1, got %d", report.Counters.SwitchesApplied)
	}
	if report.Counters.FramesWritten != 2 {
		t.Errorf("expected frames_written=2, got %d", report.Counters.FramesWritten)
	}
	if report.Counters.FallbackHits != 1 {
		t.Errorf("expected fallback_hits=1, got %d", report.Counters.FallbackHits)
	}
	if report.Counters.DetectorErrors != 1 {
		t.Errorf("expected detector_errors=1, got %d", report.Counters.DetectorErrors)
	}
}

func TestReportBuilderNoDominanceWarningSingleCamera(t *testing.T) {
	b := NewReportBuilder(0)
	for i := 0; i < 100; i++ {
		b.RecordTick(0, Decision{Action: ActionHold, Reason: ReasonNoZone})
	}
	report := b.Build()
	if len(report.Warnings) != 0 {
		t.Errorf("expected no dominance warning in a single-camera run, got %v", report.Warnings)
	}
}

func TestReportBuilderDominanceWarningMultiCamera(t *testing.T) {
	b := NewReportBuilder(0)
	for i := 0; i < 95; i++ {
		b.RecordTick(0, Decision{Action: ActionHold, Reason: ReasonNoZone})
	}
	for i := 0; i < 5; i++ {
		b.RecordTick(1, Decision{Action: ActionHold, Reason: ReasonNoZone})
	}
	report := b.Build()
	if len(report.Warnings) != 1 {
		t.Fatalf("expected exactly one dominance warning, got %v", report.Warnings)
	}
}

func TestReportBuilderNoDominanceWarningBelowThreshold(t *testing.T) {
	b := NewReportBuilder(0)
	for i := 0; i < 60; i++ {
		b.RecordTick(0, Decision{Action: ActionHold, Reason: ReasonNoZone})
	}
	for i := 0; i < 40; i++ {
		b.RecordTick(1, Decision{Action: ActionHold, Reason: ReasonNoZone})
	}
	report := b.Build()
	if len(report.Warnings) != 0 {
		t.Errorf("expected no dominance warning below the threshold, got %v", report.Warnings)
	}
}

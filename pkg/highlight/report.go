package highlight

import "fmt"

// Report is the JSON run summary written at the end of a run (spec §6.3).
type Report struct {
	Phase0Camera    int            `json:"phase0_camera"`
	CameraUsage     map[int]int64  `json:"camera_usage"` // camera_id -> frames active
	Switches        []SwitchEvent  `json:"switches"`
	ReasonHistogram map[string]int `json:"reasons_histogram"`
	Counters        ReportCounters `json:"counters"`
	Warnings        []string       `json:"warnings"`
}

// ReportCounters tallies run-wide counts useful for post-hoc tuning.
type ReportCounters struct {
	FramesProcessed int64 `json:"frames_processed"`
	FramesWritten   int64 `json:"frames_written"`
	SwitchesApplied int64 `json:"switches_applied"`
	FallbackHits    int64 `json:"fallback_hits"`
	DetectorErrors  int64 `json:"detector_errors"`
}

// dominanceThreshold is the fraction of total active frames beyond which a
// single camera is flagged as dominant in a multi-camera run (spec §6.5).
const dominanceThreshold = 0.9

// ReportBuilder accumulates the inputs to a Report over the life of a run.
// The Orchestrator owns one instance and calls its Record* methods as ticks
// complete, then Build at shutdown.
type ReportBuilder struct {
	phase0Camera    int
	cameraUsage     map[int]int64
	switches        []SwitchEvent
	reasonHistogram map[string]int
	counters        ReportCounters
}

// NewReportBuilder creates a builder seeded with the Phase 0 camera choice.
func NewReportBuilder(phase0Camera int) *ReportBuilder {
	return &ReportBuilder{
		phase0Camera:    phase0Camera,
		cameraUsage:     map[int]int64{},
		reasonHistogram: map[string]int{},
	}
}

// RecordTick accounts for one processed frame on activeCam with the
// Switcher's decision for that tick.
func (b *ReportBuilder) RecordTick(activeCam int, decision Decision) {
	b.counters.FramesProcessed++
	b.cameraUsage[activeCam]++
	b.reasonHistogram[decision.Reason.String()]++
}

// RecordSwitch appends an applied switch to the audit trail.
func (b *ReportBuilder) RecordSwitch(event SwitchEvent) {
	b.switches = append(b.switches, event)
	b.counters.SwitchesApplied++
}

// RecordWrite accounts for one frame appended to the output sink.
func (b *ReportBuilder) RecordWrite() {
	b.counters.FramesWritten++
}

// RecordFallbackHit accounts for one confirmed fallback-scanner candidate.
func (b *ReportBuilder) RecordFallbackHit() {
	b.counters.FallbackHits++
}

// RecordDetectorError accounts for one backend failure downgraded to a miss.
func (b *ReportBuilder) RecordDetectorError() {
	b.counters.DetectorErrors++
}

// Build finalizes the report, computing the dominance warning (spec §6.5):
// in a run with more than one camera, any single camera holding more than
// 90% of active frames is flagged.
func (b *ReportBuilder) Build() Report {
	var warnings []string
	if len(b.cameraUsage) > 1 {
		var total int64
		for _, n := range b.cameraUsage {
			total += n
		}
		for cam, n := range b.cameraUsage {
			if total > 0 && float64(n)/float64(total) > dominanceThreshold {
				warnings = append(warnings, dominanceWarning(cam, n, total))
			}
		}
	}

	return Report{
		Phase0Camera:    b.phase0Camera,
		CameraUsage:     b.cameraUsage,
		Switches:        b.switches,
		ReasonHistogram: b.reasonHistogram,
		Counters:        b.counters,
		Warnings:        warnings,
	}
}

func dominanceWarning(cam int, n, total int64) string {
	pct := 100 * float64(n) / float64(total)
	return fmt.Sprintf("camera %d dominates the run (%.1f%% of active frames)", cam, pct)
}

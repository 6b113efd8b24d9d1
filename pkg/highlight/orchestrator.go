package highlight

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrchestratorState tracks the run's lifecycle: idle until configured,
// running for the duration of one Run call, stopped once it returns, and
// permanently closed thereafter.
type OrchestratorState int

const (
	StateIdle OrchestratorState = iota
	StateRunning
	StateStopped
	StateClosed
)

func (s OrchestratorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// OrchestratorConfig bundles the run-wide knobs that don't belong to any one
// component (spec §4.4, §6.4).
type OrchestratorConfig struct {
	Phase0               Phase0Config
	PreSwitchRequireBall bool
	Writer               WriterConfig
}

// Orchestrator owns the timeline: it is the only caller of
// StickyTracker.Update, Switcher.Step/ApplySwitch, and
// FallbackScanner.Probe, and the only component that may change which
// camera is active. Detector.Detect is also called by RunPhase0 and by the
// fallback scanner's probes. A state enum guards construction-time wiring, and a
// cancelable context owns the run.
type Orchestrator struct {
	mu    sync.RWMutex
	state OrchestratorState

	cameras []Camera
	streams map[int]StreamSource

	detector *Detector
	sticky   *StickyTracker
	switcher *Switcher
	fallback *FallbackScanner

	sink Sink
	cfg  OrchestratorConfig

	telemetry *TelemetrySender
	metrics   *Metrics
	preview   Previewer
	logger    zerolog.Logger

	cancel context.CancelFunc

	activeCam      int
	lastTRef       int64
	lastNormCenter Point

	writer *Writer
	report *ReportBuilder
}

// NewOrchestrator constructs an Orchestrator over the given cameras and
// their already-opened StreamSources. sink is the output video sink; the
// Writer itself is built lazily once Phase 0 resolves the active camera's
// FPS.
func NewOrchestrator(cameras []Camera, streams map[int]StreamSource, detector *Detector, sticky *StickyTracker, switcher *Switcher, fallback *FallbackScanner, sink Sink, cfg OrchestratorConfig, logger zerolog.Logger) (*Orchestrator, error) {
	if len(cameras) == 0 {
		return nil, &RunError{Kind: KindConfig, Wrapped: errNoStreams}
	}
	for _, c := range cameras {
		if _, ok := streams[c.ID]; !ok {
			return nil, &RunError{Kind: KindConfig, Wrapped: &noStreamsError{}}
		}
	}

	return &Orchestrator{
		state:    StateIdle,
		cameras:  cameras,
		streams:  streams,
		detector: detector,
		sticky:   sticky,
		switcher: switcher,
		fallback: fallback,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// SetTelemetry wires an optional SwitchEvent telemetry sender. Must be
// called before Run.
func (o *Orchestrator) SetTelemetry(t *TelemetrySender) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrOrchestratorRunning
	}
	o.telemetry = t
	return nil
}

// SetMetrics wires an optional Prometheus metrics recorder. Must be called
// before Run.
func (o *Orchestrator) SetMetrics(m *Metrics) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrOrchestratorRunning
	}
	o.metrics = m
	return nil
}

// Previewer receives the active frame once per tick for optional live
// visualization. DebugPreview (debugpreview.go) implements it directly via
// its ShowFrame method, so the tick loop itself handles no gocv types. The
// package as a whole still builds only with cgo, since StreamSource is
// declared in the cgo-tagged stream.go.
type Previewer interface {
	ShowFrame(frame Frame, activeCam int, zones []Zone, ball Point, hasBall bool)
}

// SetPreview wires an optional live preview. Must be called before Run.
func (o *Orchestrator) SetPreview(p Previewer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrOrchestratorRunning
	}
	o.preview = p
	return nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() OrchestratorState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Run executes Phase 0 followed by the per-tick main loop until the Writer's
// target frame count is reached, the context is canceled, or every stream is
// exhausted. It returns the finalized Report regardless of how the run
// ended, alongside any terminal error.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	o.mu.Lock()
	switch o.state {
	case StateRunning:
		o.mu.Unlock()
		return Report{}, ErrOrchestratorRunning
	case StateClosed:
		o.mu.Unlock()
		return Report{}, ErrOrchestratorClosed
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.state = StateRunning
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.state == StateRunning {
			o.state = StateStopped
		}
		o.mu.Unlock()
	}()

	rep, err := o.run(runCtx)
	if err != nil && IsInvariantViolation(err) {
		o.logger.Error().Err(err).Msg("invariant violation, aborting run")
	}
	return rep, err
}

func (o *Orchestrator) run(ctx context.Context) (Report, error) {
	phase0Streams := make([]Phase0Stream, 0, len(o.cameras))
	for _, c := range o.cameras {
		phase0Streams = append(phase0Streams, &streamPhase0Adapter{id: c.ID, stream: o.streams[c.ID]})
	}

	best, err := RunPhase0(ctx, phase0Streams, o.detector, o.cfg.Phase0)
	if err != nil {
		return Report{}, err
	}
	o.activeCam = best
	o.detector.Reset()
	o.report = NewReportBuilder(best)

	for _, c := range o.cameras {
		if err := o.streams[c.ID].Seek(0); err != nil {
			return o.report.Build(), err
		}
	}
	activeStream := o.streams[o.activeCam]
	fps := activeStream.FPS()
	o.sticky.SetFPS(fps)
	o.switcher.SetFPS(fps)
	o.fallback.SetFPS(fps)
	o.writer = NewWriter(o.sink, o.cfg.Writer, fps)

	o.logger.Info().Int("phase0_camera", best).Float64("fps", fps).Msg("starting run")

	for {
		select {
		case <-ctx.Done():
			return o.finish(&RunError{Kind: KindCancellation, TRef: o.lastTRef, Wrapped: ctx.Err()})
		default:
		}

		frame, err := o.readActiveFrame()
		if err != nil {
			return o.finish(err)
		}
		o.lastTRef = frame.TimelineIndex

		det := o.detector.Detect(frame)
		if det.Meta.Error {
			o.report.RecordDetectorError()
			if o.metrics != nil {
				o.metrics.ObserveDetectorError()
			}
		}

		outcome := o.sticky.Update(det, float64(frame.Pixels.Width), float64(frame.Pixels.Height))
		normCenter := normalizeCenter(outcome.SmoothedCenter, frame)
		if outcome.Origin == OriginAccepted || outcome.Origin == OriginHeld {
			o.lastNormCenter = normCenter
		}

		decision := o.switcher.Step(outcome, normCenter, frame.TimelineIndex)

		if decision.Action == ActionSwitch {
			if nf, reason, ok := o.applySwitchIfViable(decision); ok {
				frame = nf
			} else {
				decision = Decision{Action: ActionHold, From: decision.From, Reason: reason, RefIndex: frame.TimelineIndex}
			}
		} else if o.fallback.ShouldTrigger(int64(outcome.MissStreak), o.fallback.TFbFrames(), o.switcher.InCooldown(), o.lastNormCenter, o.switcher.ZonesFor(o.activeCam)) {
			if nf, fbDecision, ok := o.runFallbackScan(ctx, frame.TimelineIndex); ok {
				decision = fbDecision
				frame = nf
			}
		}

		o.report.RecordTick(o.activeCam, decision)
		if o.metrics != nil {
			o.metrics.ObserveTick(decision)
			o.metrics.SetMissStreak(outcome.MissStreak)
		}
		if o.preview != nil {
			hasBall := outcome.Origin == OriginAccepted || outcome.Origin == OriginHeld
			o.preview.ShowFrame(frame, o.activeCam, o.switcher.ZonesFor(o.activeCam), o.lastNormCenter, hasBall)
		}

		prevWritten := o.writer.Written()
		more, werr := o.writer.WriteFrame(frame)
		if werr != nil {
			return o.finish(werr)
		}
		if o.writer.Written() > prevWritten {
			o.report.RecordWrite()
			if o.metrics != nil {
				o.metrics.ObserveWrite()
			}
		}
		if !more {
			return o.finish(nil)
		}
	}
}

// finish finalizes the Writer and returns the built Report alongside err
// (nil on a clean, target-reached stop).
func (o *Orchestrator) finish(err error) (Report, error) {
	if ferr := o.writer.Finalize(); ferr != nil && err == nil {
		err = ferr
	}
	return o.report.Build(), err
}

// readActiveFrame reads the next frame from the active stream, failing over
// to another camera if the active stream is exhausted or erroring (spec
// §4.4's end-of-stream failover).
func (o *Orchestrator) readActiveFrame() (Frame, error) {
	stream := o.streams[o.activeCam]
	frame, err := stream.Read()
	if err == nil {
		return frame, nil
	}

	nextCam, nf, ferr := o.failover(o.lastTRef)
	if ferr != nil {
		return Frame{}, ferr
	}

	decision := Decision{Action: ActionSwitch, From: o.activeCam, To: nextCam, Reason: ReasonActiveStreamEnded, RefIndex: o.lastTRef}
	o.commitSwitch(decision)
	return nf, nil
}

// failover hard-syncs and reads from the first other camera whose stream is
// still readable, in camera order.
func (o *Orchestrator) failover(tRef int64) (int, Frame, error) {
	for _, c := range o.cameras {
		if c.ID == o.activeCam {
			continue
		}
		stream, ok := o.streams[c.ID]
		if !ok {
			continue
		}
		if err := stream.Seek(tRef); err != nil {
			continue
		}
		frame, err := stream.Read()
		if err != nil {
			continue
		}
		return c.ID, frame, nil
	}
	return 0, Frame{}, &RunError{Kind: KindIO, TRef: tRef, Wrapped: ErrNoStreamsAvailable}
}

// applySwitchIfViable runs the switch pre-flight invariant (hard-sync,
// read, optional ball check) for a Switcher-originated SWITCH decision, and
// commits it on success.
func (o *Orchestrator) applySwitchIfViable(decision Decision) (Frame, DecisionReason, bool) {
	frame, reason, ok := o.preflight(decision.To, decision.RefIndex)
	if !ok {
		return Frame{}, reason, false
	}
	o.commitSwitch(decision)
	return frame, ReasonNone, true
}

// runFallbackScan dispatches a fallback probe across every non-active
// camera and, on confirmation, applies the pre-flight invariant to the
// confirmed candidate.
func (o *Orchestrator) runFallbackScan(ctx context.Context, tRef int64) (Frame, Decision, bool) {
	candidates := make([]CandidateStream, 0, len(o.cameras)-1)
	for _, c := range o.cameras {
		if c.ID == o.activeCam {
			continue
		}
		candidates = append(candidates, &streamCandidateAdapter{id: c.ID, stream: o.streams[c.ID]})
	}

	target, confirmed, err := o.fallback.Probe(ctx, candidates, tRef)
	if err != nil || !confirmed {
		return Frame{}, Decision{}, false
	}

	decision := Decision{Action: ActionSwitch, From: o.activeCam, To: target, Reason: ReasonFallbackConfirmed, RefIndex: tRef}
	frame, _, ok := o.preflight(target, tRef)
	if !ok {
		return Frame{}, Decision{}, false
	}

	o.commitSwitch(decision)
	o.report.RecordFallbackHit()
	if o.metrics != nil {
		o.metrics.ObserveFallbackHit()
	}
	return frame, decision, true
}

// preflight implements the switch pre-flight hard invariant (spec §4.4):
// hard-sync the target stream to t_ref, read it, and optionally require a
// ball be present before committing. On failure the returned reason is
// ReasonTargetNoBall when only the ball check failed, and
// ReasonTargetUnavailable otherwise.
func (o *Orchestrator) preflight(target int, tRef int64) (Frame, DecisionReason, bool) {
	stream, ok := o.streams[target]
	if !ok {
		return Frame{}, ReasonTargetUnavailable, false
	}
	if err := stream.Seek(tRef); err != nil {
		return Frame{}, ReasonTargetUnavailable, false
	}
	frame, err := stream.Read()
	if err != nil {
		return Frame{}, ReasonTargetUnavailable, false
	}
	if o.cfg.PreSwitchRequireBall {
		det := o.detector.Detect(frame)
		if det.Empty() {
			return Frame{}, ReasonTargetNoBall, false
		}
	}
	return frame, ReasonNone, true
}

// commitSwitch applies a SWITCH decision's side effects: Switcher state
// reset, sticky tracker cross-camera reset, fallback reactivation, report
// audit trail, and telemetry broadcast.
func (o *Orchestrator) commitSwitch(decision Decision) {
	o.switcher.ApplySwitch(decision.To)
	o.sticky.NotifyCameraChange(decision.To)
	o.fallback.Reactivate()
	o.activeCam = decision.To

	event := o.makeSwitchEvent(decision)
	o.report.RecordSwitch(event)
	o.sendTelemetry(event)
}

func (o *Orchestrator) makeSwitchEvent(decision Decision) SwitchEvent {
	positions := map[int]int64{}
	for id, s := range o.streams {
		if pos, err := s.Position(); err == nil {
			positions[id] = pos
		}
	}
	return SwitchEvent{
		ID:        uuid.New(),
		Decision:  decision,
		At:        time.Now(),
		RefIndex:  decision.RefIndex,
		StreamPos: positions,
	}
}

func (o *Orchestrator) sendTelemetry(event SwitchEvent) {
	if o.telemetry == nil {
		return
	}
	if err := o.telemetry.Send(event); err != nil {
		o.logger.Warn().Err(err).Msg("telemetry send failed")
	}
}

// normalizeCenter maps a pixel-space point into [0,1]^2 against frame's
// dimensions, or returns it unchanged if the frame carries no geometry.
func normalizeCenter(p Point, frame Frame) Point {
	if frame.Pixels.Width <= 0 || frame.Pixels.Height <= 0 {
		return p
	}
	return Point{X: p.X / float64(frame.Pixels.Width), Y: p.Y / float64(frame.Pixels.Height)}
}

// streamPhase0Adapter lets a StreamSource play Phase0Stream for the startup
// scan.
type streamPhase0Adapter struct {
	id     int
	stream StreamSource
}

func (a *streamPhase0Adapter) CameraID() int { return a.id }
func (a *streamPhase0Adapter) Read(_ context.Context) (Frame, error) {
	return a.stream.Read()
}

// streamCandidateAdapter lets a StreamSource play CandidateStream for a
// fallback scan probe.
type streamCandidateAdapter struct {
	id     int
	stream StreamSource
}

func (a *streamCandidateAdapter) CameraID() int { return a.id }
func (a *streamCandidateAdapter) SyncAndRead(_ context.Context, tRef int64) (Frame, error) {
	if err := a.stream.Seek(tRef); err != nil {
		return Frame{}, err
	}
	return a.stream.Read()
}

// Close releases no Orchestrator-owned resources directly (its streams,
// sink, and senders are owned and closed by the caller that constructed
// them), but transitions the lifecycle state so Run can no longer be
// called.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateClosed {
		return ErrOrchestratorClosed
	}
	if o.state == StateRunning && o.cancel != nil {
		o.cancel()
	}
	o.state = StateClosed
	return nil
}

package highlight

import "sync"

// SwitcherConfig bundles the Switcher's thresholds (spec §4.3, §6.4). Every
// T_* field is expressed in seconds and converted to frame counts by SetFPS,
// matching the spec's "every threshold is expressed in seconds and converted
// with the observed FPS to frames at startup... reconversion is supported on
// FPS update."
type SwitcherConfig struct {
	TauFound float64
	TauExit  float64
	VAway    float64 // normalized/frame

	TCooldownSec float64
	TMinHoldSec  float64
	TArmSec      float64
	TStableSec   float64
	TDisarmSec   float64
	TMissSec     float64

	HistoryLen int // length of pos/conf history retained for exit_prob
}

// Switcher implements the HOLD/SWITCH decision state machine (spec §4.3). It
// owns exactly one SwitcherState per run; the Orchestrator is the only
// caller of Step and ApplySwitch.
type Switcher struct {
	mu sync.Mutex

	cfg            SwitcherConfig
	routing        ZoneRouting
	roleCam        map[CameraRole]int
	camRole        map[int]CameraRole
	zones          map[int][]Zone
	middleOpposite bool

	fps float64

	tCooldownFrames int
	tMinHoldFrames  int
	tArmFrames      int64
	tStableFrames   int64
	tDisarmFrames   int64
	tMissFrames     int64

	state SwitcherState
}

// NewSwitcher constructs a Switcher for the given cameras and geometry.
// activeCam is the initially active camera (from Phase 0).
func NewSwitcher(cameras []Camera, cfg SwitcherConfig, geomCfg ZoneGeometryConfig, middleOpposite bool, activeCam int) (*Switcher, error) {
	routing, roleCam, err := BuildZoneRouting(cameras, middleOpposite)
	if err != nil {
		return nil, &RunError{Kind: KindConfig, Wrapped: err}
	}

	camRole := map[int]CameraRole{}
	zones := map[int][]Zone{}
	for _, c := range cameras {
		camRole[c.ID] = c.Role
		zones[c.ID] = BuildZones(c.Role, geomCfg)
	}

	s := &Switcher{
		cfg:            cfg,
		routing:        routing,
		roleCam:        roleCam,
		camRole:        camRole,
		zones:          zones,
		middleOpposite: middleOpposite,
		state:          SwitcherState{ActiveCam: activeCam},
	}
	s.SetFPS(30)
	return s, nil
}

// SetFPS (re)converts every time-based threshold to frame counts.
func (s *Switcher) SetFPS(fps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fps <= 0 {
		fps = 30
	}
	s.fps = fps
	s.tCooldownFrames = secondsToFrames(s.cfg.TCooldownSec, fps)
	s.tMinHoldFrames = secondsToFrames(s.cfg.TMinHoldSec, fps)
	s.tArmFrames = int64(secondsToFrames(s.cfg.TArmSec, fps))
	s.tStableFrames = int64(secondsToFrames(s.cfg.TStableSec, fps))
	s.tDisarmFrames = int64(secondsToFrames(s.cfg.TDisarmSec, fps))
	s.tMissFrames = int64(secondsToFrames(s.cfg.TMissSec, fps))
}

// State returns a copy of the current SwitcherState, for reporting/tests.
func (s *Switcher) State() SwitcherState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InCooldown reports whether a switch is currently blocked by T_cooldown,
// consulted by the Orchestrator before dispatching a fallback scan (spec
// §4.4: fallback never fires during the Switcher's own cooldown).
func (s *Switcher) InCooldown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SinceLastSwitch < int64(s.tCooldownFrames)
}

// ZonesFor returns camID's zone set ordered most-specific-first, for the
// fallback scanner's proximity check.
func (s *Switcher) ZonesFor(camID int) []Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedZones(camID)
}

// Step evaluates one frame and returns a Decision (spec §4.3). It advances
// SwitcherState's per-tick counters (since_last_switch, hold_frames, zone
// arming/stability/disarm) regardless of the verdict; ApplySwitch must be
// called by the Orchestrator after a successful pre-flight for a SWITCH
// decision to take effect on state.
func (s *Switcher) Step(outcome StickyOutcome, normCenter Point, refIndex int64) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SinceLastSwitch++
	s.state.HoldFrames++

	found := outcome.Found(s.cfg.TauFound)
	if found {
		s.state.MissStreak = 0
	} else {
		s.state.MissStreak++
	}

	rawZone := s.currentZone(normCenter, found)
	s.advanceZoneCounters(rawZone)
	// CurrentZone persists through a brief miss (disarm grace), which is what
	// lets the miss_streak recovery path below fire on an empty detection.
	zone := s.state.CurrentZone

	if found {
		s.pushHistory(normCenter, outcome.Conf)
	}

	if s.state.SinceLastSwitch < int64(s.tCooldownFrames) {
		return s.hold(refIndex, ReasonCooldown)
	}
	if s.state.HoldFrames < int64(s.tMinHoldFrames) {
		return s.hold(refIndex, ReasonMinHold)
	}

	if zone == ZoneNone {
		return s.hold(refIndex, ReasonNoZone)
	}

	stable := s.state.ZoneStableFrames >= s.tStableFrames
	armed := s.state.ZoneArmedFrames >= s.tArmFrames
	if !stable {
		return s.hold(refIndex, ReasonUnstableZone)
	}
	if !armed {
		return s.hold(refIndex, ReasonUnarmed)
	}

	trigger := found || (int64(s.state.MissStreak) >= s.tMissFrames && s.pointsTowardZone(zone))
	if !trigger {
		return s.hold(refIndex, ReasonUnarmed)
	}

	vx := s.velocityX()
	if s.trajectoryStronglyAway(zone, vx) {
		return s.hold(refIndex, ReasonTrajectoryAway)
	}

	exitProb := s.exitProbability(zone, normCenter, outcome.Conf)
	if exitProb < s.cfg.TauExit {
		return s.hold(refIndex, ReasonLowExitProb)
	}

	target, ok := s.resolveTarget(zone, vx)
	if !ok || target == s.state.ActiveCam {
		return s.hold(refIndex, ReasonNoRoute)
	}

	return Decision{
		Action:   ActionSwitch,
		From:     s.state.ActiveCam,
		To:       target,
		Reason:   ReasonBallInExitZone,
		RefIndex: refIndex,
		ExitProb: exitProb,
	}
}

func (s *Switcher) hold(refIndex int64, reason DecisionReason) Decision {
	return Decision{Action: ActionHold, From: s.state.ActiveCam, Reason: reason, RefIndex: refIndex}
}

// currentZone resolves the zone containing normCenter on the active camera,
// or ZoneNone when the ball isn't currently found/held there.
func (s *Switcher) currentZone(normCenter Point, found bool) ZoneLabel {
	if !found {
		return ZoneNone
	}
	zones := s.orderedZones(s.state.ActiveCam)
	return ZoneOf(zones, normCenter)
}

// orderedZones returns a camera's zones with the most specific labels first,
// so a corner point in both RIGHT and RIGHT_TOP resolves to RIGHT_TOP.
func (s *Switcher) orderedZones(camID int) []Zone {
	all := s.zones[camID]
	ordered := make([]Zone, 0, len(all))
	specific := []ZoneLabel{ZoneRightTop, ZoneRightBottom, ZoneEqual}
	for _, z := range all {
		if containsLabel(specific, z.Label) {
			ordered = append(ordered, z)
		}
	}
	for _, z := range all {
		if !containsLabel(specific, z.Label) {
			ordered = append(ordered, z)
		}
	}
	return ordered
}

func containsLabel(labels []ZoneLabel, l ZoneLabel) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// advanceZoneCounters implements the arming/stability/disarm-grace state
// machine (spec §4.3): armed and stable frames accumulate while the same
// zone persists; a brief exit is tolerated for TDisarmFrames before the
// counters reset.
func (s *Switcher) advanceZoneCounters(zone ZoneLabel) {
	if zone == ZoneNone {
		if s.state.DisarmGraceFrames < s.tDisarmFrames {
			s.state.DisarmGraceFrames++
			return
		}
		s.state.CurrentZone = ZoneNone
		s.state.ZoneArmedFrames = 0
		s.state.ZoneStableFrames = 0
		s.state.DisarmGraceFrames = 0
		return
	}

	s.state.DisarmGraceFrames = 0
	if zone == s.state.CurrentZone {
		s.state.ZoneArmedFrames++
		s.state.ZoneStableFrames++
		return
	}

	s.state.CurrentZone = zone
	s.state.ZoneArmedFrames = 1
	s.state.ZoneStableFrames = 1
}

func (s *Switcher) pushHistory(p Point, conf float64) {
	max := s.cfg.HistoryLen
	if max <= 0 {
		max = 10
	}
	s.state.PosHistory = appendBounded(s.state.PosHistory, p, max)
	s.state.ConfHistory = appendBoundedFloat(s.state.ConfHistory, conf, max)
	if len(s.state.PosHistory) >= 2 {
		n := len(s.state.PosHistory)
		s.state.LastInZoneVelocity = s.state.PosHistory[n-1].Sub(s.state.PosHistory[n-2])
	}
}

func (s *Switcher) velocityX() float64 {
	return s.state.LastInZoneVelocity.X
}

// pointsTowardZone reports whether the last known velocity pointed toward
// the given zone's boundary, used for the miss_streak recovery path (spec
// §4.3 rule 2b).
func (s *Switcher) pointsTowardZone(zone ZoneLabel) bool {
	vx := s.velocityX()
	switch zone {
	case ZoneRight, ZoneRightTop, ZoneRightBottom:
		return vx > 0
	case ZoneLeft:
		return vx < 0
	default:
		return true
	}
}

// trajectoryStronglyAway implements the trajectory guard (spec §4.3 rule 3):
// only strong opposite horizontal motion blocks a switch.
func (s *Switcher) trajectoryStronglyAway(zone ZoneLabel, vx float64) bool {
	switch zone {
	case ZoneRight, ZoneRightTop, ZoneRightBottom:
		return vx < -s.cfg.VAway
	case ZoneLeft:
		return vx > s.cfg.VAway
	default:
		return false
	}
}

// exitProbability combines normalized distance to the zone boundary,
// confidence, and consecutive in-zone frames into a [0,1] scalar (spec §4.3
// rule 4). The exact curve is an implementation choice; it must be monotone
// in each input and saturate at 1.
func (s *Switcher) exitProbability(zone ZoneLabel, normCenter Point, conf float64) float64 {
	dist := s.distanceIntoZone(zone, normCenter)
	stability := float64(s.state.ZoneStableFrames) / float64(s.state.ZoneStableFrames+s.tStableFrames+1)

	p := 0.5*dist + 0.3*conf + 0.2*stability
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// distanceIntoZone returns normCenter's coordinate along the axis toward
// the zone's frame edge, clamped to [0,1]: X for RIGHT/RIGHT_TOP/
// RIGHT_BOTTOM, 1-X for LEFT, 1-Y for TOP, Y for BOTTOM, and 0.5 for any
// other zone. It reaches 1 at the frame edge; it is not measured from the
// zone's inner boundary, so a point that has just entered a RIGHT zone
// already scores about 0.88.
func (s *Switcher) distanceIntoZone(zone ZoneLabel, normCenter Point) float64 {
	switch zone {
	case ZoneRight, ZoneRightTop, ZoneRightBottom:
		return clamp01(normCenter.X)
	case ZoneLeft:
		return clamp01(1 - normCenter.X)
	case ZoneTop:
		return clamp01(1 - normCenter.Y)
	case ZoneBottom:
		return clamp01(normCenter.Y)
	default:
		return 0.5
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// resolveTarget returns the destination camera for a SWITCH out of zone,
// consulting the static ZoneRouting table or, for a MIDDLE camera's
// TOP/BOTTOM/EQUAL zones, the dynamic velocity-sign rule (spec §4.3).
func (s *Switcher) resolveTarget(zone ZoneLabel, vx float64) (int, bool) {
	if s.camRole[s.state.ActiveCam] == RoleMiddle && (zone == ZoneTop || zone == ZoneBottom || zone == ZoneEqual) {
		return s.resolveEqualZone(vx)
	}
	return s.routing.Target(s.state.ActiveCam, zone)
}

// resolveEqualZone implements the MIDDLE camera's velocity-sign tie-break
// (spec §4.3, §9 open question: sign only, noted as a tuning knob).
// middleOpposite swaps the LEFT/RIGHT targets here too, so the dynamic
// TOP/BOTTOM/EQUAL routing stays consistent with BuildZoneRouting's static
// LEFT/RIGHT inversion for a middle camera mounted on the opposite sideline.
func (s *Switcher) resolveEqualZone(vx float64) (int, bool) {
	leftward := vx < 0
	if s.middleOpposite {
		leftward = !leftward
	}
	if leftward {
		id, ok := s.roleCam[RoleLeft]
		return id, ok
	}
	id, ok := s.roleCam[RoleRight]
	return id, ok
}

// ApplySwitch commits a SWITCH decision: resets armed/stable/miss counters,
// zeroes since_last_switch, adopts the new active camera's zone geometry,
// and clears pos/conf histories (spec §4.3 "after applied SWITCH").
func (s *Switcher) ApplySwitch(target int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SwitcherState{ActiveCam: target}
}

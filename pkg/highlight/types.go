// Package highlight implements the director pipeline that chooses, frame by
// frame, which of 2-3 synchronized camera feeds best contains the ball and
// writes the result to a fixed-duration highlight video.
//
// Five components, owned and advanced by exactly one goroutine each tick:
// a Detector (per-frame candidate selection), a StickyTracker (temporal
// stabilization), a Switcher (exit-zone state machine), an Orchestrator
// (timeline owner and invariant enforcer), and a Writer (deterministic
// frame pacing to the output sink).
package highlight

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// CameraRole is the explicit, never-inferred role a camera plays in the
// zone/routing geometry (see zones.go).
type CameraRole int

const (
	RoleLeft CameraRole = iota
	RoleRight
	RoleMiddle
)

func (r CameraRole) String() string {
	switch r {
	case RoleLeft:
		return "LEFT"
	case RoleRight:
		return "RIGHT"
	case RoleMiddle:
		return "MIDDLE"
	default:
		return "UNKNOWN"
	}
}

// UnmarshalText lets CameraRole decode directly out of TOML string values.
func (r *CameraRole) UnmarshalText(text []byte) error {
	switch string(text) {
	case "LEFT":
		*r = RoleLeft
	case "RIGHT":
		*r = RoleRight
	case "MIDDLE":
		*r = RoleMiddle
	default:
		return &ConfigError{Msg: "unknown camera role " + string(text)}
	}
	return nil
}

// MarshalText is the inverse of UnmarshalText, so roles encode as their
// names in text-based formats.
func (r CameraRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Camera is an immutable record describing one input feed. Role is explicit
// configuration, never inferred from the stream's name or contents.
type Camera struct {
	ID     int
	Role   CameraRole
	Source string // file path or URL; opened via StreamSource
	FPS    float64
}

// Frame carries one decoded image plus the timeline position it was read at.
// TimelineIndex is derived from the active stream's true position, never a
// loop counter (spec §3).
type Frame struct {
	CameraID      int
	TimelineIndex int64
	Pixels        FramePixels
}

// FramePixels is a minimal, backend-agnostic view onto decoded pixel data.
// The gocv-backed StreamSource stores a gocv.Mat out of band and only
// surfaces width/height here so non-cgo callers (tests, the fallback
// scanner's sanity checks) don't need a cgo dependency to reason about
// frame geometry.
type FramePixels struct {
	Width  int
	Height int
	// Handle is an opaque backend-owned reference (e.g. *gocv.Mat). Core
	// logic never dereferences it; only StreamSource/Writer/Detector
	// backends that share the same backend type do.
	Handle interface{}
}

// BBox is an axis-aligned pixel-space bounding box.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Empty reports whether the box is the zero value. A non-zero box with no
// area is not Empty.
func (b BBox) Empty() bool {
	return b == BBox{}
}

// Width and Height return the pixel-space extents of the box.
func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Center returns the pixel-space center point of the box.
func (b BBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Area returns the pixel-space area of the box.
func (b BBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union of two boxes in [0,1].
func (b BBox) IoU(o BBox) float64 {
	ix1, iy1 := max(b.X1, o.X1), max(b.Y1, o.Y1)
	ix2, iy2 := min(b.X2, o.X2), min(b.Y2, o.Y2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Normalize maps a pixel-space box into [0,1]^4 given a frame of size w x h.
func (b BBox) Normalize(w, h float64) BBox {
	if w <= 0 || h <= 0 {
		return BBox{}
	}
	return BBox{X1: b.X1 / w, Y1: b.Y1 / h, X2: b.X2 / w, Y2: b.Y2 / h}
}

// Point is a 2-D coordinate, pixel- or normalized-space depending on context.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(o Point) float64 {
	dx, dy := p.X-o.X, p.Y-o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Sub returns the vector from o to p.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Candidate is a raw detection returned by a ModelBackend, before the
// Detector's scoring/ranking is applied.
type Candidate struct {
	Box   BBox
	Conf  float64
	Class string
}

// DetectionMeta carries debugging/diagnostic data that never feeds decision
// logic directly.
type DetectionMeta struct {
	Error     bool // true when the backend call itself failed
	RawCenter Point
}

// Detection is the Ball Detector's per-frame output. An absent ball is the
// zero BBox/Point with Conf 0, per spec §3.
type Detection struct {
	Box    BBox
	Center Point
	Conf   float64
	Meta   DetectionMeta
}

// Empty reports whether no ball was found this frame.
func (d Detection) Empty() bool {
	return d.Box.Empty() && d.Conf == 0
}

// StickyOrigin is the closed set of outcomes the Sticky Tracker can produce
// for a single frame (spec §3/§4.2).
type StickyOrigin int

const (
	OriginNone StickyOrigin = iota
	OriginAccepted
	OriginHeld
	OriginRejectedJump
	OriginRejectedExclusion
	OriginRejectedStationary
	OriginConfirming
)

func (o StickyOrigin) String() string {
	switch o {
	case OriginAccepted:
		return "accepted"
	case OriginHeld:
		return "held"
	case OriginRejectedJump:
		return "rejected_jump"
	case OriginRejectedExclusion:
		return "rejected_exclusion"
	case OriginRejectedStationary:
		return "rejected_stationary"
	case OriginConfirming:
		return "confirming"
	case OriginNone:
		return "none"
	default:
		return "unknown"
	}
}

func (o StickyOrigin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// StickyOutcome extends Detection with the Sticky Tracker's classification
// and run-length counters. Invariant: Origin == OriginHeld implies Box
// equals the last accepted box; HoldAge increments by 1 per held frame and
// resets to 0 on acceptance (spec §3).
type StickyOutcome struct {
	Detection
	Origin         StickyOrigin
	HoldAge        int
	MissStreak     int
	SmoothedCenter Point // EMA-smoothed center, downstream trajectory use only
}

// Found reports whether this outcome represents a confident, accepted ball
// position this frame (used by the Switcher to derive FOUND/HELD/LOST).
func (o StickyOutcome) Found(minConf float64) bool {
	return o.Origin == OriginAccepted && o.Conf >= minConf
}

// ZoneLabel is the closed set of named exit-zone regions (spec §4.3).
type ZoneLabel int

const (
	ZoneNone ZoneLabel = iota
	ZoneLeft
	ZoneRight
	ZoneRightTop
	ZoneRightBottom
	ZoneTop
	ZoneBottom
	ZoneEqual
)

func (z ZoneLabel) String() string {
	switch z {
	case ZoneLeft:
		return "LEFT"
	case ZoneRight:
		return "RIGHT"
	case ZoneRightTop:
		return "RIGHT_TOP"
	case ZoneRightBottom:
		return "RIGHT_BOTTOM"
	case ZoneTop:
		return "TOP"
	case ZoneBottom:
		return "BOTTOM"
	case ZoneEqual:
		return "EQUAL"
	case ZoneNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Zone is an axis-aligned rectangle in normalized [0,1]^4 coordinates.
type Zone struct {
	Label          ZoneLabel
	X1, Y1, X2, Y2 float64
}

// Contains reports whether the normalized point p lies inside the zone.
func (z Zone) Contains(p Point) bool {
	return p.X >= z.X1 && p.X <= z.X2 && p.Y >= z.Y1 && p.Y <= z.Y2
}

// routeKey identifies a (camera, zone) pair in a ZoneRouting table.
type routeKey struct {
	CameraID int
	Zone     ZoneLabel
}

// ZoneRouting is the total map (camera_id, zone_label) -> target camera_id
// built at startup from role assignments (spec §3, §4.3). EQUAL zones on
// MIDDLE cameras are resolved dynamically by velocity sign rather than
// stored here; see Switcher.resolveEqualZone.
type ZoneRouting struct {
	routes map[routeKey]int
}

// Target returns the destination camera for (cameraID, zone), and whether a
// route exists at all.
func (r ZoneRouting) Target(cameraID int, zone ZoneLabel) (int, bool) {
	id, ok := r.routes[routeKey{CameraID: cameraID, Zone: zone}]
	return id, ok
}

// DecisionAction is HOLD or SWITCH, the Switcher's only two outputs.
type DecisionAction int

const (
	ActionHold DecisionAction = iota
	ActionSwitch
)

func (a DecisionAction) String() string {
	if a == ActionSwitch {
		return "SWITCH"
	}
	return "HOLD"
}

// DecisionReason is the closed enum of reasons a Decision carries (spec
// §4.3, §8 scenarios).
type DecisionReason int

const (
	ReasonNone DecisionReason = iota
	ReasonCooldown
	ReasonMinHold
	ReasonNoZone
	ReasonUnstableZone
	ReasonUnarmed
	ReasonTrajectoryAway
	ReasonLowExitProb
	ReasonNoRoute
	ReasonTargetUnavailable
	ReasonBallInExitZone
	ReasonFallbackConfirmed
	ReasonActiveStreamEnded
	ReasonTargetNoBall
)

func (r DecisionReason) String() string {
	switch r {
	case ReasonCooldown:
		return "cooldown"
	case ReasonMinHold:
		return "min_hold"
	case ReasonNoZone:
		return "no_zone"
	case ReasonUnstableZone:
		return "unstable_zone"
	case ReasonUnarmed:
		return "unarmed"
	case ReasonTrajectoryAway:
		return "trajectory_away"
	case ReasonLowExitProb:
		return "low_exit_prob"
	case ReasonNoRoute:
		return "no_route"
	case ReasonTargetUnavailable:
		return "target_unavailable"
	case ReasonBallInExitZone:
		return "ball_in_exit_zone"
	case ReasonFallbackConfirmed:
		return "fallback_confirmed"
	case ReasonActiveStreamEnded:
		return "active_stream_ended"
	case ReasonTargetNoBall:
		return "target_no_ball"
	case ReasonNone:
		return "none"
	default:
		return "unknown"
	}
}

func (r DecisionReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Decision is the Switcher's per-frame verdict.
type Decision struct {
	Action   DecisionAction
	From     int
	To       int // 0 and !switch => no target
	Reason   DecisionReason
	RefIndex int64
	ExitProb float64
}

// SwitchEvent is a persisted, audited record of an applied switch: the
// Decision plus wall-clock and every stream's timeline position at the
// moment of switch.
type SwitchEvent struct {
	ID          uuid.UUID
	Decision    Decision
	At          time.Time
	RefIndex    int64
	StreamPos   map[int]int64 // camera id -> true position at switch instant
}

// SwitcherState is owned exclusively by the Switcher; no other component
// mutates it (spec §3).
type SwitcherState struct {
	ActiveCam          int
	SinceLastSwitch    int64 // frames
	HoldFrames         int64 // frames spent on the active camera since last switch
	CurrentZone        ZoneLabel
	ZoneArmedFrames    int64
	ZoneStableFrames   int64
	DisarmGraceFrames  int64
	PosHistory         []Point
	ConfHistory        []float64
	MissStreak         int
	LastInZoneVelocity Point
}


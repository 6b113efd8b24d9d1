package highlight

import "testing"

func defaultSwitcherConfig() SwitcherConfig {
	return SwitcherConfig{
		TauFound:     0.5,
		TauExit:      0.50,
		VAway:        0.002,
		TCooldownSec: 1,
		TMinHoldSec:  1,
		TArmSec:      0.2, // 6 frames at 30fps
		TStableSec:   0.2,
		TDisarmSec:   0.3,
		TMissSec:     1,
		HistoryLen:   10,
	}
}

func newTestSwitcher(t *testing.T) *Switcher {
	t.Helper()
	cameras := []Camera{{ID: 0, Role: RoleLeft}, {ID: 1, Role: RoleRight}}
	sw, err := NewSwitcher(cameras, defaultSwitcherConfig(), DefaultZoneGeometryConfig(), false, 0)
	if err != nil {
		t.Fatalf("NewSwitcher: %v", err)
	}
	sw.SetFPS(30)
	return sw
}

func foundOutcome(conf float64) StickyOutcome {
	return StickyOutcome{Detection: Detection{Conf: conf}, Origin: OriginAccepted}
}

func TestSwitcherHoldsDuringCooldown(t *testing.T) {
	sw := newTestSwitcher(t)
	d := sw.Step(foundOutcome(0.9), Point{X: 0.95, Y: 0.5}, 1)
	if d.Action != ActionHold || d.Reason != ReasonCooldown {
		t.Errorf("expected HOLD/cooldown immediately after start, got %+v", d)
	}
}

func TestSwitcherEventuallySwitchesOnStableArmedZone(t *testing.T) {
	sw := newTestSwitcher(t)

	var last Decision
	for i := 0; i < 120; i++ {
		last = sw.Step(foundOutcome(0.9), Point{X: 0.95, Y: 0.5}, int64(i))
		if last.Action == ActionSwitch {
			break
		}
	}
	if last.Action != ActionSwitch {
		t.Fatalf("expected eventual SWITCH, last decision: %+v", last)
	}
	if last.Reason != ReasonBallInExitZone {
		t.Errorf("expected reason ball_in_exit_zone, got %v", last.Reason)
	}
	if last.To != 1 {
		t.Errorf("expected switch target camera 1, got %d", last.To)
	}
}

func TestSwitcherApplySwitchResetsState(t *testing.T) {
	sw := newTestSwitcher(t)
	for i := 0; i < 120; i++ {
		d := sw.Step(foundOutcome(0.9), Point{X: 0.95, Y: 0.5}, int64(i))
		if d.Action == ActionSwitch {
			sw.ApplySwitch(d.To)
			break
		}
	}
	st := sw.State()
	if st.ActiveCam != 1 {
		t.Fatalf("expected active cam 1 after ApplySwitch, got %d", st.ActiveCam)
	}
	if st.SinceLastSwitch != 0 || st.ZoneArmedFrames != 0 || st.ZoneStableFrames != 0 {
		t.Errorf("expected counters reset after switch, got %+v", st)
	}
}

func TestSwitcherTrajectoryAwayBlocksSwitch(t *testing.T) {
	sw := newTestSwitcher(t)

	// Drive the ball into the RIGHT zone but moving strongly leftward
	// (away from the RIGHT boundary) every step, so velocity stays negative.
	// At 0.003 per step it stays in the zone past the 30-frame cooldown and
	// min-hold, so the trajectory guard is what blocks the switch.
	var last Decision
	x := 0.99
	for i := 0; i < 120; i++ {
		last = sw.Step(foundOutcome(0.9), Point{X: x, Y: 0.5}, int64(i))
		x -= 0.003
		if last.Action == ActionSwitch {
			break
		}
	}
	if last.Action == ActionSwitch {
		t.Error("expected trajectory guard to block a switch while moving strongly away from the zone")
	}
}

func TestSwitcherNoRouteWithSingleCamera(t *testing.T) {
	cameras := []Camera{{ID: 0, Role: RoleLeft}}
	sw, err := NewSwitcher(cameras, defaultSwitcherConfig(), DefaultZoneGeometryConfig(), false, 0)
	if err != nil {
		t.Fatalf("NewSwitcher: %v", err)
	}
	sw.SetFPS(30)

	var last Decision
	for i := 0; i < 120; i++ {
		last = sw.Step(foundOutcome(0.9), Point{X: 0.95, Y: 0.5}, int64(i))
	}
	if last.Action == ActionSwitch {
		t.Error("expected no route with only a single camera present")
	}
}

func TestSwitcherMiddleEqualZoneRoutesByVelocitySign(t *testing.T) {
	cameras := []Camera{{ID: 0, Role: RoleLeft}, {ID: 1, Role: RoleRight}, {ID: 2, Role: RoleMiddle}}
	sw, err := NewSwitcher(cameras, defaultSwitcherConfig(), DefaultZoneGeometryConfig(), false, 2)
	if err != nil {
		t.Fatalf("NewSwitcher: %v", err)
	}
	sw.SetFPS(30)

	var last Decision
	x := 0.5
	for i := 0; i < 120; i++ {
		last = sw.Step(foundOutcome(0.9), Point{X: x, Y: 0.5}, int64(i))
		x -= 0.001 // drifting left, keeps vx negative
		if last.Action == ActionSwitch {
			break
		}
	}
	if last.Action != ActionSwitch {
		t.Fatalf("expected eventual SWITCH out of MIDDLE's EQUAL zone, got %+v", last)
	}
	if last.To != 0 {
		t.Errorf("expected leftward drift to route to the LEFT camera (0), got %d", last.To)
	}
}

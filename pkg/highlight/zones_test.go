package highlight

import "testing"

func TestBuildZonesLeftRole(t *testing.T) {
	zones := BuildZones(RoleLeft, DefaultZoneGeometryConfig())
	if len(zones) == 0 {
		t.Fatal("expected non-empty zone set for LEFT role")
	}
	var hasRight bool
	for _, z := range zones {
		if z.Label == ZoneRight {
			hasRight = true
		}
	}
	if !hasRight {
		t.Error("expected LEFT-role camera to carry a RIGHT zone")
	}
}

func TestBuildZonesMiddleRole(t *testing.T) {
	zones := BuildZones(RoleMiddle, DefaultZoneGeometryConfig())
	var hasEqual bool
	for _, z := range zones {
		if z.Label == ZoneEqual {
			hasEqual = true
		}
	}
	if !hasEqual {
		t.Error("expected MIDDLE-role camera to carry an EQUAL zone")
	}
}

func TestZoneOfResolvesMostSpecificFirst(t *testing.T) {
	zones := []Zone{
		{Label: ZoneRightTop, X1: 0.8, Y1: 0, X2: 1, Y2: 0.2},
		{Label: ZoneRight, X1: 0.8, Y1: 0, X2: 1, Y2: 1},
	}
	got := ZoneOf(zones, Point{X: 0.9, Y: 0.1})
	if got != ZoneRightTop {
		t.Errorf("expected RIGHT_TOP for a corner point, got %v", got)
	}
}

func TestZoneOfNoneWhenOutsideAllZones(t *testing.T) {
	zones := BuildZones(RoleLeft, DefaultZoneGeometryConfig())
	got := ZoneOf(zones, Point{X: 0.5, Y: 0.5})
	if got != ZoneNone {
		t.Errorf("expected NONE at frame center, got %v", got)
	}
}

func TestBuildZoneRoutingTwoCameraLeftRight(t *testing.T) {
	cameras := []Camera{{ID: 0, Role: RoleLeft}, {ID: 1, Role: RoleRight}}
	routing, roleCam, err := BuildZoneRouting(cameras, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, ok := routing.Target(0, ZoneRight)
	if !ok || target != 1 {
		t.Errorf("expected LEFT camera's RIGHT zone to route to camera 1, got %d ok=%v", target, ok)
	}
	if roleCam[RoleLeft] != 0 || roleCam[RoleRight] != 1 {
		t.Errorf("unexpected role->camera map: %+v", roleCam)
	}
}

func TestBuildZoneRoutingThreeCameraRoutesThroughMiddle(t *testing.T) {
	cameras := []Camera{{ID: 0, Role: RoleLeft}, {ID: 1, Role: RoleRight}, {ID: 2, Role: RoleMiddle}}
	routing, _, err := BuildZoneRouting(cameras, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, ok := routing.Target(0, ZoneRight)
	if !ok || target != 2 {
		t.Errorf("expected LEFT camera's RIGHT zone to route through MIDDLE (2), got %d ok=%v", target, ok)
	}

	middleLeftTarget, ok := routing.Target(2, ZoneLeft)
	if !ok || middleLeftTarget != 0 {
		t.Errorf("expected MIDDLE's LEFT zone to route to camera 0, got %d ok=%v", middleLeftTarget, ok)
	}
}

func TestBuildZoneRoutingMiddleOppositeInverts(t *testing.T) {
	cameras := []Camera{{ID: 0, Role: RoleLeft}, {ID: 1, Role: RoleRight}}
	routing, _, err := BuildZoneRouting(cameras, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, ok := routing.Target(0, ZoneRight)
	if !ok || target != 0 {
		t.Errorf("expected inverted routing to send LEFT's RIGHT zone back to itself's LEFT target, got %d ok=%v", target, ok)
	}
}

func TestBuildZoneRoutingDuplicateRoleErrors(t *testing.T) {
	cameras := []Camera{{ID: 0, Role: RoleLeft}, {ID: 1, Role: RoleLeft}}
	_, _, err := BuildZoneRouting(cameras, false)
	if err == nil {
		t.Error("expected error for duplicate roles")
	}
}

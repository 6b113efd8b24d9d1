package highlight

import "fmt"

// ZoneGeometryConfig controls how wide the periphery bands are when building
// each camera's zone rectangles (spec §4.3). Expressed as normalized
// fractions of the frame so the same config applies to any resolution.
type ZoneGeometryConfig struct {
	EdgeMargin       float64 // width of LEFT/RIGHT bands
	TopBandHeight    float64 // height of TOP/RIGHT_TOP bands
	BottomBandHeight float64 // height of BOTTOM/RIGHT_BOTTOM bands
	EqualHalfWidth   float64 // half-width of the MIDDLE camera's central EQUAL zone
}

// DefaultZoneGeometryConfig returns reasonable periphery-band widths.
func DefaultZoneGeometryConfig() ZoneGeometryConfig {
	return ZoneGeometryConfig{
		EdgeMargin:       0.12,
		TopBandHeight:    0.12,
		BottomBandHeight: 0.12,
		EqualHalfWidth:   0.08,
	}
}

// BuildZones returns the labeled zone set for one camera, shaped by its role
// (spec §4.3): LEFT/RIGHT-role cameras get six periphery zones each; a
// MIDDLE-role camera gets LEFT/RIGHT/TOP/BOTTOM bands plus a central EQUAL
// zone.
func BuildZones(role CameraRole, cfg ZoneGeometryConfig) []Zone {
	switch role {
	case RoleLeft:
		return []Zone{
			{Label: ZoneLeft, X1: 0, Y1: 0, X2: cfg.EdgeMargin, Y2: 1},
			{Label: ZoneRight, X1: 1 - cfg.EdgeMargin, Y1: 0, X2: 1, Y2: 1},
			{Label: ZoneRightTop, X1: 1 - cfg.EdgeMargin, Y1: 0, X2: 1, Y2: cfg.TopBandHeight},
			{Label: ZoneRightBottom, X1: 1 - cfg.EdgeMargin, Y1: 1 - cfg.BottomBandHeight, X2: 1, Y2: 1},
			{Label: ZoneTop, X1: 0, Y1: 0, X2: 1, Y2: cfg.TopBandHeight},
			{Label: ZoneBottom, X1: 0, Y1: 1 - cfg.BottomBandHeight, X2: 1, Y2: 1},
		}
	case RoleRight:
		return []Zone{
			{Label: ZoneRight, X1: 1 - cfg.EdgeMargin, Y1: 0, X2: 1, Y2: 1},
			{Label: ZoneLeft, X1: 0, Y1: 0, X2: cfg.EdgeMargin, Y2: 1},
			{Label: ZoneRightTop, X1: 0, Y1: 0, X2: cfg.EdgeMargin, Y2: cfg.TopBandHeight},
			{Label: ZoneRightBottom, X1: 0, Y1: 1 - cfg.BottomBandHeight, X2: cfg.EdgeMargin, Y2: 1},
			{Label: ZoneTop, X1: 0, Y1: 0, X2: 1, Y2: cfg.TopBandHeight},
			{Label: ZoneBottom, X1: 0, Y1: 1 - cfg.BottomBandHeight, X2: 1, Y2: 1},
		}
	case RoleMiddle:
		half := cfg.EqualHalfWidth
		return []Zone{
			{Label: ZoneLeft, X1: 0, Y1: 0, X2: cfg.EdgeMargin, Y2: 1},
			{Label: ZoneRight, X1: 1 - cfg.EdgeMargin, Y1: 0, X2: 1, Y2: 1},
			{Label: ZoneTop, X1: 0, Y1: 0, X2: 1, Y2: cfg.TopBandHeight},
			{Label: ZoneBottom, X1: 0, Y1: 1 - cfg.BottomBandHeight, X2: 1, Y2: 1},
			{Label: ZoneEqual, X1: 0.5 - half, Y1: 0.5 - half, X2: 0.5 + half, Y2: 0.5 + half},
		}
	default:
		return nil
	}
}

// ZoneOf returns the first zone (in the order given) whose rectangle
// contains the normalized point p, or ZoneNone if the point is in no zone.
// Callers provide zones ordered most-specific-first (e.g. RIGHT_TOP before
// RIGHT) so a corner point resolves to the more specific label.
func ZoneOf(zones []Zone, p Point) ZoneLabel {
	for _, z := range zones {
		if z.Contains(p) {
			return z.Label
		}
	}
	return ZoneNone
}

// BuildZoneRouting constructs the static (camera, zone) -> camera routing
// table from role assignments (spec §4.3). MIDDLE's TOP/BOTTOM/EQUAL zones
// are intentionally absent here: they route dynamically by velocity sign,
// resolved by the Switcher through the role->camera map returned here, not
// by this static table.
//
// middleOpposite swaps LEFT and RIGHT camera targets in every route (routes
// to the MIDDLE camera are unchanged), for "middle camera on the opposite
// sideline" (spec §4.3's optional global flag).
func BuildZoneRouting(cameras []Camera, middleOpposite bool) (ZoneRouting, map[CameraRole]int, error) {
	roleCam := map[CameraRole]int{}
	for _, c := range cameras {
		if _, dup := roleCam[c.Role]; dup {
			return ZoneRouting{}, nil, fmt.Errorf("duplicate role %s", c.Role)
		}
		roleCam[c.Role] = c.ID
	}

	routes := map[routeKey]int{}

	leftID, hasLeft := roleCam[RoleLeft]
	rightID, hasRight := roleCam[RoleRight]
	middleID, hasMiddle := roleCam[RoleMiddle]

	awayFromLeft := func() (int, bool) {
		if hasMiddle {
			return middleID, true
		}
		return rightID, hasRight
	}
	awayFromRight := func() (int, bool) {
		if hasMiddle {
			return middleID, true
		}
		return leftID, hasLeft
	}

	if hasLeft {
		target, ok := awayFromLeft()
		if ok {
			for _, z := range []ZoneLabel{ZoneLeft, ZoneRight, ZoneRightTop, ZoneRightBottom, ZoneTop, ZoneBottom} {
				routes[routeKey{CameraID: leftID, Zone: z}] = target
			}
		}
	}

	if hasRight {
		target, ok := awayFromRight()
		if ok {
			for _, z := range []ZoneLabel{ZoneLeft, ZoneRight, ZoneRightTop, ZoneRightBottom, ZoneTop, ZoneBottom} {
				routes[routeKey{CameraID: rightID, Zone: z}] = target
			}
		}
	}

	if hasMiddle {
		if hasLeft {
			routes[routeKey{CameraID: middleID, Zone: ZoneLeft}] = leftID
		}
		if hasRight {
			routes[routeKey{CameraID: middleID, Zone: ZoneRight}] = rightID
		}
	}

	if middleOpposite {
		routes = invertRoutes(routes, roleCam)
	}

	return ZoneRouting{routes: routes}, roleCam, nil
}

// invertRoutes swaps LEFT<->RIGHT targets for every route, the "middle
// camera on the opposite sideline" case (spec §4.3).
func invertRoutes(routes map[routeKey]int, roleCam map[CameraRole]int) map[routeKey]int {
	leftID, hasLeft := roleCam[RoleLeft]
	rightID, hasRight := roleCam[RoleRight]
	if !hasLeft || !hasRight {
		return routes
	}

	inverted := make(map[routeKey]int, len(routes))
	for k, v := range routes {
		switch v {
		case leftID:
			inverted[k] = rightID
		case rightID:
			inverted[k] = leftID
		default:
			inverted[k] = v
		}
	}
	return inverted
}

package highlight

import "sync"

// EMASmoother applies exponential moving-average smoothing to a scalar
// stream: a lagged IIR filter with a directly configurable alpha rather than
// a gain derived from a process/measurement noise ratio, keeping the same
// Update/Reset/State method set a Kalman-style filter would expose.
type EMASmoother struct {
	mu sync.Mutex

	alpha       float64
	x           float64
	initialized bool
}

// NewEMASmoother creates a smoother with the given weight on new
// measurements: alpha=1 tracks the measurement exactly (no smoothing),
// alpha near 0 barely moves (maximum smoothing).
func NewEMASmoother(alpha float64) *EMASmoother {
	if alpha <= 0 {
		alpha = 0.01
	}
	if alpha > 1 {
		alpha = 1
	}
	return &EMASmoother{alpha: alpha}
}

// Update folds in a new measurement and returns the smoothed value.
func (s *EMASmoother) Update(measurement float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		s.x = measurement
		s.initialized = true
		return measurement
	}
	s.x = s.x + s.alpha*(measurement-s.x)
	return s.x
}

// Reset clears the filter state so the next Update initializes fresh.
func (s *EMASmoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x = 0
	s.initialized = false
}

// State returns the current smoothed value without updating it.
func (s *EMASmoother) State() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x
}

// PointSmoother applies independent EMA smoothing to each axis of a 2-D
// point by composing two EMASmoothers.
type PointSmoother struct {
	x, y *EMASmoother
}

// NewPointSmoother creates a 2-D point smoother with the given alpha.
func NewPointSmoother(alpha float64) *PointSmoother {
	return &PointSmoother{x: NewEMASmoother(alpha), y: NewEMASmoother(alpha)}
}

// Update folds in a new measurement and returns the smoothed point.
func (p *PointSmoother) Update(pt Point) Point {
	return Point{X: p.x.Update(pt.X), Y: p.y.Update(pt.Y)}
}

// Reset clears both axes' filter state.
func (p *PointSmoother) Reset() {
	p.x.Reset()
	p.y.Reset()
}

// State returns the current smoothed point without updating it.
func (p *PointSmoother) State() Point {
	return Point{X: p.x.State(), Y: p.y.State()}
}

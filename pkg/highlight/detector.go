package highlight

import "sync"

// DetectorConfig bundles the Ball Detector's thresholds (spec §4.1, §6.4).
type DetectorConfig struct {
	// TauConf is the minimum candidate confidence considered at all.
	TauConf float64
	// TauHigh is the confidence above which motion(c) is forced to 1
	// regardless of distance from the prior.
	TauHigh float64
	// DeltaMax is the pixel distance above which motion(c) = 0 unless
	// conf(c) >= TauHigh.
	DeltaMax float64
	// PitchMaskEnabled toggles the HSV green-band prior; disabled, pitch(c)
	// is always 1.
	PitchMaskEnabled bool
	// BallClass restricts candidates to this class label; empty means no
	// filter (the backend already returned only ball candidates).
	BallClass string
}

// PitchMasker reports whether a normalized point lies on the playing field.
// Implemented by the gocv HSV-mask backend in pitchmask_gocv.go; a detector
// built with PitchMaskEnabled=false never calls it.
type PitchMasker interface {
	OnPitch(frame Frame, center Point) bool
}

// Detector implements the Ball Detector (spec §4.1): a pure per-frame
// scoring function over a ModelBackend's raw candidates, with one piece of
// retained state — the motion prior — exactly as spec'd ("must not retain
// mutable state other than the motion prior").
type Detector struct {
	mu sync.Mutex

	backend ModelBackend
	pitch   PitchMasker
	cfg     DetectorConfig

	hasPrior bool
	priorPt  Point
	priorIdx int64
}

// NewDetector constructs a Detector over the given backend and config. pitch
// may be nil when cfg.PitchMaskEnabled is false.
func NewDetector(backend ModelBackend, pitch PitchMasker, cfg DetectorConfig) *Detector {
	return &Detector{backend: backend, pitch: pitch, cfg: cfg}
}

// Detect runs one detection pass: infer candidates, gate by confidence and
// class, score, and return the argmax (or an empty Detection). Model
// invocation errors are downgraded to an empty Detection with meta.error set
// (spec §4.1 failure semantics) — the motion prior is left untouched so a
// transient backend error never poisons tracking.
func (d *Detector) Detect(frame Frame) Detection {
	d.mu.Lock()
	defer d.mu.Unlock()

	candidates, err := d.backend.Infer(frame)
	if err != nil {
		return Detection{Meta: DetectionMeta{Error: true}}
	}

	best, _, ok := d.selectBest(frame, candidates)
	if !ok {
		return Detection{}
	}

	d.hasPrior = true
	d.priorPt = best.Box.Center()
	d.priorIdx = frame.TimelineIndex

	return Detection{
		Box:    best.Box,
		Center: best.Box.Center(),
		Conf:   best.Conf,
		Meta:   DetectionMeta{RawCenter: best.Box.Center()},
	}
}

// selectBest applies the confidence/class gate, scores every surviving
// candidate, rejects zero-score candidates, and returns the argmax with the
// spec's tie-break (confidence, then distance to prior).
func (d *Detector) selectBest(frame Frame, candidates []Candidate) (Candidate, float64, bool) {
	var (
		best      Candidate
		bestScore float64
		found     bool
	)

	for _, c := range candidates {
		if c.Conf < d.cfg.TauConf {
			continue
		}
		if d.cfg.BallClass != "" && c.Class != "" && c.Class != d.cfg.BallClass {
			continue
		}

		score := d.score(frame, c)
		if score <= 0 {
			continue
		}

		if !found {
			best, bestScore, found = c, score, true
			continue
		}

		switch {
		case score > bestScore:
			best, bestScore = c, score
		case score == bestScore:
			best = d.breakTie(best, c)
		}
	}

	return best, bestScore, found
}

// score computes conf(c) * motion(c) * pitch(c) per spec §4.1.
func (d *Detector) score(frame Frame, c Candidate) float64 {
	return c.Conf * d.motion(c) * d.pitchScore(frame, c)
}

func (d *Detector) motion(c Candidate) float64 {
	if !d.hasPrior || c.Conf >= d.cfg.TauHigh {
		return 1
	}

	dist := c.Box.Center().Dist(d.priorPt)
	if dist >= d.cfg.DeltaMax {
		return 0
	}
	// Monotone-decreasing in distance, reaching 0 exactly at DeltaMax.
	return 1 - dist/d.cfg.DeltaMax
}

func (d *Detector) pitchScore(frame Frame, c Candidate) float64 {
	if !d.cfg.PitchMaskEnabled || d.pitch == nil {
		return 1
	}
	norm := c.Box.Normalize(float64(frame.Pixels.Width), float64(frame.Pixels.Height)).Center()
	if d.pitch.OnPitch(frame, norm) {
		return 1
	}
	return 0.3
}

// breakTie resolves a score tie by confidence, then by minimum distance to
// the motion prior (spec §4.1 edge case). When no prior exists either, the
// first candidate encountered wins, matching an argmax-with-stable-order.
func (d *Detector) breakTie(a, b Candidate) Candidate {
	if a.Conf != b.Conf {
		if b.Conf > a.Conf {
			return b
		}
		return a
	}
	if !d.hasPrior {
		return a
	}
	if b.Box.Center().Dist(d.priorPt) < a.Box.Center().Dist(d.priorPt) {
		return b
	}
	return a
}

// Reset clears the motion prior, used at teardown or whenever the caller
// wants a fresh detector state (e.g. tests).
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasPrior = false
	d.priorPt = Point{}
	d.priorIdx = 0
}

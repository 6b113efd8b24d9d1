package highlight

import "context"

// Phase0Config bounds the startup scan (spec §4.4).
type Phase0Config struct {
	NScan int // frames to scan per stream
}

// Phase0Stream is the minimal view Phase 0 needs of each candidate stream:
// read a frame and report the camera id it belongs to.
type Phase0Stream interface {
	CameraID() int
	Read(ctx context.Context) (Frame, error)
}

// phase0Tally accumulates one stream's scan results.
type phase0Tally struct {
	cameraID   int
	validCount int
	confSum    float64
}

func (t phase0Tally) meanConf() float64 {
	if t.validCount == 0 {
		return 0
	}
	return t.confSum / float64(t.validCount)
}

// RunPhase0 scans every stream for up to cfg.NScan frames each, accumulating
// detection counts and mean confidence, and returns the argmax camera id by
// (valid detections, then mean confidence), per spec §4.4.
//
// This runs before the main tick loop owns any stream, so it reads each
// stream sequentially; unlike the fallback scanner there is no per-tick
// budget to share, only a startup time/frame cap.
func RunPhase0(ctx context.Context, streams []Phase0Stream, detector *Detector, cfg Phase0Config) (int, error) {
	if len(streams) == 0 {
		return 0, &RunError{Kind: KindConfig, Wrapped: errNoStreams}
	}

	tallies := make([]phase0Tally, len(streams))
	for i, s := range streams {
		tallies[i].cameraID = s.CameraID()
		detector.Reset() // motion prior is per-camera; never carry it across streams

		for n := 0; n < cfg.NScan; n++ {
			select {
			case <-ctx.Done():
				return bestPhase0(tallies), nil
			default:
			}

			frame, err := s.Read(ctx)
			if err != nil {
				break // this stream ran out or failed; scan what we have
			}
			det := detector.Detect(frame)
			if det.Empty() {
				continue
			}
			tallies[i].validCount++
			tallies[i].confSum += det.Conf
		}
	}

	return bestPhase0(tallies), nil
}

func bestPhase0(tallies []phase0Tally) int {
	best := tallies[0]
	for _, t := range tallies[1:] {
		if t.validCount > best.validCount {
			best = t
			continue
		}
		if t.validCount == best.validCount && t.meanConf() > best.meanConf() {
			best = t
		}
	}
	return best.cameraID
}

var errNoStreams = &noStreamsError{}

type noStreamsError struct{}

func (*noStreamsError) Error() string { return "phase0: no streams provided" }

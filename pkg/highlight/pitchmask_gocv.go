//go:build cgo
// +build cgo

package highlight

import (
	"image"

	"gocv.io/x/gocv"
)

// HSVPitchMasker implements PitchMasker with an HSV green-band threshold,
// the pitch prior spec §4.1 describes ("boolean per-pixel map of 'is on the
// playing field', typically via an HSV green band").
type HSVPitchMasker struct {
	lowerH, lowerS, lowerV float64
	upperH, upperS, upperV float64
}

// NewHSVPitchMasker creates a masker with the given HSV band (OpenCV's
// 0-179 hue range). cmd/highlighter passes a fixed band tuned for a typical
// broadcast pitch green.
func NewHSVPitchMasker(lowerH, lowerS, lowerV, upperH, upperS, upperV float64) *HSVPitchMasker {
	return &HSVPitchMasker{
		lowerH: lowerH, lowerS: lowerS, lowerV: lowerV,
		upperH: upperH, upperS: upperS, upperV: upperV,
	}
}

// OnPitch reports whether the normalized point center lies within the HSV
// green band on the frame's backing mat.
func (m *HSVPitchMasker) OnPitch(frame Frame, center Point) bool {
	mat, ok := FrameMat(frame)
	if !ok || mat == nil || mat.Empty() {
		return false
	}

	px := int(center.X * float64(mat.Cols()))
	py := int(center.Y * float64(mat.Rows()))
	if px < 0 || py < 0 || px >= mat.Cols() || py >= mat.Rows() {
		return false
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(*mat, &hsv, gocv.ColorRGBToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lower := gocv.NewScalar(m.lowerH, m.lowerS, m.lowerV, 0)
	upper := gocv.NewScalar(m.upperH, m.upperS, m.upperV, 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	return mask.GetUCharAt(py, px) > 0
}

// OnPitchRegion reports the fraction of pixels on the pitch within a small
// pixel-space box, a region-level alternative to OnPitch's single-pixel
// test. Nothing in the pipeline calls it.
func (m *HSVPitchMasker) OnPitchRegion(frame Frame, box image.Rectangle) float64 {
	mat, ok := FrameMat(frame)
	if !ok || mat == nil || mat.Empty() {
		return 0
	}

	bounds := image.Rect(0, 0, mat.Cols(), mat.Rows()).Intersect(box)
	if bounds.Empty() {
		return 0
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(*mat, &hsv, gocv.ColorRGBToHSV)

	roi := hsv.Region(bounds)
	defer roi.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	lower := gocv.NewScalar(m.lowerH, m.lowerS, m.lowerV, 0)
	upper := gocv.NewScalar(m.upperH, m.upperS, m.upperV, 0)
	gocv.InRangeWithScalar(roi, lower, upper, &mask)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	onPitch := gocv.CountNonZero(mask)
	return float64(onPitch) / float64(total)
}

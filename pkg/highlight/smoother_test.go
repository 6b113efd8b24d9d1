package highlight

import (
	"math"
	"testing"
)

func TestNewEMASmoother(t *testing.T) {
	s := NewEMASmoother(0.5)
	if s == nil {
		t.Fatal("expected non-nil smoother")
	}
}

func TestEMASmootherUpdate(t *testing.T) {
	s := NewEMASmoother(0.5)

	result := s.Update(10.0)
	if result != 10.0 {
		t.Errorf("first update should return measurement, got %f", result)
	}

	result = s.Update(12.0)
	if result <= 10.0 || result >= 12.0 {
		t.Errorf("expected smoothed value between 10 and 12, got %f", result)
	}
}

func TestEMASmootherSmoothing(t *testing.T) {
	s := NewEMASmoother(0.2) // lower alpha = more smoothing

	measurements := []float64{50, 52, 48, 51, 49, 50, 53, 47, 51, 49}

	var results []float64
	for _, m := range measurements {
		results = append(results, s.Update(m))
	}

	if variance(results) >= variance(measurements) {
		t.Errorf("expected output variance (%f) < input variance (%f)", variance(results), variance(measurements))
	}
}

func TestEMASmootherReset(t *testing.T) {
	s := NewEMASmoother(0.5)
	s.Update(100.0)
	s.Update(100.0)

	s.Reset()

	result := s.Update(50.0)
	if result != 50.0 {
		t.Errorf("after reset, expected 50.0, got %f", result)
	}
}

func TestEMASmootherAlphaClamped(t *testing.T) {
	tests := []struct {
		alpha float64
		want  float64
	}{
		{-1, 0.01},
		{0, 0.01},
		{2, 1},
	}
	for _, tt := range tests {
		s := NewEMASmoother(tt.alpha)
		if s.alpha != tt.want {
			t.Errorf("alpha %v: expected clamp to %v, got %v", tt.alpha, tt.want, s.alpha)
		}
	}
}

func TestPointSmoother(t *testing.T) {
	s := NewPointSmoother(0.5)

	p := Point{X: 1, Y: 2}
	result := s.Update(p)
	if result.X != 1 || result.Y != 2 {
		t.Errorf("first update should return input point, got %+v", result)
	}

	p2 := Point{X: 2, Y: 3}
	result2 := s.Update(p2)
	if result2.X <= 1 || result2.X >= 2 {
		t.Errorf("expected X between 1 and 2, got %f", result2.X)
	}
}

func TestPointSmootherReset(t *testing.T) {
	s := NewPointSmoother(0.5)
	s.Update(Point{X: 100, Y: 100})
	s.Reset()

	result := s.Update(Point{X: 50, Y: 50})
	if result.X != 50 || result.Y != 50 {
		t.Errorf("after reset, expected (50,50), got %+v", result)
	}
}

// variance calculates the variance of a slice of float64.
func variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	var sum float64
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	var sumSq float64
	for _, v := range data {
		diff := v - mean
		sumSq += diff * diff
	}

	return sumSq / float64(len(data))
}

func TestEMASmootherFactors(t *testing.T) {
	tests := []struct {
		alpha float64
		desc  string
	}{
		{0.01, "maximum smoothing"},
		{0.5, "medium smoothing"},
		{1.0, "no smoothing"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			s := NewEMASmoother(tt.alpha)
			s.Update(0)

			var result float64
			for i := 0; i < 10; i++ {
				result = s.Update(100)
			}

			if tt.alpha >= 0.9 && math.Abs(result-100) > 10 {
				t.Errorf("high alpha should track quickly, got %f", result)
			}
		})
	}
}

package conjunction

import (
	"math"
	"testing"
)

func TestScoreAnchorValues(t *testing.T) {
	// d = d0 gives proximity exactly 0.5, so the score is tanh(v/v0)/2.
	for _, v := range []float64{0.5, 7.5, 12} {
		want := math.Tanh(v/DefaultSpeedScaleKMS) / 2
		if got := Score(6500, v, 6500); math.Abs(got-want) > 1e-12 {
			t.Errorf("Score(6500, %v, 6500) = %v, want %v", v, got, want)
		}
	}

	// The documented example: d = d0 = 6500, v = 7.5 → ≈ 0.5·tanh(1).
	if got := Score(6500, 7.5, 6500); math.Abs(got-0.5*math.Tanh(1)) > 1e-12 {
		t.Errorf("Score = %v, want %v", got, 0.5*math.Tanh(1))
	}

	// Zero relative speed zeroes the score regardless of distance scale.
	for _, d0 := range []float64{1, 6500, 1e6} {
		if got := Score(0, 0, d0); got != 0 {
			t.Errorf("Score(0, 0, %v) = %v, want 0", d0, got)
		}
	}
}

func TestScoreMonotonicity(t *testing.T) {
	// Non-increasing in distance.
	prev := math.Inf(1)
	for d := 0.0; d <= 20000; d += 500 {
		s := Score(d, 7.5, 6500)
		if s > prev {
			t.Fatalf("score increased with distance at d=%v: %v > %v", d, s, prev)
		}
		prev = s
	}

	// Non-decreasing in speed.
	prev = -1
	for v := 0.0; v <= 15; v += 0.5 {
		s := Score(100, v, 6500)
		if s < prev {
			t.Fatalf("score decreased with speed at v=%v: %v < %v", v, s, prev)
		}
		prev = s
	}
}

func TestScoreBoundsAndClamps(t *testing.T) {
	// Always within [0, 1].
	for _, c := range []struct{ d, v, d0 float64 }{
		{0, 1000, 6500},
		{1e9, 0.001, 6500},
		{0, 0.001, 1e-12}, // d0 below the floor
	} {
		s := Score(c.d, c.v, c.d0)
		if s < 0 || s > 1 {
			t.Errorf("Score(%v, %v, %v) = %v out of [0,1]", c.d, c.v, c.d0, s)
		}
	}

	// Negative inputs are treated as zero.
	if got, want := Score(-5, 7.5, 6500), Score(0, 7.5, 6500); got != want {
		t.Errorf("negative distance not clamped: %v vs %v", got, want)
	}
	if got, want := Score(100, -3, 6500), Score(100, 0, 6500); got != want {
		t.Errorf("negative speed not clamped: %v vs %v", got, want)
	}

	// Large but finite distance still yields a strictly positive score.
	if got := Score(1e6, 7.5, 6500); got <= 0 {
		t.Errorf("score hard-capped at zero for finite distance: %v", got)
	}
}

func TestScoreWithSpeedScale(t *testing.T) {
	if got, want := ScoreWithSpeedScale(6500, 15, 6500, 15), math.Tanh(1)/2; math.Abs(got-want) > 1e-12 {
		t.Errorf("ScoreWithSpeedScale = %v, want %v", got, want)
	}
}

package agro

import (
	"math"
	"testing"
)

func TestGDD(t *testing.T) {
	if got := GDD(10, 30, 10); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	// Average below base clamps to zero.
	if got := GDD(2, 8, 10); got != 0 {
		t.Fatalf("expected 0 below base, got %v", got)
	}
}

func TestAccumulatedGDD(t *testing.T) {
	days := [][2]float64{{10, 30}, {12, 28}, {2, 8}}
	if got := AccumulatedGDD(days, 10); got != 20 {
		t.Fatalf("expected 20, got %v", got)
	}
}

func TestPenmanET(t *testing.T) {
	et := PenmanET(25, 60, 2, 20)
	if et < 0 || math.IsNaN(et) || math.IsInf(et, 0) {
		t.Fatalf("ET must be finite and non-negative, got %v", et)
	}

	// Hotter and drier air should not lower the estimate to zero.
	if PenmanET(35, 30, 3, 25) <= 0 {
		t.Fatal("hot dry conditions must give positive ET")
	}
}

func TestEstimateET(t *testing.T) {
	if got := EstimateET(20); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := EstimateET(-5); got != 0 {
		t.Fatalf("negative temperatures must clamp to 0, got %v", got)
	}
}

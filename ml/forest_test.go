package ml

import (
	"math"
	"testing"
)

func trainingVectors() ([][]float64, []float64) {
	features := [][]float64{
		{18, 500, 6.8}, {25, 800, 6.2}, {22, 650, 6.5}, {16, 430, 6.4},
		{27, 1100, 5.9}, {19, 520, 6.9}, {24, 760, 6.6}, {15, 380, 6.0},
		{23, 700, 6.7}, {26, 1200, 5.8},
	}
	targets := []float64{4.2, 6.5, 6.0, 3.2, 5.7, 4.5, 6.6, 2.5, 6.2, 5.9}
	return features, targets
}

func TestForestFitAndPredict(t *testing.T) {
	features, targets := trainingVectors()

	forest := NewForest()
	if err := forest.Fit(features, targets); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if len(forest.Trees) != 100 {
		t.Fatalf("expected 100 trees, got %d", len(forest.Trees))
	}

	for i, vec := range features {
		v, err := forest.Predict(vec)
		if err != nil {
			t.Fatalf("predict %d failed: %v", i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("predict %d not finite: %v", i, v)
		}
	}
}

func TestForestDeterministicSeed(t *testing.T) {
	features, targets := trainingVectors()

	a := NewForest()
	if err := a.Fit(features, targets); err != nil {
		t.Fatalf("first fit failed: %v", err)
	}
	b := NewForest()
	if err := b.Fit(features, targets); err != nil {
		t.Fatalf("second fit failed: %v", err)
	}

	probe := []float64{21, 600, 6.5}
	va, err := a.Predict(probe)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	vb, err := b.Predict(probe)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if va != vb {
		t.Fatalf("same seed must give same prediction: %v vs %v", va, vb)
	}
}

func TestForestPredictUnfitted(t *testing.T) {
	forest := NewForest()
	if _, err := forest.Predict([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected error from unfitted forest")
	}
}

func TestForestFitEmpty(t *testing.T) {
	forest := NewForest()
	if err := forest.Fit(nil, nil); err == nil {
		t.Fatal("expected error for empty training data")
	}
	if err := forest.Fit([][]float64{{1}}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

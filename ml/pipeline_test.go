package ml

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func fitModernPipeline(t *testing.T) *Pipeline {
	t.Helper()
	records := sampleRecords()
	targets := []float64{4.2, 6.5, 6.0}

	encoder := FitEncoder(records)
	forest := NewForest()
	if err := forest.Fit(encoder.TransformAll(records), targets); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	return &Pipeline{Schema: SchemaModern, Encoder: encoder, Forest: forest}
}

func TestPipelineSaveLoadRoundTrip(t *testing.T) {
	pipeline := fitModernPipeline(t)
	path := filepath.Join(t.TempDir(), "crop.json")

	if err := pipeline.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Schema != SchemaModern {
		t.Fatalf("expected modern schema, got %q", loaded.Schema)
	}
	if loaded.Encoder == nil {
		t.Fatal("encoder must travel inside the artifact")
	}

	in := RecordInput(sampleRecords()[0])
	want, err := pipeline.Predict(in)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	got, err := loaded.Predict(in)
	if err != nil {
		t.Fatalf("predict after load failed: %v", err)
	}
	if want != got {
		t.Fatalf("round trip changed prediction: %v vs %v", want, got)
	}
}

func TestPipelineSchemaMismatch(t *testing.T) {
	pipeline := fitModernPipeline(t)

	_, err := pipeline.Predict(VectorInput([]float64{20, 500, 6.5, 300, 40}))
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestPipelineSaveUnfitted(t *testing.T) {
	p := &Pipeline{Schema: SchemaModern, Forest: NewForest()}
	if err := p.Save(filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Fatal("expected error saving unfitted pipeline")
	}
}

func TestRSquared(t *testing.T) {
	actual := []float64{1, 2, 3, 4}

	if got := RSquared(actual, actual); got != 1 {
		t.Fatalf("perfect fit must score 1, got %v", got)
	}

	predicted := []float64{2.5, 2.5, 2.5, 2.5}
	if got := RSquared(predicted, actual); got != 0 {
		t.Fatalf("mean prediction must score 0, got %v", got)
	}

	// Worse than the mean is allowed to go negative.
	worse := []float64{4, 3, 2, 1}
	if got := RSquared(worse, actual); got >= 0 {
		t.Fatalf("anti-correlated fit must be negative, got %v", got)
	}

	if got := RSquared([]float64{5, 5}, []float64{3, 3}); got != 0 {
		t.Fatalf("constant target with residuals must score 0, got %v", got)
	}
	if got := RSquared([]float64{3, 3}, []float64{3, 3}); got != 1 {
		t.Fatalf("exact constant fit must score 1, got %v", got)
	}
	if math.IsNaN(RSquared(nil, nil)) {
		t.Fatal("empty input must not be NaN")
	}
}

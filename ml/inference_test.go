package ml

import (
	"errors"
	"math"
	"testing"
)

func newTestPredictor(t *testing.T, sourcePath string) (*Predictor, *Registry, *Trainer) {
	t.Helper()
	registry := newTestRegistry(t)
	if sourcePath == "" {
		sourcePath = t.TempDir() + "/absent.csv"
	}
	trainer := NewTrainer(registry, sourcePath, nil)
	return NewPredictor(registry, trainer, nil), registry, trainer
}

func TestPredictUnknownModel(t *testing.T) {
	predictor, _, _ := newTestPredictor(t, "")

	_, err := predictor.Predict([]FeatureInput{VectorInput([]float64{1, 2, 3, 4, 5})}, "no_such_model")
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestPredictNoInputs(t *testing.T) {
	predictor, _, _ := newTestPredictor(t, "")
	if _, err := predictor.Predict(nil, "default"); err == nil {
		t.Fatal("expected error for empty input batch")
	}
}

func TestPredictDemoFallback(t *testing.T) {
	// Demo name, no artifact, no training source: the whole batch is
	// served heuristically and nothing is registered.
	predictor, registry, _ := newTestPredictor(t, "")

	inputs := []FeatureInput{
		VectorInput([]float64{20, 500, 6.5, 300, 40}),
		VectorInput([]float64{25, 800, 6.2, 360, 55}),
		RecordInput(Record{Region: "North", Crop: "Wheat", TemperatureC: 20, RainfallMM: 500, PH: 6.5}),
	}
	predictions, err := predictor.Predict(inputs, "default")
	if err != nil {
		t.Fatalf("demo fallback must not error: %v", err)
	}
	if len(predictions) != len(inputs) {
		t.Fatalf("expected %d predictions, got %d", len(inputs), len(predictions))
	}
	for i, p := range predictions {
		if p.Source != SourceFallback {
			t.Fatalf("prediction %d: expected fallback source, got %q", i, p.Source)
		}
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			t.Fatalf("prediction %d not finite: %v", i, p.Value)
		}
	}

	// Legacy heuristic is the fixed closed form.
	want := 3.0 + 20*0.05 + 500*0.002
	if predictions[0].Value != want {
		t.Fatalf("legacy heuristic: expected %v, got %v", want, predictions[0].Value)
	}

	if _, ok := registry.Get("default"); ok {
		t.Fatal("fallback serving must not register a model")
	}
	if registry.HasArtifact("default") {
		t.Fatal("fallback serving must not persist anything")
	}
}

func TestPredictAfterTrain(t *testing.T) {
	predictor, _, trainer := newTestPredictor(t, "")
	inputs, targets := modernTrainingSet()

	if _, err := trainer.Train(inputs, targets, "crop"); err != nil {
		t.Fatalf("train failed: %v", err)
	}

	predictions, err := predictor.Predict(inputs[:1], "crop")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if predictions[0].Source != SourceModel {
		t.Fatalf("expected model source, got %q", predictions[0].Source)
	}
	if math.IsNaN(predictions[0].Value) || math.IsInf(predictions[0].Value, 0) {
		t.Fatalf("prediction not finite: %v", predictions[0].Value)
	}
}

func TestPredictSchemaMismatchPlaceholder(t *testing.T) {
	predictor, _, trainer := newTestPredictor(t, "")
	inputs, targets := modernTrainingSet()

	if _, err := trainer.Train(inputs, targets, "crop"); err != nil {
		t.Fatalf("train failed: %v", err)
	}

	// Legacy vectors against a modern pipeline degrade per input, never
	// fail the batch.
	batch := []FeatureInput{
		VectorInput([]float64{20, 500, 6.5, 300, 40}),
		inputs[0],
	}
	predictions, err := predictor.Predict(batch, "crop")
	if err != nil {
		t.Fatalf("mismatched batch must not error: %v", err)
	}
	if predictions[0].Source != SourcePlaceholder {
		t.Fatalf("mismatched input: expected placeholder, got %q", predictions[0].Source)
	}
	if predictions[1].Source != SourceModel {
		t.Fatalf("matching input: expected model, got %q", predictions[1].Source)
	}
}

func TestPredictLoadsPersistedArtifact(t *testing.T) {
	dir := t.TempDir()
	first, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("registry init: %v", err)
	}
	trainer := NewTrainer(first, "", nil)
	inputs, targets := modernTrainingSet()
	if _, err := trainer.Train(inputs, targets, "crop"); err != nil {
		t.Fatalf("train failed: %v", err)
	}

	// Fresh registry over the same directory: the predictor lazy-loads
	// from disk on the first request.
	second, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("registry init: %v", err)
	}
	predictor := NewPredictor(second, NewTrainer(second, t.TempDir()+"/absent.csv", nil), nil)

	predictions, err := predictor.Predict(inputs[:1], "crop")
	if err != nil {
		t.Fatalf("predict after restart failed: %v", err)
	}
	if predictions[0].Source != SourceModel {
		t.Fatalf("expected model source after lazy load, got %q", predictions[0].Source)
	}
	if _, ok := second.Get("crop"); !ok {
		t.Fatal("lazy load must register the pipeline")
	}
}

func TestPredictAutoTrainsDemoModel(t *testing.T) {
	path := writeSourceFile(t, sampleCSV)
	predictor, registry, _ := newTestPredictor(t, path)

	in := RecordInput(Record{Region: "North", Crop: "Wheat", SoilType: "Loam", RainfallMM: 520, TemperatureC: 18.5, PH: 6.8})
	predictions, err := predictor.Predict([]FeatureInput{in}, "default")
	if err != nil {
		t.Fatalf("predict with auto-train failed: %v", err)
	}
	if predictions[0].Source != SourceModel {
		t.Fatalf("auto-trained demo must serve model predictions, got %q", predictions[0].Source)
	}
	if !registry.HasArtifact("default") {
		t.Fatal("auto-training must persist the demo artifact")
	}
}

func TestTrainPredictScenario(t *testing.T) {
	predictor, _, trainer := newTestPredictor(t, "")

	rec := Record{Region: "A", Crop: "Maize", SoilType: "Loam", RainfallMM: 500, TemperatureC: 25, PH: 6.5}
	inputs := make([]FeatureInput, 20)
	targets := make([]float64, 20)
	for i := range inputs {
		inputs[i] = RecordInput(rec)
		targets[i] = 3.0 + float64(i)*0.1
	}

	result, err := trainer.Train(inputs, targets, "demo")
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if result.Status != "success" {
		t.Fatalf("expected success status, got %q", result.Status)
	}
	if math.IsNaN(result.Score) || result.Score > 1.0 {
		t.Fatalf("score must be a float at most 1.0, got %v", result.Score)
	}

	predictions, err := predictor.Predict([]FeatureInput{RecordInput(rec)}, "demo")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if len(predictions) != 1 {
		t.Fatalf("expected one prediction, got %d", len(predictions))
	}
	if math.IsNaN(predictions[0].Value) || math.IsInf(predictions[0].Value, 0) {
		t.Fatalf("prediction not finite: %v", predictions[0].Value)
	}
}

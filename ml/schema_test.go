package ml

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeInputs(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`[22.5, 650, 6.5, 310, 45]`),
		json.RawMessage(`{"Region":"North","Crop":"Wheat","Soil_Type":"Loam","Rainfall_mm":520,"Temperature_C":18.5,"pH":6.8}`),
	}

	inputs, err := DecodeInputs(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if inputs[0].Kind != SchemaLegacy || len(inputs[0].Vector) != 5 {
		t.Fatalf("array must decode as legacy vector: %+v", inputs[0])
	}
	if inputs[1].Kind != SchemaModern || inputs[1].Record.Crop != "Wheat" {
		t.Fatalf("object must decode as labeled record: %+v", inputs[1])
	}
}

func TestDecodeInputsRejectsScalars(t *testing.T) {
	if _, err := DecodeInputs([]json.RawMessage{json.RawMessage(`42`)}); err == nil {
		t.Fatal("expected error for scalar feature entry")
	}
}

func TestValidateTrainingSet(t *testing.T) {
	legacy := []FeatureInput{
		VectorInput([]float64{1, 2, 3}),
		VectorInput([]float64{4, 5, 6}),
	}

	if _, err := validateTrainingSet(nil, nil); !errors.Is(err, ErrInvalidTrainingSet) {
		t.Fatalf("empty set: expected ErrInvalidTrainingSet, got %v", err)
	}
	if _, err := validateTrainingSet(legacy, []float64{1}); !errors.Is(err, ErrInvalidTrainingSet) {
		t.Fatalf("length mismatch: expected ErrInvalidTrainingSet, got %v", err)
	}

	mixed := []FeatureInput{legacy[0], RecordInput(Record{Region: "North"})}
	if _, err := validateTrainingSet(mixed, []float64{1, 2}); !errors.Is(err, ErrInvalidTrainingSet) {
		t.Fatalf("mixed schemas: expected ErrInvalidTrainingSet, got %v", err)
	}

	ragged := []FeatureInput{legacy[0], VectorInput([]float64{1, 2})}
	if _, err := validateTrainingSet(ragged, []float64{1, 2}); !errors.Is(err, ErrInvalidTrainingSet) {
		t.Fatalf("ragged vectors: expected ErrInvalidTrainingSet, got %v", err)
	}

	kind, err := validateTrainingSet(legacy, []float64{1, 2})
	if err != nil || kind != SchemaLegacy {
		t.Fatalf("valid legacy set rejected: %v %v", kind, err)
	}
}

func TestLegacyName(t *testing.T) {
	if got := LegacyName("crop"); got != "crop_legacy" {
		t.Fatalf("expected crop_legacy, got %q", got)
	}
	if got := LegacyName("crop_legacy"); got != "crop_legacy" {
		t.Fatalf("suffix must not double up, got %q", got)
	}
}

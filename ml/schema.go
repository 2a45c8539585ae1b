package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Schema identifies the feature-record lineage a model was trained under.
// It is fixed at training time and never re-inferred.
type Schema string

const (
	// SchemaLegacy is the fixed-order numeric vector format:
	// [temperature, rainfall, pH, GDD, moisture].
	SchemaLegacy Schema = "legacy"
	// SchemaModern is the labeled-record format with named agronomic fields.
	SchemaModern Schema = "modern"
)

// CategoryUnknown is the sentinel filled in for absent categorical fields.
const CategoryUnknown = "unknown"

// Record is a modern-schema feature record. JSON field names match the
// column names of the structured training source.
type Record struct {
	Region       string  `json:"Region"`
	Crop         string  `json:"Crop"`
	SoilType     string  `json:"Soil_Type"`
	RainfallMM   float64 `json:"Rainfall_mm"`
	TemperatureC float64 `json:"Temperature_C"`
	PH           float64 `json:"pH"`
}

var (
	numericFields     = []string{"Rainfall_mm", "Temperature_C", "pH"}
	categoricalFields = []string{"Region", "Crop", "Soil_Type"}
)

func (r Record) numeric(field string) float64 {
	switch field {
	case "Rainfall_mm":
		return r.RainfallMM
	case "Temperature_C":
		return r.TemperatureC
	case "pH":
		return r.PH
	}
	return 0
}

func (r Record) categorical(field string) string {
	switch field {
	case "Region":
		return r.Region
	case "Crop":
		return r.Crop
	case "Soil_Type":
		return r.SoilType
	}
	return ""
}

// withDefaults fills categorical gaps with the unknown sentinel. Numeric
// gaps are already zero-valued, which is the neutral default.
func (r Record) withDefaults() Record {
	if r.Region == "" {
		r.Region = CategoryUnknown
	}
	if r.Crop == "" {
		r.Crop = CategoryUnknown
	}
	if r.SoilType == "" {
		r.SoilType = CategoryUnknown
	}
	return r
}

// FeatureInput is the tagged union of the two input variants. Exactly one
// of Vector and Record is populated, according to Kind.
type FeatureInput struct {
	Kind   Schema
	Vector []float64
	Record Record
}

// VectorInput wraps a legacy numeric vector.
func VectorInput(v []float64) FeatureInput {
	return FeatureInput{Kind: SchemaLegacy, Vector: v}
}

// RecordInput wraps a modern labeled record.
func RecordInput(r Record) FeatureInput {
	return FeatureInput{Kind: SchemaModern, Record: r}
}

// DecodeInputs resolves raw JSON feature entries into the tagged union
// once, at the API boundary: arrays become legacy vectors, objects become
// labeled records.
func DecodeInputs(raw []json.RawMessage) ([]FeatureInput, error) {
	inputs := make([]FeatureInput, 0, len(raw))
	for i, msg := range raw {
		trimmed := bytes.TrimSpace(msg)
		if len(trimmed) == 0 {
			return nil, fmt.Errorf("feature %d is empty", i)
		}
		switch trimmed[0] {
		case '[':
			var vec []float64
			if err := json.Unmarshal(trimmed, &vec); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			inputs = append(inputs, VectorInput(vec))
		case '{':
			var rec Record
			if err := json.Unmarshal(trimmed, &rec); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			inputs = append(inputs, RecordInput(rec))
		default:
			return nil, fmt.Errorf("feature %d: expected array or object", i)
		}
	}
	return inputs, nil
}

// validateTrainingSet enforces the training-set invariants: non-empty,
// one target per input, homogeneous schema.
func validateTrainingSet(inputs []FeatureInput, targets []float64) (Schema, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("%w: no feature records", ErrInvalidTrainingSet)
	}
	if len(inputs) != len(targets) {
		return "", fmt.Errorf("%w: %d records but %d targets", ErrInvalidTrainingSet, len(inputs), len(targets))
	}
	kind := inputs[0].Kind
	for i, in := range inputs {
		if in.Kind != kind {
			return "", fmt.Errorf("%w: record %d mixes schemas", ErrInvalidTrainingSet, i)
		}
	}
	if kind == SchemaLegacy {
		width := len(inputs[0].Vector)
		if width == 0 {
			return "", fmt.Errorf("%w: empty feature vector", ErrInvalidTrainingSet)
		}
		for i, in := range inputs {
			if len(in.Vector) != width {
				return "", fmt.Errorf("%w: vector %d has %d values, want %d", ErrInvalidTrainingSet, i, len(in.Vector), width)
			}
		}
	}
	return kind, nil
}

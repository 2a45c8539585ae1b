package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Pipeline pairs a fitted preprocessing transform with its regressor as
// one unit. Legacy pipelines carry no encoder: their regressor consumes
// raw ordered vectors directly. The pair is persisted as a single JSON
// artifact so units and columns can never drift apart on load.
type Pipeline struct {
	Schema  Schema   `json:"schema"`
	Encoder *Encoder `json:"encoder,omitempty"`
	Forest  *Forest  `json:"forest"`
}

// Predict scores one input. Inputs of the wrong schema lineage fail with
// ErrSchemaMismatch rather than being coerced.
func (p *Pipeline) Predict(in FeatureInput) (float64, error) {
	if in.Kind != p.Schema {
		return 0, fmt.Errorf("%w: %s input, %s model", ErrSchemaMismatch, in.Kind, p.Schema)
	}
	switch p.Schema {
	case SchemaModern:
		return p.Forest.Predict(p.Encoder.Transform(in.Record))
	default:
		return p.Forest.Predict(in.Vector)
	}
}

// Save writes the pipeline artifact, creating the models directory if
// needed.
func (p *Pipeline) Save(path string) error {
	if p.Forest == nil || len(p.Forest.Trees) == 0 {
		return fmt.Errorf("pipeline not fitted")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadPipeline reads a persisted pipeline artifact.
func LoadPipeline(path string) (*Pipeline, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Pipeline
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode pipeline %s: %w", path, err)
	}
	if p.Schema == "" || p.Forest == nil {
		return nil, fmt.Errorf("pipeline %s: incomplete artifact", path)
	}
	return &p, nil
}

// RSquared is the coefficient of determination. It is reported raw: a fit
// worse than predicting the mean yields a negative value.
func RSquared(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	actualMean := mean(actual)
	var ssRes, ssTot float64
	for i := range actual {
		r := actual[i] - predicted[i]
		d := actual[i] - actualMean
		ssRes += r * r
		ssTot += d * d
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

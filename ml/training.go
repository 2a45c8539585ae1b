package ml

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LegacySuffix distinguishes models trained on raw numeric vectors from
// modern pipelines sharing the same base name.
const LegacySuffix = "_legacy"

// LegacyName maps a base model name to its legacy-schema variant.
func LegacyName(name string) string {
	if strings.HasSuffix(name, LegacySuffix) {
		return name
	}
	return name + LegacySuffix
}

// TrainResult reports a completed fit.
type TrainResult struct {
	Status    string  `json:"status"`
	ModelName string  `json:"model_name"`
	Score     float64 `json:"score"`
	Rows      int     `json:"rows"`
	Schema    Schema  `json:"schema"`
}

// Trainer fits yield-prediction pipelines and hands them to the registry.
type Trainer struct {
	registry   *Registry
	sourcePath string
	log        *zap.Logger
}

// NewTrainer wires a trainer to its registry and structured source. An
// empty sourcePath falls back to the well-known location.
func NewTrainer(registry *Registry, sourcePath string, logger *zap.Logger) *Trainer {
	if sourcePath == "" {
		sourcePath = DefaultSourcePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{registry: registry, sourcePath: sourcePath, log: logger}
}

// SourceAvailable reports whether the structured training source exists.
func (t *Trainer) SourceAvailable() bool {
	info, err := os.Stat(t.sourcePath)
	return err == nil && !info.IsDir()
}

// SourcePath returns the configured structured source location.
func (t *Trainer) SourcePath() string {
	return t.sourcePath
}

// Train fits a model from inline training data. Modern labeled records go
// through the encoder+forest pipeline; legacy numeric vectors go to a
// single-stage forest with no preprocessing, registered under the
// distinguished legacy name variant. A failed fit leaves any prior model
// of the same name untouched.
func (t *Trainer) Train(inputs []FeatureInput, targets []float64, name string) (*TrainResult, error) {
	if name == "" {
		name = DefaultModelName
	}

	kind, err := validateTrainingSet(inputs, targets)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var result *TrainResult
	if kind == SchemaModern {
		records := make([]Record, len(inputs))
		for i, in := range inputs {
			records[i] = in.Record
		}
		result, err = t.fitModern(records, targets, name)
	} else {
		result, err = t.fitLegacy(inputs, targets, LegacyName(name))
	}
	if err != nil {
		return nil, err
	}

	t.log.Info("model trained",
		zap.String("model", result.ModelName),
		zap.String("schema", string(result.Schema)),
		zap.Int("rows", result.Rows),
		zap.Float64("score", result.Score),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// TrainFromSource fits a modern pipeline from the structured training
// source and registers it under the given name.
func (t *Trainer) TrainFromSource(name string) (*TrainResult, error) {
	if name == "" {
		name = DefaultModelName
	}
	records, targets, err := LoadSource(t.sourcePath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := t.fitModern(records, targets, name)
	if err != nil {
		return nil, err
	}

	t.log.Info("model trained from source",
		zap.String("model", result.ModelName),
		zap.String("source", t.sourcePath),
		zap.Int("rows", result.Rows),
		zap.Float64("score", result.Score),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (t *Trainer) fitModern(records []Record, targets []float64, name string) (*TrainResult, error) {
	encoder := FitEncoder(records)
	vectors := encoder.TransformAll(records)

	forest := NewForest()
	if err := forest.Fit(vectors, targets); err != nil {
		return nil, err
	}

	pipeline := &Pipeline{Schema: SchemaModern, Encoder: encoder, Forest: forest}
	score, err := t.scoreAndSave(pipeline, vectors, targets, name)
	if err != nil {
		return nil, err
	}
	return &TrainResult{
		Status:    "success",
		ModelName: name,
		Score:     score,
		Rows:      len(records),
		Schema:    SchemaModern,
	}, nil
}

func (t *Trainer) fitLegacy(inputs []FeatureInput, targets []float64, name string) (*TrainResult, error) {
	vectors := make([][]float64, len(inputs))
	for i, in := range inputs {
		vectors[i] = in.Vector
	}

	forest := NewForest()
	if err := forest.Fit(vectors, targets); err != nil {
		return nil, err
	}

	pipeline := &Pipeline{Schema: SchemaLegacy, Forest: forest}
	score, err := t.scoreAndSave(pipeline, vectors, targets, name)
	if err != nil {
		return nil, err
	}
	return &TrainResult{
		Status:    "success",
		ModelName: name,
		Score:     score,
		Rows:      len(inputs),
		Schema:    SchemaLegacy,
	}, nil
}

// scoreAndSave computes the raw in-sample R² and persists the fitted
// pipeline. Registration happens only after a successful fit and write.
func (t *Trainer) scoreAndSave(pipeline *Pipeline, vectors [][]float64, targets []float64, name string) (float64, error) {
	predicted := make([]float64, len(vectors))
	for i, vec := range vectors {
		v, err := pipeline.Forest.Predict(vec)
		if err != nil {
			return 0, err
		}
		predicted[i] = v
	}
	score := RSquared(predicted, targets)

	if err := t.registry.Save(name, pipeline); err != nil {
		return 0, err
	}
	return score, nil
}

package ml

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"agronomist/agro"
)

// DefaultModelName is the model used when a caller names none.
const DefaultModelName = "default"

// demoModelNames are eligible for auto-train and heuristic fallback, so
// the service stays usable before any real model exists.
var demoModelNames = map[string]bool{
	DefaultModelName: true,
	"demo_model":     true,
}

// PredictionSource tags where a prediction value came from.
type PredictionSource string

const (
	// SourceModel marks real inference from a trained pipeline.
	SourceModel PredictionSource = "model"
	// SourceFallback marks heuristic stand-ins served because no model
	// could be resolved for a demo identifier.
	SourceFallback PredictionSource = "fallback"
	// SourcePlaceholder marks per-input stand-ins served because the
	// input schema did not match the resolved model.
	SourcePlaceholder PredictionSource = "placeholder"
)

// Prediction is one yield estimate with its provenance.
type Prediction struct {
	Value  float64          `json:"value"`
	Source PredictionSource `json:"source"`
}

// Predictor resolves models by name and scores feature batches.
type Predictor struct {
	registry *Registry
	trainer  *Trainer
	log      *zap.Logger
}

// NewPredictor wires an inference service to its registry and trainer.
// The trainer is used for synchronous auto-training of demo models.
func NewPredictor(registry *Registry, trainer *Trainer, logger *zap.Logger) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{registry: registry, trainer: trainer, log: logger}
}

// Predict returns one prediction per input, in input order. Resolution on
// a registry miss: load the persisted artifact; else auto-train a demo
// model from the structured source; else serve heuristic fallbacks for
// demo names; else fail with ErrModelNotFound. Inputs whose schema does
// not match the resolved model degrade to placeholder values instead of
// being coerced.
func (p *Predictor) Predict(inputs []FeatureInput, name string) ([]Prediction, error) {
	if name == "" {
		name = DefaultModelName
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no features given")
	}

	pipeline, err := p.resolve(name)
	if err != nil {
		return nil, err
	}

	predictions := make([]Prediction, len(inputs))
	if pipeline == nil {
		// Demo name with nothing to serve from: whole batch is
		// heuristic, and nothing is cached.
		for i, in := range inputs {
			predictions[i] = Prediction{Value: heuristicEstimate(in), Source: SourceFallback}
		}
		return predictions, nil
	}

	for i, in := range inputs {
		value, err := pipeline.Predict(in)
		if err != nil {
			if !errors.Is(err, ErrSchemaMismatch) {
				p.log.Warn("prediction degraded to placeholder",
					zap.String("model", name), zap.Int("input", i), zap.Error(err))
			}
			predictions[i] = Prediction{Value: heuristicEstimate(in), Source: SourcePlaceholder}
			continue
		}
		predictions[i] = Prediction{Value: value, Source: SourceModel}
	}
	return predictions, nil
}

// resolve returns the pipeline for a name, or (nil, nil) when the name is
// a demo identifier that must be served heuristically.
func (p *Predictor) resolve(name string) (*Pipeline, error) {
	if pipeline, ok := p.registry.Get(name); ok {
		return pipeline, nil
	}

	lock := p.registry.NameLock(name)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have resolved the name while we waited.
	if pipeline, ok := p.registry.Get(name); ok {
		return pipeline, nil
	}

	if p.registry.HasArtifact(name) {
		return p.registry.Load(name)
	}

	if demoModelNames[name] {
		if p.trainer != nil && p.trainer.SourceAvailable() {
			p.log.Info("auto-training demo model", zap.String("model", name))
			if _, err := p.trainer.TrainFromSource(name); err != nil {
				return nil, err
			}
			if pipeline, ok := p.registry.Get(name); ok {
				return pipeline, nil
			}
			return p.registry.Load(name)
		}
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
}

// heuristicEstimate is the stand-in predictor: a closed-form estimate
// from a simple subset of features, kept deliberately cheap. Legacy
// vectors start from a 3 t/ha base lifted by temperature and rainfall;
// labeled records reuse the agronomic scoring heuristic.
func heuristicEstimate(in FeatureInput) float64 {
	if in.Kind == SchemaModern {
		est := agro.HeuristicYield(in.Record.TemperatureC, in.Record.RainfallMM, in.Record.PH)
		return est.EstimatedYield
	}
	v := in.Vector
	value := 3.0
	if len(v) > 0 {
		value += v[0] * 0.05
	}
	if len(v) > 1 {
		value += v[1] * 0.002
	}
	return value
}

package ml

import (
	"math"
	"sort"
)

// Encoder is the fitted preprocessing transform for modern-schema records:
// numeric fields are standardized (zero mean, unit variance, statistics
// fitted on training data only) and categorical fields are one-hot encoded.
// Categories unseen at fit time map to an all-zero encoding.
//
// An Encoder is always serialized inside the same artifact as its
// regressor; the two are never persisted or loaded separately.
type Encoder struct {
	Means      map[string]float64  `json:"means"`
	Stds       map[string]float64  `json:"stds"`
	Categories map[string][]string `json:"categories"`
}

// FitEncoder computes standardization statistics and category vocabularies
// from the training records.
func FitEncoder(records []Record) *Encoder {
	enc := &Encoder{
		Means:      make(map[string]float64, len(numericFields)),
		Stds:       make(map[string]float64, len(numericFields)),
		Categories: make(map[string][]string, len(categoricalFields)),
	}

	n := float64(len(records))
	for _, field := range numericFields {
		var sum float64
		for _, rec := range records {
			sum += rec.numeric(field)
		}
		mean := sum / n

		var variance float64
		for _, rec := range records {
			d := rec.numeric(field) - mean
			variance += d * d
		}
		std := math.Sqrt(variance / n)
		if std == 0 {
			std = 1
		}
		enc.Means[field] = mean
		enc.Stds[field] = std
	}

	for _, field := range categoricalFields {
		seen := make(map[string]bool)
		for _, rec := range records {
			seen[rec.withDefaults().categorical(field)] = true
		}
		cats := make([]string, 0, len(seen))
		for cat := range seen {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		enc.Categories[field] = cats
	}

	return enc
}

// Transform encodes one record into a feature vector: standardized
// numerics first, then the one-hot blocks in field order.
func (e *Encoder) Transform(rec Record) []float64 {
	rec = rec.withDefaults()
	out := make([]float64, 0, e.Width())

	for _, field := range numericFields {
		out = append(out, (rec.numeric(field)-e.Means[field])/e.Stds[field])
	}
	for _, field := range categoricalFields {
		value := rec.categorical(field)
		for _, cat := range e.Categories[field] {
			if cat == value {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// TransformAll encodes a batch of records.
func (e *Encoder) TransformAll(records []Record) [][]float64 {
	vectors := make([][]float64, len(records))
	for i, rec := range records {
		vectors[i] = e.Transform(rec)
	}
	return vectors
}

// Width returns the encoded vector length.
func (e *Encoder) Width() int {
	width := len(numericFields)
	for _, field := range categoricalFields {
		width += len(e.Categories[field])
	}
	return width
}

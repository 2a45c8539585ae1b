package ml

import (
	"errors"
	"math/rand"
	"sync"
)

// Forest is a random-forest regressor. The fixed seed makes a fit
// reproducible: every tree derives its own deterministic source from
// Seed + tree index, so parallel fitting does not change the result.
type Forest struct {
	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MaxFeatures     int   `json:"max_features"`
	Bootstrap       bool  `json:"bootstrap"`
	Seed            int64 `json:"seed"`

	Trees []*regressionTree `json:"trees"`
}

// NewForest returns a forest with the standard yield-model
// hyperparameters: 100 trees, depth 10, min split 5, seed 42.
func NewForest() *Forest {
	return &Forest{
		NEstimators:     100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		Bootstrap:       true,
		Seed:            42,
	}
}

// Fit trains all trees on bootstrap samples of the data.
func (f *Forest) Fit(features [][]float64, targets []float64) error {
	if len(features) == 0 {
		return errors.New("forest: empty features")
	}
	n := len(features)
	if len(targets) != n {
		return errors.New("forest: features and targets length mismatch")
	}
	if f.NEstimators <= 0 {
		f.NEstimators = 100
	}

	f.Trees = make([]*regressionTree, f.NEstimators)
	cfg := treeConfig{
		maxDepth:        f.MaxDepth,
		minSamplesSplit: f.MinSamplesSplit,
		maxFeatures:     f.MaxFeatures,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, f.NEstimators)

	for i := 0; i < f.NEstimators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			// Per-tree source keeps fits deterministic without
			// contention between goroutines.
			treeRand := rand.New(rand.NewSource(f.Seed + int64(idx)))

			sampleF := features
			sampleT := targets
			if f.Bootstrap {
				sampleF = make([][]float64, n)
				sampleT = make([]float64, n)
				for j := 0; j < n; j++ {
					pick := treeRand.Intn(n)
					sampleF[j] = features[pick]
					sampleT[j] = targets[pick]
				}
			}

			tree := &regressionTree{}
			if err := tree.fit(sampleF, sampleT, cfg, treeRand); err != nil {
				errCh <- err
				return
			}
			f.Trees[idx] = tree
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// Predict averages the per-tree predictions for one feature vector.
func (f *Forest) Predict(features []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("forest not fitted")
	}
	var sum float64
	for _, tree := range f.Trees {
		v, err := tree.predict(features)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(f.Trees)), nil
}

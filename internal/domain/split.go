package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// SplitRatios are the train/validation/test fractions of a dataset partition.
type SplitRatios struct {
	Train      float64
	Validation float64
	Test       float64
}

// Ratios required by the two training datasets.
var (
	FuelEstimateSplit    = SplitRatios{Train: 0.8, Validation: 0.1, Test: 0.1}
	WeatherEnhancedSplit = SplitRatios{Train: 0.7, Validation: 0.15, Test: 0.15}
)

// Split holds row indices for each partition.
type Split struct {
	Train      []int
	Validation []int
	Test       []int
}

// SplitDataset shuffles indices 0..n-1 with a seeded generator and cuts them by
// ratio. Validation gets floor(n×Validation); test takes the remainder after
// training so every row lands in exactly one partition.
func SplitDataset(n int, r SplitRatios, seed uint64) (Split, error) {
	sum := r.Train + r.Validation + r.Test
	if r.Train < 0 || r.Validation < 0 || r.Test < 0 || math.Abs(sum-1) > 1e-9 {
		return Split{}, fmt.Errorf("split ratios must be non-negative and sum to 1, got %.4f/%.4f/%.4f", r.Train, r.Validation, r.Test)
	}
	if n < 0 {
		return Split{}, fmt.Errorf("split size must be non-negative, got %d", n)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTrain := int(math.Round(float64(n) * r.Train))
	nVal := int(math.Floor(float64(n) * r.Validation))
	if nTrain+nVal > n {
		nVal = n - nTrain
	}

	return Split{
		Train:      idx[:nTrain],
		Validation: idx[nTrain : nTrain+nVal],
		Test:       idx[nTrain+nVal:],
	}, nil
}

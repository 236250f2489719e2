package metrics

import (
	"fmt"
	"math"
	"math/rand"

	"recipes/internal/domain"
)

// TrainTestSplit partitions ids with a seeded permutation. The test side
// holds the first ceil(testFraction*n) permuted positions and the train
// side the rest. The same rng state and input always give the same split.
func TrainTestSplit(rng *rand.Rand, ids []int64, testFraction float64) (train, test []int64, err error) {
	if testFraction <= 0 || testFraction >= 1 || math.IsNaN(testFraction) {
		return nil, nil, fmt.Errorf("%w: test fraction must be in (0, 1), got %v", domain.ErrInvalidArgument, testFraction)
	}
	n := len(ids)
	nTest := int(math.Ceil(testFraction * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain <= 0 {
		return nil, nil, fmt.Errorf("%w: %d ids cannot be split with test fraction %v", domain.ErrInsufficientData, n, testFraction)
	}

	perm := rng.Perm(n)
	test = make([]int64, nTest)
	for i, p := range perm[:nTest] {
		test[i] = ids[p]
	}
	train = make([]int64, nTrain)
	for i, p := range perm[nTest:] {
		train[i] = ids[p]
	}
	return train, test, nil
}

// SampleWithoutReplacement draws n distinct positions of population
// uniformly at random.
func SampleWithoutReplacement[T any](rng *rand.Rand, population []T, n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", domain.ErrInvalidArgument, n)
	}
	if n > len(population) {
		return nil, fmt.Errorf("%w: sample of %d from a population of %d", domain.ErrInsufficientData, n, len(population))
	}
	perm := rng.Perm(len(population))
	out := make([]T, n)
	for i, p := range perm[:n] {
		out[i] = population[p]
	}
	return out, nil
}

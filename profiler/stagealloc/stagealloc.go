// Package stagealloc splits a core budget across weighted work stages.
package stagealloc

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Allocate returns a thread count per stage: round(weight/total * cores),
// with any stage that would get less than 1 raised to 1. The counts are not
// renormalized afterwards, so their sum can differ from totalCores.
func Allocate(totalCores int, stages map[string]float64) (map[string]int, error) {
	if totalCores <= 0 {
		return nil, fmt.Errorf("%w: total cores must be positive, got %d", ErrInvalidArgument, totalCores)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no stages given", ErrInvalidArgument)
	}

	var totalWeight float64
	for name, weight := range stages {
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, fmt.Errorf("%w: stage %q has invalid weight %v", ErrInvalidArgument, name, weight)
		}
		totalWeight += weight
	}
	if totalWeight <= 0 {
		return nil, fmt.Errorf("%w: stage weights sum to %v, must be positive", ErrInvalidArgument, totalWeight)
	}

	counts := make(map[string]int, len(stages))
	for name, weight := range stages {
		count := int(math.Round(weight / totalWeight * float64(totalCores)))
		if count < 1 {
			count = 1
		}
		counts[name] = count
	}
	return counts, nil
}

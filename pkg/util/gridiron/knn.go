package gridiron

import (
	"fmt"
	"math"
	"sort"
)

// Neighbour is a training row ranked by its distance from a query
type Neighbour[L comparable] struct {
	Index    int // position of the row in the training set
	Distance float64
	Label    L
}

// Neighbours returns the k training rows nearest to query under Euclidean
// distance over features, nearest first. Rows at equal distance keep their
// training-set order, so the result never depends on sort instability.
func Neighbours[L comparable](features []string, set *TrainingSet[L], query Record, k int) ([]Neighbour[L], error) {
	if err := validateFeatures(features); err != nil {
		return nil, err
	}
	n := set.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: training set has no rows", ErrInvalidInput)
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k must be between 1 and %d, got %d", ErrInvalidInput, n, k)
	}

	q := make([]float64, len(features))
	for j, f := range features {
		v, err := query.value(f)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		q[j] = v
	}

	ranked := make([]Neighbour[L], n)
	for i, row := range set.rows {
		var squared float64
		for j, f := range features {
			v, err := row.Features.value(f)
			if err != nil {
				return nil, fmt.Errorf("training row %d: %w", i, err)
			}
			d := v - q[j]
			squared += d * d
		}
		ranked[i] = Neighbour[L]{Index: i, Distance: math.Sqrt(squared), Label: row.Label}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Distance < ranked[b].Distance
	})
	return ranked[:k], nil
}

// Predict returns the most frequent label among the k nearest neighbours of
// query. When several labels share the highest count, the one belonging to
// the nearest neighbour wins.
func Predict[L comparable](features []string, set *TrainingSet[L], query Record, k int) (L, error) {
	var zero L
	nearest, err := Neighbours(features, set, query, k)
	if err != nil {
		return zero, err
	}
	return Vote(nearest), nil
}

// Vote returns the most frequent label in ranked, a neighbour list ordered
// nearest first as returned by Neighbours. Count ties go to the label that
// appears first. An empty list yields the zero label.
func Vote[L comparable](ranked []Neighbour[L]) L {
	counts := make(map[L]int, len(ranked))
	best := 0
	for _, nb := range ranked {
		counts[nb.Label]++
		if counts[nb.Label] > best {
			best = counts[nb.Label]
		}
	}
	for _, nb := range ranked {
		if counts[nb.Label] == best {
			return nb.Label
		}
	}
	var zero L
	return zero
}

func validateFeatures(features []string) error {
	if len(features) == 0 {
		return fmt.Errorf("%w: no features given", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%w: feature %q listed twice", ErrInvalidInput, f)
		}
		seen[f] = struct{}{}
	}
	return nil
}

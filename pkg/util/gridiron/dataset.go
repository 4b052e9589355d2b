package gridiron

import (
	"fmt"
	"maps"
	"math"
)

// Record maps a feature name to a single numeric value.
// It is both a training row's feature vector and a query point.
type Record map[string]float64

// value returns the named feature, rejecting absent and non-finite values.
func (r Record) value(feature string) (float64, error) {
	v, ok := r[feature]
	if !ok {
		return 0, fmt.Errorf("%w: feature %q is missing", ErrInvalidInput, feature)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: feature %q is not a finite number (%v)", ErrInvalidInput, feature, v)
	}
	return v, nil
}

// Row is one labelled training observation
type Row[L comparable] struct {
	Features Record
	Label    L
}

// TrainingSet is an ordered, immutable collection of labelled rows.
// Row order is significant: it breaks distance ties during prediction.
type TrainingSet[L comparable] struct {
	rows []Row[L]
}

// NewTrainingSet pairs records[i] with labels[i]. The records are copied so
// later changes by the caller do not leak into the set.
func NewTrainingSet[L comparable](records []Record, labels []L) (*TrainingSet[L], error) {
	if len(records) != len(labels) {
		return nil, fmt.Errorf("%w: %d records but %d labels", ErrInvalidInput, len(records), len(labels))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: training set has no rows", ErrInvalidInput)
	}
	rows := make([]Row[L], len(records))
	for i, r := range records {
		rows[i] = Row[L]{Features: maps.Clone(r), Label: labels[i]}
	}
	return &TrainingSet[L]{rows: rows}, nil
}

// Len returns the number of rows
func (ts *TrainingSet[L]) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.rows)
}

// Row returns a copy of row i
func (ts *TrainingSet[L]) Row(i int) Row[L] {
	r := ts.rows[i]
	return Row[L]{Features: maps.Clone(r.Features), Label: r.Label}
}

// Labels returns the labels in row order
func (ts *TrainingSet[L]) Labels() []L {
	labels := make([]L, len(ts.rows))
	for i, r := range ts.rows {
		labels[i] = r.Label
	}
	return labels
}

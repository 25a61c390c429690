/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ddsketch implements a relative-error quantile sketch using
// logarithmically spaced buckets, following the DDSketch paper (Masson,
// Rim, Lee 2019). Positive and negative values are tracked in separate
// sparse bucket maps keyed by bucket index; a distinguished zero bucket
// absorbs values that round to zero.
package ddsketch

import (
	"math"

	"github.com/sketchkit/datasketches/internal/sketcherr"
)

// Sketch accumulates values and answers quantile queries within a
// relative-accuracy bound set at construction.
//
// Sketch is a single-owner mutable value; Update and Quantile must not be
// called concurrently on the same Sketch (spec §5).
type Sketch struct {
	alpha    float64
	gamma    float64
	multiplier float64

	positive map[int]uint64
	negative map[int]uint64
	zeros    uint64

	count uint64
	sum   float64
	min   float64
	max   float64
}

// New creates a DDSketch with relative accuracy alpha in (0,1): every
// quantile returned by Quantile is within a multiplicative alpha of the
// true value (spec §3, §4.6).
func New(alpha float64) (*Sketch, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "alpha must be in (0,1), got %v", alpha)
	}
	gamma := (1 + alpha) / (1 - alpha)
	return &Sketch{
		alpha:      alpha,
		gamma:      gamma,
		multiplier: 1 / math.Log(gamma),
		positive:   make(map[int]uint64),
		negative:   make(map[int]uint64),
		min:        math.Inf(1),
		max:        math.Inf(-1),
	}, nil
}

// Alpha returns the relative-accuracy parameter the sketch was built with.
func (s *Sketch) Alpha() float64 { return s.alpha }

// Count returns the total number of values inserted.
func (s *Sketch) Count() uint64 { return s.count }

// Sum returns the exact sum of all inserted values.
func (s *Sketch) Sum() float64 { return s.sum }

// Min returns the exact minimum of all inserted values, or +Inf if empty.
func (s *Sketch) Min() float64 { return s.min }

// Max returns the exact maximum of all inserted values, or -Inf if empty.
func (s *Sketch) Max() float64 { return s.max }

// index maps a positive magnitude v to its logarithmic bucket index,
// ceil(log_gamma(v)), per spec §4.6.
func (s *Sketch) index(v float64) int {
	return int(math.Ceil(math.Log(v) * s.multiplier))
}

// bucketValue returns the representative value of bucket index i: the
// midpoint of the bucket's multiplicative range, 2*gamma^i/(gamma+1).
func (s *Sketch) bucketValue(i int) float64 {
	return 2 * math.Pow(s.gamma, float64(i)) / (s.gamma + 1)
}

// Update folds one observation of v into the sketch.
func (s *Sketch) Update(v float64) {
	s.count++
	s.sum += v
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}

	switch {
	case v > 0:
		s.positive[s.index(v)]++
	case v < 0:
		s.negative[s.index(-v)]++
	default:
		s.zeros++
	}
}

// Quantile returns an estimate of the value at rank ceil(q*n) within
// relative error alpha of the true value, scanning buckets in
// negative-descending, zero, positive-ascending order and returning the
// representative of the first bucket whose cumulative count reaches the
// target rank (spec §4.6). Returns an error if q is outside [0,1] or the
// sketch is empty.
func (s *Sketch) Quantile(q float64) (float64, error) {
	if q < 0 || q > 1 {
		return 0, sketcherr.New(sketcherr.InvalidArgument, "quantile must be in [0,1], got %v", q)
	}
	if s.count == 0 {
		return 0, sketcherr.New(sketcherr.InvalidArgument, "quantile of an empty sketch is undefined")
	}

	target := uint64(math.Ceil(q * float64(s.count)))
	if target < 1 {
		target = 1
	}

	var cumulative uint64

	for _, idx := range sortedIndicesDesc(s.negative) {
		cumulative += s.negative[idx]
		if cumulative >= target {
			return -s.bucketValue(idx), nil
		}
	}

	cumulative += s.zeros
	if cumulative >= target {
		return 0, nil
	}

	for _, idx := range sortedIndicesAsc(s.positive) {
		cumulative += s.positive[idx]
		if cumulative >= target {
			return s.bucketValue(idx), nil
		}
	}

	// The walk above always reaches target when the bucket and zero counts
	// sum to s.count; this fallback only runs for a sketch whose stored count
	// exceeds them (e.g. one deserialized from inconsistent bytes), and
	// returns the largest positive value.
	if len(s.positive) > 0 {
		idxs := sortedIndicesAsc(s.positive)
		return s.bucketValue(idxs[len(idxs)-1]), nil
	}
	return s.max, nil
}

func sortedIndicesAsc(m map[int]uint64) []int {
	idxs := make([]int, 0, len(m))
	for k := range m {
		idxs = append(idxs, k)
	}
	insertionSort(idxs, func(a, b int) bool { return a < b })
	return idxs
}

func sortedIndicesDesc(m map[int]uint64) []int {
	idxs := make([]int, 0, len(m))
	for k := range m {
		idxs = append(idxs, k)
	}
	insertionSort(idxs, func(a, b int) bool { return a > b })
	return idxs
}

// insertionSort is a small dependency-free sort; bucket maps are sparse
// (spec §5: O(#occupied buckets)) so this stays cheap in practice and
// avoids pulling in sort.Slice's reflection-based comparator for a hot
// per-quantile-query path.
func insertionSort(s []int, less func(a, b int) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// Merge adds other's bucket counts into the receiver. Sketches with
// different alpha are incompatible (spec §4.6).
func (s *Sketch) Merge(other *Sketch) error {
	if s.alpha != other.alpha {
		return sketcherr.New(sketcherr.IncompatibleShape, "ddsketch alpha mismatch: %v vs %v", s.alpha, other.alpha)
	}
	for idx, c := range other.positive {
		s.positive[idx] += c
	}
	for idx, c := range other.negative {
		s.negative[idx] += c
	}
	s.zeros += other.zeros
	s.count += other.count
	s.sum += other.sum
	if other.count > 0 {
		if other.min < s.min {
			s.min = other.min
		}
		if other.max > s.max {
			s.max = other.max
		}
	}
	return nil
}

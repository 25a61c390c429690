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

// Package theta implements a Kth-minimum-value (theta) sketch: a sorted
// buffer of the k smallest 64-bit hashes seen, plus a threshold theta
// below which hashes are retained. Two sketches sharing a hash space
// compose through set algebra (union, intersection, a-not-b) defined
// purely in terms of theta and hash membership (spec §4.4).
package theta

import (
	"iter"
	"math"
	"sort"

	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const (
	MinK = 16
	MaxK = 1 << 20

	// rebuildMultiplier is how large the insertion buffer is allowed to
	// grow, as a multiple of k, before it is trimmed back down to k (spec
	// §4.4).
	rebuildMultiplier = 2

	// thetaMax represents theta = 1.0: every hash is accepted and the
	// sketch is in exact mode.
	thetaMax = math.MaxUint64
)

// Sketch is a single-owner, mutable Kth-minimum-value summary of a stream
// of distinct keys.
type Sketch struct {
	k      int
	theta  uint64
	hashes []uint64 // sorted ascending, unique, all < theta
}

// New creates an empty sketch targeting k retained entries.
func New(k int) (*Sketch, error) {
	if k < MinK || k > MaxK {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "k must be in [%d,%d], got %d", MinK, MaxK, k)
	}
	return &Sketch{k: k, theta: thetaMax}, nil
}

// K returns the configured nominal entries parameter.
func (s *Sketch) K() int { return s.k }

// IsEmpty reports whether the sketch has retained no entries.
func (s *Sketch) IsEmpty() bool { return len(s.hashes) == 0 }

// IsEstimationMode reports whether theta has been reduced below 1.0, i.e.
// whether Estimate() is extrapolating rather than counting exactly.
func (s *Sketch) IsEstimationMode() bool { return s.theta != thetaMax }

// Theta returns the current threshold as a fraction of the hash space.
func (s *Sketch) Theta() float64 { return float64(s.theta) / float64(thetaMax) }

// Theta64 returns the current threshold as a raw 64-bit value: a hash h
// is retained iff h < Theta64().
func (s *Sketch) Theta64() uint64 { return s.theta }

// NumRetained returns the number of hashes currently kept.
func (s *Sketch) NumRetained() int { return len(s.hashes) }

func hashOf(key []byte) uint64 {
	lo, _ := internal.HashByteArrMurmur3(key, 0, len(key), 0)
	return lo
}

// Update folds one occurrence of key into the sketch.
func (s *Sketch) Update(key []byte) {
	s.updateHash(hashOf(key))
}

// UpdateString is a convenience wrapper around Update for string keys.
func (s *Sketch) UpdateString(key string) { s.Update([]byte(key)) }

func (s *Sketch) updateHash(h uint64) {
	if h >= s.theta {
		return
	}
	i := sort.Search(len(s.hashes), func(i int) bool { return s.hashes[i] >= h })
	if i < len(s.hashes) && s.hashes[i] == h {
		return
	}
	s.hashes = append(s.hashes, 0)
	copy(s.hashes[i+1:], s.hashes[i:])
	s.hashes[i] = h

	if len(s.hashes) >= rebuildMultiplier*s.k {
		s.rebuild()
	}
}

// rebuild trims the buffer back to k entries, setting theta to the
// (k+1)-th smallest hash so every retained hash stays strictly below it
// (spec §4.4).
func (s *Sketch) rebuild() {
	if len(s.hashes) <= s.k {
		return
	}
	s.theta = s.hashes[s.k]
	s.hashes = append([]uint64(nil), s.hashes[:s.k]...)
}

// Estimate returns the current cardinality estimate: the exact retained
// count while theta is 1.0, otherwise the retained count scaled by
// 1/theta (spec §4.4).
func (s *Sketch) Estimate() float64 {
	if !s.IsEstimationMode() {
		return float64(len(s.hashes))
	}
	return float64(len(s.hashes)) / s.Theta()
}

// relativeStdErr approximates the Kth-minimum-value sketch's relative
// standard error, sqrt((1-theta)/(theta*n)), the standard KMV variance
// bound, falling back to 0 in exact mode.
func (s *Sketch) relativeStdErr() float64 {
	if !s.IsEstimationMode() || len(s.hashes) == 0 {
		return 0
	}
	theta := s.Theta()
	n := float64(len(s.hashes))
	return math.Sqrt((1 - theta) / (theta * n))
}

// LowerBound returns the approximate lower error bound at numStdDevs
// standard deviations (1, 2 or 3).
func (s *Sketch) LowerBound(numStdDevs uint8) (float64, error) {
	if numStdDevs < 1 || numStdDevs > 3 {
		return 0, sketcherr.New(sketcherr.InvalidArgument, "numStdDevs must be 1, 2 or 3, got %d", numStdDevs)
	}
	est := s.Estimate()
	bound := est * (1 - float64(numStdDevs)*s.relativeStdErr())
	if bound < 0 {
		bound = 0
	}
	return bound, nil
}

// UpperBound returns the approximate upper error bound at numStdDevs
// standard deviations (1, 2 or 3).
func (s *Sketch) UpperBound(numStdDevs uint8) (float64, error) {
	if numStdDevs < 1 || numStdDevs > 3 {
		return 0, sketcherr.New(sketcherr.InvalidArgument, "numStdDevs must be 1, 2 or 3, got %d", numStdDevs)
	}
	est := s.Estimate()
	return est * (1 + float64(numStdDevs)*s.relativeStdErr()), nil
}

// All iterates the sketch's retained hashes in ascending order.
func (s *Sketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, h := range s.hashes {
			if !yield(h) {
				return
			}
		}
	}
}

// minTheta returns the smaller (more restrictive) of two thetas.
func minTheta(a, b *Sketch) uint64 {
	if a.theta < b.theta {
		return a.theta
	}
	return b.theta
}

// trimToK keeps hashes sorted ascending, capped at k entries, adjusting
// theta to the first excluded value when a cap is applied.
func trimToK(hashes []uint64, k int, theta uint64) ([]uint64, uint64) {
	if len(hashes) <= k {
		return hashes, theta
	}
	newTheta := hashes[k]
	if newTheta < theta {
		theta = newTheta
	}
	return hashes[:k], theta
}

// Union returns a new sketch holding the set union of a and b: every
// hash from either side below min(theta_a, theta_b), deduplicated and
// trimmed back to min(a.k, b.k) entries if needed (spec §4.4).
func Union(a, b *Sketch) *Sketch {
	k := a.k
	if b.k < k {
		k = b.k
	}
	theta := minTheta(a, b)

	merged := make([]uint64, 0, len(a.hashes)+len(b.hashes))
	i, j := 0, 0
	for i < len(a.hashes) && j < len(b.hashes) {
		switch {
		case a.hashes[i] < b.hashes[j]:
			merged = append(merged, a.hashes[i])
			i++
		case a.hashes[i] > b.hashes[j]:
			merged = append(merged, b.hashes[j])
			j++
		default:
			merged = append(merged, a.hashes[i])
			i++
			j++
		}
	}
	merged = append(merged, a.hashes[i:]...)
	merged = append(merged, b.hashes[j:]...)

	filtered := merged[:0]
	for _, h := range merged {
		if h < theta {
			filtered = append(filtered, h)
		}
	}
	filtered, theta = trimToK(filtered, k, theta)

	return &Sketch{k: k, theta: theta, hashes: append([]uint64(nil), filtered...)}
}

// Intersect returns a new sketch holding the set intersection of a and b:
// hashes present in both below min(theta_a, theta_b) (spec §4.4).
func Intersect(a, b *Sketch) *Sketch {
	k := a.k
	if b.k < k {
		k = b.k
	}
	theta := minTheta(a, b)

	small, large := a, b
	if len(b.hashes) < len(a.hashes) {
		small, large = b, a
	}

	out := make([]uint64, 0, len(small.hashes))
	for _, h := range small.hashes {
		if h >= theta {
			continue
		}
		j := sort.Search(len(large.hashes), func(i int) bool { return large.hashes[i] >= h })
		if j < len(large.hashes) && large.hashes[j] == h {
			out = append(out, h)
		}
	}
	return &Sketch{k: k, theta: theta, hashes: out}
}

// ANotB returns a new sketch holding the hashes of a below
// min(theta_a, theta_b) that are absent from b (spec §4.4).
func ANotB(a, b *Sketch) *Sketch {
	k := a.k
	theta := minTheta(a, b)

	out := make([]uint64, 0, len(a.hashes))
	for _, h := range a.hashes {
		if h >= theta {
			continue
		}
		j := sort.Search(len(b.hashes), func(i int) bool { return b.hashes[i] >= h })
		if j < len(b.hashes) && b.hashes[j] == h {
			continue
		}
		out = append(out, h)
	}
	return &Sketch{k: k, theta: theta, hashes: out}
}

// JaccardSimilarity estimates |A∩B| / |A∪B| as a direct corollary of
// Union and Intersect's estimates (spec §4.4).
func JaccardSimilarity(a, b *Sketch) float64 {
	union := Union(a, b).Estimate()
	if union == 0 {
		return 0
	}
	return Intersect(a, b).Estimate() / union
}

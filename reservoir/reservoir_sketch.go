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

// Package reservoir implements uniform reservoir sampling over a stream of
// opaque byte-slice items (Algorithm R, Vitter 1985). Unlike the weighted
// VarOpt family, every item that has been seen has equal probability of
// appearing in the final sample; there is no merge operation, since the
// Pareto-optimal combination of two independent reservoirs requires knowing
// each item's original inclusion weight, which plain Algorithm R never
// tracks (it is approximated instead by VarOpt sampling, out of scope here).
package reservoir

import (
	"math/rand"

	"github.com/sketchkit/datasketches/internal/sketcherr"
)

// DefaultSeed is used when a caller constructs a sketch without supplying
// its own PRNG, making accuracy-property tests reproducible across runs.
const DefaultSeed = 9001

const minCapacity = 1

// Sketch maintains a uniform random sample of up to K items drawn from an
// unbounded stream, using Algorithm R. It is a single-owner mutable value:
// Update and Sample must not be called concurrently on the same Sketch.
type Sketch struct {
	k    int
	n    int64
	data [][]byte
	rng  *rand.Rand
}

// New creates a reservoir sketch with the given capacity k, using
// DefaultSeed for its PRNG. k must be at least 1.
func New(k int) (*Sketch, error) {
	return NewWithSeed(k, DefaultSeed)
}

// NewWithSeed creates a reservoir sketch with capacity k whose eviction
// decisions are drawn from a PRNG seeded with seed, for reproducible tests.
func NewWithSeed(k int, seed int64) (*Sketch, error) {
	if k < minCapacity {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "capacity must be at least %d, got %d", minCapacity, k)
	}
	return &Sketch{
		k:    k,
		data: make([][]byte, 0, k),
		rng:  rand.New(rand.NewSource(seed)),
	}, nil
}

// Capacity returns the maximum number of items the sample can hold.
func (s *Sketch) Capacity() int {
	return s.k
}

// N returns the total number of items observed so far.
func (s *Sketch) N() int64 {
	return s.n
}

// Update folds one item from the stream into the sample. The first k items
// are always kept; thereafter item n (1-indexed) replaces a uniformly
// random existing slot with probability k/n, and is otherwise discarded.
func (s *Sketch) Update(item []byte) {
	s.n++
	if s.n <= int64(s.k) {
		buf := make([]byte, len(item))
		copy(buf, item)
		s.data = append(s.data, buf)
		return
	}
	j := s.rng.Int63n(s.n)
	if j < int64(s.k) {
		buf := make([]byte, len(item))
		copy(buf, item)
		s.data[j] = buf
	}
}

// Sample returns a copy of the first min(N, K) entries currently retained.
// Every returned item had probability min(K,N)/N of being included.
func (s *Sketch) Sample() [][]byte {
	out := make([][]byte, len(s.data))
	for i, b := range s.data {
		cp := make([]byte, len(b))
		copy(cp, b)
		out[i] = cp
	}
	return out
}

// InclusionProbability returns the probability that any single reported
// sample element was included, i.e. min(K,N)/N (0 if nothing seen yet).
func (s *Sketch) InclusionProbability() float64 {
	if s.n == 0 {
		return 0
	}
	k := int64(s.k)
	if s.n < k {
		k = s.n
	}
	return float64(k) / float64(s.n)
}

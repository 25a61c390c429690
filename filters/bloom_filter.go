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

// Package filters provides probabilistic set-membership structures: a
// classic Bloom filter and a Cuckoo filter. The Bloom filter uses
// Kirsch-Mitzenmacher double hashing over two 64-bit xxhash digests rather
// than computing k independent hash functions; the Cuckoo filter derives a
// bucket and a fingerprint per key and moves fingerprints between a key's
// two candidate buckets (spec §4.1/§4.7).
package filters

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/sketchkit/datasketches/internal/sketcherr"
)

// DefaultSeed seeds a filter's hash functions when the caller does not
// supply their own, keeping accuracy-property tests reproducible.
const DefaultSeed = uint64(9001)

// BloomFilter is a fixed-size probabilistic set: Query never false-negates
// but may false-positive at a rate determined by numBits, numHashes and the
// number of distinct keys inserted. It is a single-owner mutable value.
type BloomFilter struct {
	numBits   uint64
	numHashes uint16
	seed      uint64
	set       *bitSet
}

// New creates a Bloom filter with an explicit bit-array size and hash count.
func New(numBits uint64, numHashes uint16, seed uint64) (*BloomFilter, error) {
	if numBits == 0 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "numBits must be positive")
	}
	if numHashes == 0 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "numHashes must be positive")
	}
	return &BloomFilter{
		numBits:   numBits,
		numHashes: numHashes,
		seed:      seed,
		set:       newBitSet(numBits),
	}, nil
}

// NewByAccuracy sizes a Bloom filter for maxDistinctItems expected inserts
// at a target false positive probability, using the standard optimal-size
// formulas (spec §4.1).
func NewByAccuracy(maxDistinctItems uint64, targetFpp float64, seed uint64) (*BloomFilter, error) {
	if maxDistinctItems == 0 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "maxDistinctItems must be positive")
	}
	if targetFpp <= 0 || targetFpp >= 1 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "targetFpp must be in (0,1), got %f", targetFpp)
	}
	numBits := optimalNumBits(maxDistinctItems, targetFpp)
	numHashes := optimalNumHashes(numBits, maxDistinctItems)
	return New(numBits, numHashes, seed)
}

func optimalNumBits(n uint64, fpp float64) uint64 {
	bits := math.Ceil(-float64(n) * math.Log(fpp) / (math.Ln2 * math.Ln2))
	if bits < 64 {
		bits = 64
	}
	return uint64(bits)
}

func optimalNumHashes(numBits uint64, n uint64) uint16 {
	k := math.Round(float64(numBits) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	return uint16(k)
}

// locations derives numHashes bucket indices from two xxhash digests of key
// (h1 unseeded, h2 seeded with the filter's seed) using the
// Kirsch-Mitzenmacher combination h1 + i*h2 (mod numBits), avoiding the
// cost of numHashes independent hash evaluations per key.
func (bf *BloomFilter) locations(key []byte) []uint64 {
	h1 := xxhash.Sum64(key)
	d := xxhash.NewWithSeed(bf.seed)
	d.Write(key)
	h2 := d.Sum64() | 1 // force odd so the stride is coprime with power-of-two bit counts

	locs := make([]uint64, bf.numHashes)
	for i := range locs {
		locs[i] = (h1 + uint64(i)*h2) % bf.numBits
	}
	return locs
}

// Update adds key to the filter.
func (bf *BloomFilter) Update(key []byte) {
	for _, i := range bf.locations(key) {
		bf.set.set(i)
	}
}

// UpdateString is a convenience wrapper around Update for string keys.
func (bf *BloomFilter) UpdateString(key string) { bf.Update([]byte(key)) }

// Query reports whether key may have been inserted.
func (bf *BloomFilter) Query(key []byte) bool {
	for _, i := range bf.locations(key) {
		if !bf.set.test(i) {
			return false
		}
	}
	return true
}

// QueryString is a convenience wrapper around Query for string keys.
func (bf *BloomFilter) QueryString(key string) bool { return bf.Query([]byte(key)) }

// QueryAndUpdate atomically tests then inserts key, returning whether it
// was already present.
func (bf *BloomFilter) QueryAndUpdate(key []byte) bool {
	present := true
	for _, i := range bf.locations(key) {
		if !bf.set.test(i) {
			present = false
			bf.set.set(i)
		}
	}
	return present
}

// QueryAndUpdateString is a convenience wrapper for string keys.
func (bf *BloomFilter) QueryAndUpdateString(key string) bool {
	return bf.QueryAndUpdate([]byte(key))
}

// IsEmpty reports whether no bits are set.
func (bf *BloomFilter) IsEmpty() bool { return bf.set.count() == 0 }

// BitsUsed returns the number of set bits.
func (bf *BloomFilter) BitsUsed() uint64 { return bf.set.count() }

// NumBits returns the size of the backing bit array.
func (bf *BloomFilter) NumBits() uint64 { return bf.numBits }

// NumHashes returns the number of hash probes per operation.
func (bf *BloomFilter) NumHashes() uint16 { return bf.numHashes }

// Seed returns the filter's hash seed.
func (bf *BloomFilter) Seed() uint64 { return bf.seed }

func (bf *BloomFilter) compatible(other *BloomFilter) bool {
	return bf.numBits == other.numBits && bf.numHashes == other.numHashes && bf.seed == other.seed
}

// Union folds other's bits into the receiver; both must share (numBits,
// numHashes, seed).
func (bf *BloomFilter) Union(other *BloomFilter) error {
	if !bf.compatible(other) {
		return sketcherr.New(sketcherr.IncompatibleShape, "bloom filters have mismatched shape or seed")
	}
	bf.set.unionWith(other.set)
	return nil
}

// Intersect keeps only bits set in both the receiver and other; both must
// share (numBits, numHashes, seed). The result may contain false positives
// for the intersection of the two original key sets but never misses a key
// common to both (the same one-sided-error guarantee as a single filter).
func (bf *BloomFilter) Intersect(other *BloomFilter) error {
	if !bf.compatible(other) {
		return sketcherr.New(sketcherr.IncompatibleShape, "bloom filters have mismatched shape or seed")
	}
	bf.set.intersectWith(other.set)
	return nil
}

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

package filters

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"github.com/sketchkit/datasketches/internal/sketcherr"
)

// DefaultMaxKicks bounds the length of the random-walk eviction chain an
// Insert will follow before giving up and reporting CapacityExhausted.
const DefaultMaxKicks = 500

// emptyFingerprint is the reserved sentinel marking an unused bucket slot;
// a real fingerprint of zero is remapped to 1 so it never collides with it.
const emptyFingerprint = 0

// CuckooFilter is a probabilistic set-membership structure supporting
// deletion, unlike Bloom filters. Each key is reduced to a short
// fingerprint stored in one of two candidate buckets; the two buckets are
// related by fp so a fingerprint can be relocated without ever retaining
// the original key (spec §4.7).
type CuckooFilter struct {
	buckets         [][]uint32 // each bucket holds up to bucketSize fingerprints, 0 = empty
	bucketSize      int
	fingerprintBits uint
	numBuckets      uint64
	count           int
	maxKicks        int
	seed            uint64
	rng             *rand.Rand
}

// NewCuckooFilter creates a filter sized for capacity entries, with
// bucketSize fingerprints per bucket and fingerprintBits bits per
// fingerprint. The number of buckets is rounded up to a power of two
// (required so alternate-bucket XOR addressing stays within range).
func NewCuckooFilter(capacity uint64, bucketSize int, fingerprintBits uint, seed uint64) (*CuckooFilter, error) {
	if capacity == 0 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "capacity must be positive")
	}
	if bucketSize <= 0 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "bucketSize must be positive")
	}
	if fingerprintBits == 0 || fingerprintBits > 32 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "fingerprintBits must be in (0,32]")
	}

	numBuckets := nextPowerOfTwo((capacity + uint64(bucketSize) - 1) / uint64(bucketSize))
	if numBuckets == 0 {
		numBuckets = 1
	}

	buckets := make([][]uint32, numBuckets)
	for i := range buckets {
		buckets[i] = make([]uint32, bucketSize)
	}

	return &CuckooFilter{
		buckets:         buckets,
		bucketSize:      bucketSize,
		fingerprintBits: fingerprintBits,
		numBuckets:      numBuckets,
		maxKicks:        DefaultMaxKicks,
		seed:            seed,
		rng:             rand.New(rand.NewSource(int64(seed))),
	}, nil
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Count returns the number of fingerprints currently stored.
func (c *CuckooFilter) Count() int {
	return c.count
}

func (c *CuckooFilter) fingerprintMask() uint32 {
	return uint32((uint64(1) << c.fingerprintBits) - 1)
}

// locations returns the primary bucket index, fingerprint and alternate
// bucket index for key, following the XOR scheme that lets a fingerprint
// be relocated between i1 and i2 without ever consulting the original key.
func (c *CuckooFilter) locations(key []byte) (i1 uint64, fp uint32, i2 uint64) {
	h := xxhash.NewWithSeed(c.seed)
	h.Write(key)
	hv := h.Sum64()

	i1 = hv % c.numBuckets
	fp = uint32(hv>>32) & c.fingerprintMask()
	if fp == emptyFingerprint {
		fp = 1
	}
	i2 = c.altIndex(i1, fp)
	return
}

// altIndex computes the partner bucket of i for fingerprint fp: applying
// altIndex a second time with the same fp returns the original bucket,
// i.e. altIndex(altIndex(i, fp), fp) == i.
func (c *CuckooFilter) altIndex(i uint64, fp uint32) uint64 {
	h := xxhash.NewWithSeed(c.seed)
	var b [4]byte
	b[0] = byte(fp)
	b[1] = byte(fp >> 8)
	b[2] = byte(fp >> 16)
	b[3] = byte(fp >> 24)
	h.Write(b[:])
	return i ^ (h.Sum64() % c.numBuckets)
}

func bucketInsert(bucket []uint32, fp uint32) bool {
	for i, v := range bucket {
		if v == emptyFingerprint {
			bucket[i] = fp
			return true
		}
	}
	return false
}

func bucketContains(bucket []uint32, fp uint32) bool {
	for _, v := range bucket {
		if v == fp {
			return true
		}
	}
	return false
}

func bucketDelete(bucket []uint32, fp uint32) bool {
	for i, v := range bucket {
		if v == fp {
			bucket[i] = emptyFingerprint
			return true
		}
	}
	return false
}

// Insert adds key to the filter. It returns CapacityExhausted if the
// random-walk eviction chain uses up the filter's kick limit (maxKicks)
// without finding a free slot. On that path every relocation made during
// the walk is undone in reverse order, so a failed Insert leaves the table
// exactly as it was before the call and the key is not added.
func (c *CuckooFilter) Insert(key []byte) error {
	i1, fp, i2 := c.locations(key)

	if bucketInsert(c.buckets[i1], fp) {
		c.count++
		return nil
	}
	if bucketInsert(c.buckets[i2], fp) {
		c.count++
		return nil
	}

	// Both candidate buckets are full: evict a random occupant and re-home
	// it at its alternate bucket, following the classic cuckoo random walk.
	i := i1
	if c.rng.Intn(2) == 1 {
		i = i2
	}
	path := make([]*uint32, 0, c.maxKicks)
	for kick := 0; kick < c.maxKicks; kick++ {
		slot := c.rng.Intn(c.bucketSize)
		path = append(path, &c.buckets[i][slot])
		evicted := c.buckets[i][slot]
		c.buckets[i][slot] = fp
		fp = evicted
		i = c.altIndex(i, fp)
		if bucketInsert(c.buckets[i], fp) {
			c.count++
			return nil
		}
	}
	// Undo the walk: swapping back in reverse order restores every slot and
	// leaves fp holding the new key's fingerprint again.
	for k := len(path) - 1; k >= 0; k-- {
		fp, *path[k] = *path[k], fp
	}
	return sketcherr.New(sketcherr.CapacityExhausted, "cuckoo filter full after %d kicks", c.maxKicks)
}

// Contains reports whether key may be in the filter. Like Bloom, false
// positives are possible but false negatives are not, for keys that have
// not since been deleted.
func (c *CuckooFilter) Contains(key []byte) bool {
	i1, fp, i2 := c.locations(key)
	return bucketContains(c.buckets[i1], fp) || bucketContains(c.buckets[i2], fp)
}

// Delete removes one occurrence of key from the filter, returning false
// if it was not present. Deleting a key that was never inserted (or
// deleting it twice) can, in principle, remove an unrelated key that
// happens to share its fingerprint and bucket — a known cuckoo-filter
// tradeoff, not guarded against here.
func (c *CuckooFilter) Delete(key []byte) bool {
	i1, fp, i2 := c.locations(key)
	if bucketDelete(c.buckets[i1], fp) {
		c.count--
		return true
	}
	if bucketDelete(c.buckets[i2], fp) {
		c.count--
		return true
	}
	return false
}

// LoadFactor returns the fraction of fingerprint slots currently occupied.
func (c *CuckooFilter) LoadFactor() float64 {
	total := c.numBuckets * uint64(c.bucketSize)
	if total == 0 {
		return 0
	}
	return float64(c.count) / float64(total)
}

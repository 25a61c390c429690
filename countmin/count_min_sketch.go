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

package countmin

import (
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

// Variant selects between the classic Count-Min update rule and the
// conservative-update rule, which reduces overestimation at the cost of
// breaking linearity (spec §4.5: weighted deletion is unsupported under
// conservative update).
type Variant uint8

const (
	// Classic applies C[r][h_r] += delta unconditionally on every row.
	Classic Variant = iota
	// Conservative only raises a row's counter up to max(current, c+delta)
	// where c is the current estimate, never lowering any row.
	Conservative
)

// Sketch implements the CountMin sketch data structure of Cormode and
// Muthukrishnan. https://dimacs.rutgers.edu/~graham/pubs/papers/cm-full.pdf
//
// Items are arbitrary byte sequences; callers pre-serialize non-byte keys.
type Sketch struct {
	numBuckets  int32
	numHashes   int8
	variant     Variant
	sketchSlice []int64
	seed        int64
	totalWeight int64
	hashSeeds   []int64
}

// New creates a Count-Min sketch with the classic update rule, given the
// number of hash rows, bucket width per row and a hash seed.
func New(numHashes int8, numBuckets int32, seed int64) (*Sketch, error) {
	return NewWithVariant(numHashes, numBuckets, seed, Classic)
}

// NewWithVariant creates a Count-Min sketch using the given update rule.
func NewWithVariant(numHashes int8, numBuckets int32, seed int64, variant Variant) (*Sketch, error) {
	if numBuckets < 3 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "using fewer than 3 buckets incurs relative error greater than 1.0")
	}
	if numBuckets*int32(numHashes) >= 1<<30 {
		return nil, sketcherr.New(sketcherr.InvalidArgument, "these parameters generate a sketch that exceeds 2^30 elements")
	}

	rng := rand.New(rand.NewSource(seed))
	hashSeeds := make([]int64, numHashes)
	for i := range int(numHashes) {
		hashSeeds[i] = int64(rng.Int()) + seed
	}

	sketchSize := int(numBuckets * int32(numHashes))
	return &Sketch{
		numBuckets:  numBuckets,
		numHashes:   numHashes,
		variant:     variant,
		sketchSlice: make([]int64, sketchSize),
		seed:        seed,
		hashSeeds:   hashSeeds,
	}, nil
}

func (c *Sketch) NumBuckets() int32  { return c.numBuckets }
func (c *Sketch) NumHashes() int8    { return c.numHashes }
func (c *Sketch) Variant() Variant   { return c.variant }
func (c *Sketch) TotalWeight() int64 { return c.totalWeight }
func (c *Sketch) Seed() int64        { return c.seed }

// RelativeError returns e/w, the per-row error bound as a fraction of the
// total inserted weight (spec §4.5).
func (c *Sketch) RelativeError() float64 {
	return math.Exp(1.0) / float64(c.numBuckets)
}

func (c *Sketch) isEmpty() bool {
	return c.totalWeight == 0
}

func (c *Sketch) rowLocations(item []byte) []int64 {
	locations := make([]int64, c.numHashes)
	for i, s := range c.hashSeeds {
		h1, _ := internal.HashByteArrMurmur3(item, 0, len(item), uint64(s))
		bucketIndex := h1 % uint64(c.numBuckets)
		locations[i] = int64(i)*int64(c.numBuckets) + int64(bucketIndex)
	}
	return locations
}

// Update folds one occurrence of item, weighted by delta, into the
// sketch. delta may be negative for the Classic variant only; negative
// deltas are rejected under Conservative since they would break the
// max(current, c+delta) invariant the variant relies on.
func (c *Sketch) Update(item []byte, delta int64) error {
	if len(item) == 0 {
		return nil
	}
	if c.variant == Conservative && delta < 0 {
		return sketcherr.New(sketcherr.InvalidArgument, "conservative update does not support negative deltas")
	}

	if delta < 0 {
		c.totalWeight += -delta
	} else {
		c.totalWeight += delta
	}

	locations := c.rowLocations(item)
	switch c.variant {
	case Conservative:
		cur := int64(math.MaxInt64)
		for _, h := range locations {
			cur = min64(cur, c.sketchSlice[h])
		}
		target := cur + delta
		for _, h := range locations {
			c.sketchSlice[h] = max64(c.sketchSlice[h], target)
		}
	default:
		for _, h := range locations {
			c.sketchSlice[h] += delta
		}
	}
	return nil
}

// UpdateString is a convenience wrapper around Update for string keys.
func (c *Sketch) UpdateString(item string, delta int64) error {
	if len(item) == 0 {
		return nil
	}
	return c.Update([]byte(item), delta)
}

// Estimate returns the estimated frequency of item: the minimum counter
// across all hash rows.
func (c *Sketch) Estimate(item []byte) int64 {
	if len(item) == 0 {
		return 0
	}
	estimate := int64(math.MaxInt64)
	for _, h := range c.rowLocations(item) {
		estimate = min64(estimate, c.sketchSlice[h])
	}
	return estimate
}

// EstimateString is a convenience wrapper around Estimate for string keys.
func (c *Sketch) EstimateString(item string) int64 {
	if len(item) == 0 {
		return 0
	}
	return c.Estimate([]byte(item))
}

// UpperBound returns Estimate(item) + epsilon*N, the worst-case true
// frequency consistent with the current state.
func (c *Sketch) UpperBound(item []byte) int64 {
	return c.Estimate(item) + int64(c.RelativeError()*float64(c.TotalWeight()))
}

// LowerBound returns Estimate(item); Count-Min never underestimates.
func (c *Sketch) LowerBound(item []byte) int64 {
	return c.Estimate(item)
}

// Merge adds other's table into the receiver, requiring identical
// (numHashes, numBuckets, seed, variant).
func (c *Sketch) Merge(other *Sketch) error {
	if c == other {
		return sketcherr.New(sketcherr.InvalidArgument, "cannot merge sketch with itself")
	}
	compatible := c.numHashes == other.numHashes &&
		c.numBuckets == other.numBuckets &&
		c.seed == other.seed &&
		c.variant == other.variant
	if !compatible {
		return sketcherr.New(sketcherr.IncompatibleShape, "count-min sketches have mismatched shape or seed")
	}
	for i := range c.sketchSlice {
		c.sketchSlice[i] += other.sketchSlice[i]
	}
	c.totalWeight += other.totalWeight
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Serialize writes the sketch to a self-describing byte blob using the
// common frame header.
func (c *Sketch) Serialize() []byte {
	flags := common.SetFlag(0, common.FlagIsEmpty, c.isEmpty())
	flags = common.SetFlag(flags, 1, c.variant == Conservative)

	payload := make([]byte, 0, 24+len(c.sketchSlice)*8)
	buf8 := make([]byte, 8)

	binary.LittleEndian.PutUint32(buf8[:4], uint32(c.numBuckets))
	payload = append(payload, buf8[:4]...)
	payload = append(payload, byte(c.numHashes))
	binary.LittleEndian.PutUint64(buf8, uint64(c.seed))
	payload = append(payload, buf8...)

	if c.isEmpty() {
		h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.CountMin.Id), Version: serialVersion1, Flags: flags}
		return common.EncodeFrameHeader(h, payload)
	}

	binary.LittleEndian.PutUint64(buf8, uint64(c.totalWeight))
	payload = append(payload, buf8...)
	for _, v := range c.sketchSlice {
		binary.LittleEndian.PutUint64(buf8, uint64(v))
		payload = append(payload, buf8...)
	}

	h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.CountMin.Id), Version: serialVersion1, Flags: flags}
	return common.EncodeFrameHeader(h, payload)
}

// Deserialize reconstructs a sketch from bytes produced by Serialize.
func Deserialize(b []byte) (*Sketch, error) {
	h, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.CountMin.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 13 {
		return nil, sketcherr.New(sketcherr.FormatError, "count-min payload too short: %d bytes", len(payload))
	}
	off := 0
	numBuckets := int32(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4
	numHashes := int8(payload[off])
	off++
	seed := int64(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8

	variant := Classic
	if common.HasFlag(h.Flags, 1) {
		variant = Conservative
	}

	cms, err := NewWithVariant(numHashes, numBuckets, seed, variant)
	if err != nil {
		return nil, err
	}
	if common.HasFlag(h.Flags, common.FlagIsEmpty) {
		return cms, nil
	}

	if off+8 > len(payload) {
		return nil, sketcherr.New(sketcherr.FormatError, "truncated total weight")
	}
	cms.totalWeight = int64(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8

	i := 0
	for off+8 <= len(payload) && i < len(cms.sketchSlice) {
		cms.sketchSlice[i] = int64(binary.LittleEndian.Uint64(payload[off : off+8]))
		off += 8
		i++
	}
	return cms, nil
}

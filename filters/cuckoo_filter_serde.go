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
	"encoding/binary"
	"math/rand"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const cuckooSerVersion = 1

// Serialize writes the filter to a self-describing byte blob: shape
// parameters followed by every bucket's fingerprints, little-endian.
func (c *CuckooFilter) Serialize() []byte {
	payload := make([]byte, 0, 24+int(c.numBuckets)*c.bucketSize*4)
	buf8 := make([]byte, 8)

	binary.LittleEndian.PutUint64(buf8, c.numBuckets)
	payload = append(payload, buf8...)
	payload = append(payload, byte(c.bucketSize))
	payload = append(payload, byte(c.fingerprintBits))
	binary.LittleEndian.PutUint64(buf8, c.seed)
	payload = append(payload, buf8...)

	buf4 := make([]byte, 4)
	for _, bucket := range c.buckets {
		for _, fp := range bucket {
			binary.LittleEndian.PutUint32(buf4, fp)
			payload = append(payload, buf4...)
		}
	}

	h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.Cuckoo.Id), Version: cuckooSerVersion}
	return common.EncodeFrameHeader(h, payload)
}

// DeserializeCuckooFilter reconstructs a filter from bytes produced by
// Serialize.
func DeserializeCuckooFilter(b []byte) (*CuckooFilter, error) {
	_, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.Cuckoo.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 18 {
		return nil, sketcherr.New(sketcherr.FormatError, "cuckoo filter payload too short: %d bytes", len(payload))
	}
	off := 0
	numBuckets := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8
	bucketSize := int(payload[off])
	off++
	fingerprintBits := uint(payload[off])
	off++
	seed := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8

	buckets := make([][]uint32, numBuckets)
	for i := range buckets {
		buckets[i] = make([]uint32, bucketSize)
		for j := 0; j < bucketSize; j++ {
			if off+4 > len(payload) {
				return nil, sketcherr.New(sketcherr.FormatError, "truncated cuckoo filter bucket %d", i)
			}
			buckets[i][j] = binary.LittleEndian.Uint32(payload[off : off+4])
			off += 4
		}
	}

	count := 0
	for _, bucket := range buckets {
		for _, fp := range bucket {
			if fp != emptyFingerprint {
				count++
			}
		}
	}

	return &CuckooFilter{
		buckets:         buckets,
		bucketSize:      bucketSize,
		fingerprintBits: fingerprintBits,
		numBuckets:      numBuckets,
		count:           count,
		maxKicks:        DefaultMaxKicks,
		seed:            seed,
		rng:             rand.New(rand.NewSource(int64(seed))),
	}, nil
}

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

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const bloomSerVersion = 1

// Serialize writes the filter to a self-describing byte blob: numBits,
// numHashes, seed, then the packed bit-array words.
func (bf *BloomFilter) Serialize() []byte {
	payload := make([]byte, 0, 18+len(bf.set.words)*8)
	var b8 [8]byte

	binary.LittleEndian.PutUint64(b8[:], bf.numBits)
	payload = append(payload, b8[:]...)
	var b2 [2]byte
	binary.LittleEndian.PutUint16(b2[:], bf.numHashes)
	payload = append(payload, b2[:]...)
	binary.LittleEndian.PutUint64(b8[:], bf.seed)
	payload = append(payload, b8[:]...)
	for _, w := range bf.set.words {
		binary.LittleEndian.PutUint64(b8[:], w)
		payload = append(payload, b8[:]...)
	}

	h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.Bloom.Id), Version: bloomSerVersion}
	return common.EncodeFrameHeader(h, payload)
}

// Deserialize reconstructs a filter from bytes produced by Serialize.
func Deserialize(b []byte) (*BloomFilter, error) {
	_, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.Bloom.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 18 {
		return nil, sketcherr.New(sketcherr.FormatError, "bloom filter payload too short: %d bytes", len(payload))
	}
	off := 0
	numBits := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8
	numHashes := binary.LittleEndian.Uint16(payload[off : off+2])
	off += 2
	seed := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8

	bf, err := New(numBits, numHashes, seed)
	if err != nil {
		return nil, err
	}
	for i := range bf.set.words {
		if off+8 > len(payload) {
			return nil, sketcherr.New(sketcherr.FormatError, "truncated bloom filter words at word %d", i)
		}
		bf.set.words[i] = binary.LittleEndian.Uint64(payload[off : off+8])
		off += 8
	}
	return bf, nil
}

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

package cpc

import (
	"encoding/binary"
	"math"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const cpcSerVersion = 1

// flag bits beyond the shared common.Flag* positions.
const flagMerged = 3

// Serialize writes the sketch to a self-describing byte blob: lgK,
// numCoupons, the HIP sum, then either the sorted coupon list (sparse) or
// the per-row bitmask (dense) (spec §6).
func (s *Sketch) Serialize() []byte {
	flags := byte(0)
	flags = common.SetFlag(flags, common.FlagSparseOrDense, s.dense == nil)
	flags = common.SetFlag(flags, flagMerged, s.merged)

	head := 1 + 4 + 8 // lgK, numCoupons, hipSum
	var payload []byte
	if s.dense == nil {
		payload = make([]byte, head+8*len(s.sparse))
	} else {
		payload = make([]byte, head+8*len(s.dense))
	}
	payload[0] = byte(s.lgK)
	binary.LittleEndian.PutUint32(payload[1:5], uint32(s.numCoupons))
	binary.LittleEndian.PutUint64(payload[5:13], math.Float64bits(s.hipSum))

	off := head
	if s.dense == nil {
		for _, c := range s.sparse {
			binary.LittleEndian.PutUint64(payload[off:off+8], c)
			off += 8
		}
	} else {
		for _, w := range s.dense {
			binary.LittleEndian.PutUint64(payload[off:off+8], w)
			off += 8
		}
	}

	h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.CPC.Id), Version: cpcSerVersion, Flags: flags}
	return common.EncodeFrameHeader(h, payload)
}

// Deserialize reconstructs a sketch from bytes produced by Serialize.
func Deserialize(b []byte) (*Sketch, error) {
	h, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.CPC.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 13 {
		return nil, sketcherr.New(sketcherr.FormatError, "cpc payload too short: %d bytes", len(payload))
	}
	lgK := int(payload[0])
	s, err := New(lgK)
	if err != nil {
		return nil, err
	}
	s.numCoupons = int(binary.LittleEndian.Uint32(payload[1:5]))
	s.hipSum = math.Float64frombits(binary.LittleEndian.Uint64(payload[5:13]))
	s.merged = common.HasFlag(h.Flags, flagMerged)

	body := payload[13:]
	if len(body)%8 != 0 {
		return nil, sketcherr.New(sketcherr.FormatError, "cpc body length %d not a multiple of 8", len(body))
	}
	words := len(body) / 8
	if common.HasFlag(h.Flags, common.FlagSparseOrDense) {
		s.sparse = make([]uint64, words)
		for i := 0; i < words; i++ {
			s.sparse[i] = binary.LittleEndian.Uint64(body[i*8 : i*8+8])
		}
		return s, nil
	}
	if words != s.m {
		return nil, sketcherr.New(sketcherr.FormatError, "cpc dense payload has %d rows, want %d", words, s.m)
	}
	s.dense = make([]uint64, words)
	for i := 0; i < words; i++ {
		s.dense[i] = binary.LittleEndian.Uint64(body[i*8 : i*8+8])
	}
	return s, nil
}

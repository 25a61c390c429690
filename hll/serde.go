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

package hll

import (
	"encoding/binary"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const hllSerVersion = 1

// Serialize writes the sketch to a self-describing byte blob. Sparse
// sketches serialize as a count followed by (u32 idx, u8 val) pairs;
// dense sketches serialize as one byte per register, distinguished by
// common.FlagSparseOrDense (spec §6).
func (s *Sketch) Serialize() []byte {
	flags := byte(0)
	var payload []byte
	if s.dense == nil {
		flags = common.SetFlag(flags, common.FlagSparseOrDense, true)
		payload = make([]byte, 1+4+5*len(s.sparse))
		payload[0] = byte(s.precision)
		binary.LittleEndian.PutUint32(payload[1:5], uint32(len(s.sparse)))
		off := 5
		for _, e := range s.sparse {
			binary.LittleEndian.PutUint32(payload[off:off+4], e.idx)
			payload[off+4] = e.val
			off += 5
		}
	} else {
		payload = make([]byte, 1+len(s.dense))
		payload[0] = byte(s.precision)
		copy(payload[1:], s.dense)
	}
	h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.HLL.Id), Version: hllSerVersion, Flags: flags}
	return common.EncodeFrameHeader(h, payload)
}

// Deserialize reconstructs a sketch from bytes produced by Serialize.
func Deserialize(b []byte) (*Sketch, error) {
	h, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.HLL.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 {
		return nil, sketcherr.New(sketcherr.FormatError, "hll payload too short: %d bytes", len(payload))
	}
	precision := int(payload[0])
	s, err := New(precision)
	if err != nil {
		return nil, err
	}

	if common.HasFlag(h.Flags, common.FlagSparseOrDense) {
		if len(payload) < 5 {
			return nil, sketcherr.New(sketcherr.FormatError, "truncated sparse hll header")
		}
		count := binary.LittleEndian.Uint32(payload[1:5])
		off := 5
		s.sparse = make([]sparseEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			if off+5 > len(payload) {
				return nil, sketcherr.New(sketcherr.FormatError, "truncated sparse hll entry %d", i)
			}
			idx := binary.LittleEndian.Uint32(payload[off : off+4])
			val := payload[off+4]
			s.sparse = append(s.sparse, sparseEntry{idx: idx, val: val})
			off += 5
		}
		return s, nil
	}

	if len(payload) < 1+s.m {
		return nil, sketcherr.New(sketcherr.FormatError, "truncated dense hll payload: need %d bytes, got %d", 1+s.m, len(payload))
	}
	s.dense = make([]uint8, s.m)
	copy(s.dense, payload[1:1+s.m])
	return s, nil
}

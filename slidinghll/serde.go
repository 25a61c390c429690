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

package slidinghll

import (
	"encoding/binary"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const serVersion = 1

// Serialize writes the sketch to a self-describing byte blob: precision,
// window, then per register a varint entry count followed by
// (timestamp, value) pairs.
func (s *Sketch) Serialize() []byte {
	payload := make([]byte, 0, 16+s.m*2)
	var b8 [8]byte

	payload = append(payload, byte(s.precision))
	binary.LittleEndian.PutUint64(b8[:], uint64(s.window))
	payload = append(payload, b8[:]...)

	var vbuf [10]byte
	for _, list := range s.registers {
		n := binary.PutUvarint(vbuf[:], uint64(len(list)))
		payload = append(payload, vbuf[:n]...)
		for _, e := range list {
			n = binary.PutUvarint(vbuf[:], uint64(e.t))
			payload = append(payload, vbuf[:n]...)
			payload = append(payload, e.v)
		}
	}

	h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.SlidingHLL.Id), Version: serVersion}
	return common.EncodeFrameHeader(h, payload)
}

// Deserialize reconstructs a sketch from bytes produced by Serialize.
func Deserialize(b []byte) (*Sketch, error) {
	_, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.SlidingHLL.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 9 {
		return nil, sketcherr.New(sketcherr.FormatError, "sliding HLL payload too short: %d bytes", len(payload))
	}
	precision := int(payload[0])
	window := int64(binary.LittleEndian.Uint64(payload[1:9]))

	sk, err := New(precision, window)
	if err != nil {
		return nil, err
	}

	pos := 9
	for i := 0; i < sk.m; i++ {
		count, w := binary.Uvarint(payload[pos:])
		if w <= 0 {
			return nil, sketcherr.New(sketcherr.FormatError, "truncated register entry count at register %d", i)
		}
		pos += w
		list := make([]entry, 0, count)
		for e := uint64(0); e < count; e++ {
			t, w := binary.Uvarint(payload[pos:])
			if w <= 0 {
				return nil, sketcherr.New(sketcherr.FormatError, "truncated entry timestamp at register %d", i)
			}
			pos += w
			if pos >= len(payload) {
				return nil, sketcherr.New(sketcherr.FormatError, "truncated entry value at register %d", i)
			}
			v := payload[pos]
			pos++
			list = append(list, entry{t: int64(t), v: v})
		}
		sk.registers[i] = list
	}
	return sk, nil
}

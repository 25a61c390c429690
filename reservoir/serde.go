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

package reservoir

import (
	"encoding/binary"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const serVersion = 1

// Serialize writes the sketch to a self-describing byte blob: the common
// frame header followed by k, n, the retained item count and the retained
// items, each length-prefixed. Neither the PRNG seed nor its internal
// state is written; a
// deserialized sketch continues sampling from a freshly seeded generator,
// which is sufficient since n and the retained sample are what the uniform
// sampling invariant depends on, not the exact future random sequence.
func (s *Sketch) Serialize() []byte {
	payload := make([]byte, 0, 24+len(s.data)*8)
	buf8 := make([]byte, 8)

	binary.LittleEndian.PutUint32(buf8[:4], uint32(s.k))
	payload = append(payload, buf8[:4]...)
	binary.LittleEndian.PutUint64(buf8, uint64(s.n))
	payload = append(payload, buf8...)

	binary.LittleEndian.PutUint32(buf8[:4], uint32(len(s.data)))
	payload = append(payload, buf8[:4]...)

	for _, item := range s.data {
		binary.LittleEndian.PutUint32(buf8[:4], uint32(len(item)))
		payload = append(payload, buf8[:4]...)
		payload = append(payload, item...)
	}

	flags := common.SetFlag(0, common.FlagIsEmpty, s.n == 0)
	h := common.FrameHeader{
		FamilyID: byte(internal.FamilyEnum.Reservoir.Id),
		Version:  serVersion,
		Flags:    flags,
	}
	return common.EncodeFrameHeader(h, payload)
}

// Deserialize reconstructs a sketch from bytes produced by Serialize, using
// seed to reseed the sketch's PRNG for subsequent updates.
func Deserialize(b []byte, seed int64) (*Sketch, error) {
	_, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.Reservoir.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 16 {
		return nil, sketcherr.New(sketcherr.FormatError, "reservoir payload too short: %d bytes", len(payload))
	}
	off := 0
	k := int(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4
	n := int64(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8
	count := int(binary.LittleEndian.Uint32(payload[off : off+4]))
	off += 4

	sk, err := NewWithSeed(k, seed)
	if err != nil {
		return nil, err
	}
	sk.n = n
	sk.data = make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if off+4 > len(payload) {
			return nil, sketcherr.New(sketcherr.FormatError, "truncated reservoir item length at index %d", i)
		}
		itemLen := int(binary.LittleEndian.Uint32(payload[off : off+4]))
		off += 4
		if off+itemLen > len(payload) {
			return nil, sketcherr.New(sketcherr.FormatError, "truncated reservoir item bytes at index %d", i)
		}
		item := make([]byte, itemLen)
		copy(item, payload[off:off+itemLen])
		sk.data = append(sk.data, item)
		off += itemLen
	}
	return sk, nil
}

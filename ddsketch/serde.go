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

package ddsketch

import (
	"encoding/binary"
	"math"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const serVersion = 1

func putVarint(dst []byte, v uint64) []byte {
	var buf [10]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

func encodeBucketMap(dst []byte, m map[int]uint64) []byte {
	dst = putVarint(dst, uint64(len(m)))
	for _, idx := range sortedIndicesAsc(m) {
		var ib [4]byte
		binary.LittleEndian.PutUint32(ib[:], uint32(int32(idx)))
		dst = append(dst, ib[:]...)
		dst = putVarint(dst, m[idx])
	}
	return dst
}

func decodeBucketMap(b []byte) (map[int]uint64, int, error) {
	n, off := binary.Uvarint(b)
	if off <= 0 {
		return nil, 0, sketcherr.New(sketcherr.FormatError, "truncated bucket map count")
	}
	m := make(map[int]uint64, n)
	pos := off
	for i := uint64(0); i < n; i++ {
		if pos+4 > len(b) {
			return nil, 0, sketcherr.New(sketcherr.FormatError, "truncated bucket index")
		}
		idx := int(int32(binary.LittleEndian.Uint32(b[pos : pos+4])))
		pos += 4
		count, w := binary.Uvarint(b[pos:])
		if w <= 0 {
			return nil, 0, sketcherr.New(sketcherr.FormatError, "truncated bucket count")
		}
		pos += w
		m[idx] = count
	}
	return m, pos, nil
}

// Serialize writes the sketch per the DDSketch payload layout: alpha,
// zero_count, sum, min, max, count, then length-prefixed sorted
// (index, varint count) sequences for the positive and negative maps
// (spec §6.2).
func (s *Sketch) Serialize() []byte {
	payload := make([]byte, 0, 64+len(s.positive)*6+len(s.negative)*6)
	var f8 [8]byte

	binary.LittleEndian.PutUint64(f8[:], math.Float64bits(s.alpha))
	payload = append(payload, f8[:]...)
	payload = putVarint(payload, s.zeros)
	binary.LittleEndian.PutUint64(f8[:], math.Float64bits(s.sum))
	payload = append(payload, f8[:]...)
	binary.LittleEndian.PutUint64(f8[:], math.Float64bits(s.min))
	payload = append(payload, f8[:]...)
	binary.LittleEndian.PutUint64(f8[:], math.Float64bits(s.max))
	payload = append(payload, f8[:]...)
	binary.LittleEndian.PutUint64(f8[:], s.count)
	payload = append(payload, f8[:]...)

	payload = encodeBucketMap(payload, s.positive)
	payload = encodeBucketMap(payload, s.negative)

	flags := common.SetFlag(0, common.FlagHasNegative, len(s.negative) > 0)
	h := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.DDSketch.Id), Version: serVersion, Flags: flags}
	return common.EncodeFrameHeader(h, payload)
}

// Deserialize reconstructs a sketch from bytes produced by Serialize.
func Deserialize(b []byte) (*Sketch, error) {
	_, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.DDSketch.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 40 {
		return nil, sketcherr.New(sketcherr.FormatError, "ddsketch payload too short: %d bytes", len(payload))
	}
	off := 0
	alpha := math.Float64frombits(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8

	zeros, w := binary.Uvarint(payload[off:])
	if w <= 0 {
		return nil, sketcherr.New(sketcherr.FormatError, "truncated zero count")
	}
	off += w

	sum := math.Float64frombits(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8
	minV := math.Float64frombits(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8
	maxV := math.Float64frombits(binary.LittleEndian.Uint64(payload[off : off+8]))
	off += 8
	count := binary.LittleEndian.Uint64(payload[off : off+8])
	off += 8

	positive, n, err := decodeBucketMap(payload[off:])
	if err != nil {
		return nil, err
	}
	off += n
	negative, n, err := decodeBucketMap(payload[off:])
	if err != nil {
		return nil, err
	}
	off += n

	sk, err := New(alpha)
	if err != nil {
		return nil, err
	}
	sk.zeros = zeros
	sk.sum = sum
	sk.min = minV
	sk.max = maxV
	sk.count = count
	sk.positive = positive
	sk.negative = negative
	return sk, nil
}

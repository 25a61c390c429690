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

package theta

import (
	"encoding/binary"

	"github.com/sketchkit/datasketches/common"
	"github.com/sketchkit/datasketches/internal"
	"github.com/sketchkit/datasketches/internal/sketcherr"
)

const thetaSerVersion = 1

// Serialize writes the sketch to a self-describing byte blob: k, theta,
// then the sorted hash list (spec §6).
func (s *Sketch) Serialize() []byte {
	payload := make([]byte, 4+8+8*len(s.hashes))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(s.k))
	binary.LittleEndian.PutUint64(payload[4:12], s.theta)
	off := 12
	for _, h := range s.hashes {
		binary.LittleEndian.PutUint64(payload[off:off+8], h)
		off += 8
	}
	hdr := common.FrameHeader{FamilyID: byte(internal.FamilyEnum.Theta.Id), Version: thetaSerVersion}
	return common.EncodeFrameHeader(hdr, payload)
}

// Deserialize reconstructs a sketch from bytes produced by Serialize.
func Deserialize(b []byte) (*Sketch, error) {
	_, payload, err := common.DecodeFrameHeader(b, byte(internal.FamilyEnum.Theta.Id))
	if err != nil {
		return nil, err
	}
	if len(payload) < 12 {
		return nil, sketcherr.New(sketcherr.FormatError, "theta payload too short: %d bytes", len(payload))
	}
	k := int(binary.LittleEndian.Uint32(payload[0:4]))
	s, err := New(k)
	if err != nil {
		return nil, err
	}
	s.theta = binary.LittleEndian.Uint64(payload[4:12])

	body := payload[12:]
	if len(body)%8 != 0 {
		return nil, sketcherr.New(sketcherr.FormatError, "theta body length %d not a multiple of 8", len(body))
	}
	n := len(body) / 8
	s.hashes = make([]uint64, n)
	for i := 0; i < n; i++ {
		s.hashes[i] = binary.LittleEndian.Uint64(body[i*8 : i*8+8])
	}
	return s, nil
}

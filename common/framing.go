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

package common

import (
	"encoding/binary"

	"github.com/sketchkit/datasketches/internal/sketcherr"
)

// Magic identifies the start of any serialized sketch produced by this
// module, regardless of family.
const Magic = byte(0xE8)

// FrameHeaderLen is the size in bytes of the fixed family header that
// precedes every family-specific payload.
const FrameHeaderLen = 8

// FrameHeader is the common preamble every serialized sketch begins with:
// a magic byte, a family id, a format version and a bitset of flags,
// followed by a little-endian payload length.
type FrameHeader struct {
	FamilyID      byte
	Version       byte
	Flags         byte
	PayloadLength uint32
}

// Flag bit positions within FrameHeader.Flags. Families define their own
// meaning for bits beyond what they use; unused bits must be zero.
const (
	FlagSparseOrDense = 0 // 0 = dense/primary representation, 1 = sparse/compact
	FlagHasNegative   = 1
	FlagIsEmpty       = 2
)

// EncodeFrameHeader returns a new slice holding the 8-byte common header
// followed by a copy of payload. The header's payload length is taken from
// len(payload); h.PayloadLength is ignored.
func EncodeFrameHeader(h FrameHeader, payload []byte) []byte {
	out := make([]byte, FrameHeaderLen+len(payload))
	out[0] = Magic
	out[1] = h.FamilyID
	out[2] = h.Version
	out[3] = h.Flags
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[8:], payload)
	return out
}

// DecodeFrameHeader parses the common header from the front of b and
// returns it along with the payload slice (a view into b, not a copy).
// It validates the magic byte and that the declared payload length agrees
// with the actual remaining bytes.
func DecodeFrameHeader(b []byte, wantFamilyID byte) (FrameHeader, []byte, error) {
	if len(b) < FrameHeaderLen {
		return FrameHeader{}, nil, sketcherr.New(sketcherr.FormatError, "truncated header: need %d bytes, got %d", FrameHeaderLen, len(b))
	}
	if b[0] != Magic {
		return FrameHeader{}, nil, sketcherr.New(sketcherr.FormatError, "bad magic byte 0x%02x", b[0])
	}
	h := FrameHeader{
		FamilyID: b[1],
		Version:  b[2],
		Flags:    b[3],
	}
	h.PayloadLength = binary.LittleEndian.Uint32(b[4:8])
	if wantFamilyID != 0 && h.FamilyID != wantFamilyID {
		return FrameHeader{}, nil, sketcherr.New(sketcherr.FormatError, "unexpected family id %d, want %d", h.FamilyID, wantFamilyID)
	}
	payload := b[FrameHeaderLen:]
	if uint32(len(payload)) != h.PayloadLength {
		return FrameHeader{}, nil, sketcherr.New(sketcherr.FormatError, "payload length mismatch: header says %d, got %d", h.PayloadLength, len(payload))
	}
	return h, payload, nil
}

// HasFlag reports whether bit is set in flags.
func HasFlag(flags byte, bit uint) bool {
	return flags&(1<<bit) != 0
}

// SetFlag returns flags with bit set (or cleared, if v is false).
func SetFlag(flags byte, bit uint, v bool) byte {
	if v {
		return flags | (1 << bit)
	}
	return flags &^ (1 << bit)
}

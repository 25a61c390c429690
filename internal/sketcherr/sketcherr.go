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

// Package sketcherr defines the error taxonomy shared by every sketch family:
// InvalidArgument, IncompatibleShape, FormatError and CapacityExhausted.
// Sketches never log or panic on these; they return them to the caller
// exactly as detected, leaving the receiver in its pre-operation state.
package sketcherr

import (
	"errors"
	"fmt"
)

// Kind classifies a sketch error so callers can branch with Is(err, kind)
// (or errors.As into *SketchError) instead of parsing error strings. Kind is
// not itself an error value.
type Kind int

const (
	// InvalidArgument means a shape parameter or call argument was out of
	// the range the family requires (e.g. HLL precision outside [4,18]).
	InvalidArgument Kind = iota
	// IncompatibleShape means a merge or deserialize targeted a sketch
	// whose shape parameters do not match the receiver's.
	IncompatibleShape
	// FormatError means a byte blob failed to parse: bad magic, truncated
	// payload, or an internally inconsistent length.
	FormatError
	// CapacityExhausted means a Cuckoo filter insert ran out of kicks.
	// It is the only Kind a caller may usefully retry after resizing.
	CapacityExhausted
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case IncompatibleShape:
		return "incompatible shape"
	case FormatError:
		return "format error"
	case CapacityExhausted:
		return "capacity exhausted"
	default:
		return "unknown"
	}
}

// SketchError is a Kind-tagged error. Use errors.As to recover the Kind
// from an error returned by any sketch operation.
type SketchError struct {
	Kind Kind
	Msg  string
}

func (e *SketchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is makes errors.Is(err, target) report true when target is a *SketchError
// of the same Kind as e; the messages are not compared.
func (e *SketchError) Is(target error) bool {
	var t *SketchError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New constructs a Kind-tagged error with a formatted message.
func New(k Kind, format string, args ...any) error {
	return &SketchError{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a SketchError of Kind k.
func Is(err error, k Kind) bool {
	var se *SketchError
	if errors.As(err, &se) {
		return se.Kind == k
	}
	return false
}

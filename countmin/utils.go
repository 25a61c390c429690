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

// Package countmin implements the Count-Min sketch of Cormode and
// Muthukrishnan for approximate frequency estimation over a stream of
// weighted keys, plus its conservative-update variant.
package countmin

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/sketchkit/datasketches/internal/sketcherr"
)

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// SuggestNumBuckets returns the table width w = ceil(e/epsilon) that
// bounds the error contribution of a single row to epsilon*N (spec §4.5).
func SuggestNumBuckets(relativeError float64) (int32, error) {
	if relativeError <= 0 {
		return 0, sketcherr.New(sketcherr.InvalidArgument, "relative error must be greater than 0.0, got %v", relativeError)
	}
	return int32(math.Ceil(math.Exp(1.0) / relativeError)), nil
}

// SuggestNumHashes returns the table depth d = ceil(ln(1/delta)) that
// bounds the failure probability of the estimate to delta (spec §4.5).
func SuggestNumHashes(confidence float64) (int8, error) {
	if confidence < 0 || confidence > 1.0 {
		return 0, sketcherr.New(sketcherr.InvalidArgument, "confidence must be between 0 and 1.0 (inclusive), got %v", confidence)
	}
	return Min(int8(math.Ceil(math.Log(1.0/(1.0-confidence)))), int8(math.MaxInt8)), nil
}

const (
	serialVersion1 = 1
)

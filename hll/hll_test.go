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
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadPrecision(t *testing.T) {
	_, err := New(MinPrecision - 1)
	require.Error(t, err)
	_, err = New(MaxPrecision + 1)
	require.Error(t, err)
}

func TestSparseMode_ExactForSmallCounts(t *testing.T) {
	s, err := New(14)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	assert.True(t, s.IsSparse())
	assert.InDelta(t, 100, s.Estimate(), 5)
}

func TestPromotesToDenseEventually(t *testing.T) {
	s, err := New(10) // m=1024, dense size 1024 bytes
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	assert.False(t, s.IsSparse())
}

func TestEstimateAccuracy(t *testing.T) {
	s, err := New(12) // m=4096, stderr ~= 1.04/sqrt(m) ~= 1.6%
	require.NoError(t, err)
	const n = 50000
	for i := 0; i < n; i++ {
		s.UpdateString(fmt.Sprintf("distinct_item_%d", i))
	}
	est := s.Estimate()
	relErr := math.Abs(est-n) / n
	assert.Less(t, relErr, 0.10)
}

func TestDuplicateUpdatesDontInflate(t *testing.T) {
	s, err := New(10)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		s.UpdateString("same_key")
	}
	assert.InDelta(t, 1, s.Estimate(), 0.5)
}

func TestMerge_RequiresMatchingPrecision(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	b, err := New(11)
	require.NoError(t, err)
	require.Error(t, a.Merge(b))
}

func TestMerge_SparseWithSparse(t *testing.T) {
	a, err := New(12)
	require.NoError(t, err)
	b, err := New(12)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 50; i < 150; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}
	require.NoError(t, a.Merge(b))
	assert.InDelta(t, 150, a.Estimate(), 10)
}

func TestMerge_DenseWithDense(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	b, err := New(10)
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 2500; i < 7500; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}
	require.NoError(t, a.Merge(b))
	assert.False(t, a.IsSparse())
	relErr := math.Abs(a.Estimate()-7500) / 7500
	assert.Less(t, relErr, 0.15)
}

func TestMerge_PromotesSparseReceiverWhenPeerIsDense(t *testing.T) {
	a, err := New(10)
	require.NoError(t, err)
	b, err := New(10)
	require.NoError(t, err)
	a.UpdateString("one")
	for i := 0; i < 5000; i++ {
		b.UpdateString(fmt.Sprintf("b_%d", i))
	}
	require.NoError(t, a.Merge(b))
	assert.False(t, a.IsSparse())
}

func TestSerializeRoundTrip_Sparse(t *testing.T) {
	s, err := New(12)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	b := s.Serialize()
	restored, err := Deserialize(b)
	require.NoError(t, err)
	assert.True(t, restored.IsSparse())
	assert.Equal(t, s.Estimate(), restored.Estimate())
}

func TestSerializeRoundTrip_Dense(t *testing.T) {
	s, err := New(10)
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	b := s.Serialize()
	restored, err := Deserialize(b)
	require.NoError(t, err)
	assert.False(t, restored.IsSparse())
	assert.Equal(t, s.Estimate(), restored.Estimate())
}

func TestDeserialize_BadMagic(t *testing.T) {
	_, err := Deserialize([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}

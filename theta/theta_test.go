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
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadK(t *testing.T) {
	_, err := New(MinK - 1)
	require.Error(t, err)
	_, err = New(MaxK + 1)
	require.Error(t, err)
}

func TestExactModeBelowK(t *testing.T) {
	s, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	assert.False(t, s.IsEstimationMode())
	assert.Equal(t, float64(1000), s.Estimate())
}

func TestEstimationModeAccuracy(t *testing.T) {
	s, err := New(4096)
	require.NoError(t, err)
	const n = 100000
	for i := 0; i < n; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	assert.True(t, s.IsEstimationMode())
	relErr := math.Abs(s.Estimate()-n) / n
	assert.Less(t, relErr, 0.10)
}

func TestDuplicateUpdatesDontInflate(t *testing.T) {
	s, err := New(1024)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		s.UpdateString("same_key")
	}
	assert.Equal(t, 1, s.NumRetained())
}

func TestBounds_StraddleEstimate(t *testing.T) {
	s, err := New(1024)
	require.NoError(t, err)
	for i := 0; i < 50000; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	lo, err := s.LowerBound(2)
	require.NoError(t, err)
	hi, err := s.UpperBound(2)
	require.NoError(t, err)
	assert.LessOrEqual(t, lo, s.Estimate())
	assert.GreaterOrEqual(t, hi, s.Estimate())
}

func TestUnion_CoversBothSets(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	b, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 500; i < 1500; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}
	u := Union(a, b)
	assert.InDelta(t, 1500, u.Estimate(), 1500*0.1)
}

func TestIntersect_KeepsOnlyCommon(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	b, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 500; i < 1500; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}
	x := Intersect(a, b)
	assert.InDelta(t, 500, x.Estimate(), 500*0.15)
}

func TestANotB_KeepsOnlyUniqueToA(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	b, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 500; i < 1500; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}
	d := ANotB(a, b)
	assert.InDelta(t, 500, d.Estimate(), 500*0.15)
}

func TestJaccardSimilarity_IdenticalSetsIsOne(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	b, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		a.UpdateString(fmt.Sprintf("item_%d", i))
		b.UpdateString(fmt.Sprintf("item_%d", i))
	}
	assert.InDelta(t, 1.0, JaccardSimilarity(a, b), 0.01)
}

func TestJaccardSimilarity_DisjointSetsIsZero(t *testing.T) {
	a, err := New(4096)
	require.NoError(t, err)
	b, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 1000; i < 2000; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}
	assert.Equal(t, 0.0, JaccardSimilarity(a, b))
}

func TestAll_IteratesRetainedHashes(t *testing.T) {
	s, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	count := 0
	for range s.All() {
		count++
	}
	assert.Equal(t, s.NumRetained(), count)
}

func TestSerializeRoundTrip(t *testing.T) {
	s, err := New(4096)
	require.NoError(t, err)
	for i := 0; i < 100000; i++ {
		s.UpdateString(fmt.Sprintf("item_%d", i))
	}
	b := s.Serialize()
	restored, err := Deserialize(b)
	require.NoError(t, err)
	assert.Equal(t, s.Estimate(), restored.Estimate())
	assert.Equal(t, s.NumRetained(), restored.NumRetained())
	assert.Equal(t, s.Theta64(), restored.Theta64())
}

func TestDeserialize_BadMagic(t *testing.T) {
	_, err := Deserialize([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}

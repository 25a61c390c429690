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

package filters

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadShapes(t *testing.T) {
	_, err := New(0, 4, DefaultSeed)
	require.Error(t, err)
	_, err = New(1024, 0, DefaultSeed)
	require.Error(t, err)
}

func TestNewByAccuracy_RejectsBadFpp(t *testing.T) {
	_, err := New(0, 1, DefaultSeed)
	require.Error(t, err)
	_, err = NewByAccuracy(1000, 0, DefaultSeed)
	require.Error(t, err)
	_, err = NewByAccuracy(1000, 1, DefaultSeed)
	require.Error(t, err)
}

func TestNoFalseNegatives(t *testing.T) {
	bf, err := NewByAccuracy(1000, 0.01, DefaultSeed)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		bf.UpdateString(fmt.Sprintf("user_%d", i))
	}
	for i := 0; i < 500; i++ {
		assert.True(t, bf.QueryString(fmt.Sprintf("user_%d", i)))
	}
}

func TestFalsePositiveRateNearTarget(t *testing.T) {
	const targetFpp = 0.01
	bf, err := NewByAccuracy(1000, targetFpp, DefaultSeed)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		bf.UpdateString(fmt.Sprintf("present_%d", i))
	}

	falsePositives := 0
	trials := 5000
	for i := 0; i < trials; i++ {
		if bf.QueryString(fmt.Sprintf("absent_%d", i)) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(trials)
	assert.Less(t, rate, targetFpp*3)
}

func TestQueryAndUpdate(t *testing.T) {
	bf, err := NewByAccuracy(100, 0.01, DefaultSeed)
	require.NoError(t, err)

	assert.False(t, bf.QueryAndUpdateString("new_item"))
	assert.True(t, bf.QueryAndUpdateString("new_item"))
}

func TestUnion_RequiresMatchingShape(t *testing.T) {
	a, err := New(1024, 4, DefaultSeed)
	require.NoError(t, err)
	b, err := New(2048, 4, DefaultSeed)
	require.NoError(t, err)
	require.Error(t, a.Union(b))

	c, err := New(1024, 4, DefaultSeed)
	require.NoError(t, err)
	require.NoError(t, a.Union(c))
}

func TestUnion_CoversBothSets(t *testing.T) {
	a, err := NewByAccuracy(1000, 0.01, DefaultSeed)
	require.NoError(t, err)
	b, err := NewByAccuracy(1000, 0.01, DefaultSeed)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 250; i < 750; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}

	require.NoError(t, a.Union(b))
	assert.True(t, a.QueryString("a_0"))
	assert.True(t, a.QueryString("a_600"))
}

func TestIntersect_KeepsOnlyCommonBits(t *testing.T) {
	a, err := New(4096, 4, DefaultSeed)
	require.NoError(t, err)
	b, err := New(4096, 4, DefaultSeed)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		a.UpdateString(fmt.Sprintf("a_%d", i))
	}
	for i := 0; i < 200; i++ {
		b.UpdateString(fmt.Sprintf("a_%d", i))
	}

	require.NoError(t, a.Intersect(b))
	for i := 0; i < 200; i++ {
		assert.True(t, a.QueryString(fmt.Sprintf("a_%d", i)))
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	bf, err := NewByAccuracy(1000, 0.01, DefaultSeed)
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		bf.UpdateString(fmt.Sprintf("user_%d", i))
	}

	b := bf.Serialize()
	restored, err := Deserialize(b)
	require.NoError(t, err)

	assert.Equal(t, bf.NumBits(), restored.NumBits())
	assert.Equal(t, bf.NumHashes(), restored.NumHashes())
	assert.Equal(t, bf.BitsUsed(), restored.BitsUsed())
	assert.True(t, restored.QueryString("user_0"))
}

func TestDeserialize_BadMagic(t *testing.T) {
	_, err := Deserialize([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}

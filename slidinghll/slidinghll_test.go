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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadShapes(t *testing.T) {
	_, err := New(3, 1000)
	require.Error(t, err)
	_, err = New(19, 1000)
	require.Error(t, err)
	_, err = New(10, 0)
	require.Error(t, err)
}

// TestWindowedEstimateScenario reproduces the canonical seed scenario:
// insertions at t=1000 and t=2000; estimateWindow(T=2500, w=600) counts
// only the t=2000 batch.
func TestWindowedEstimateScenario(t *testing.T) {
	sk, err := New(14, 1000)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		sk.Update([]byte(fmt.Sprintf("old-%d", i)), 1000)
	}
	for i := 0; i < 500; i++ {
		sk.Update([]byte(fmt.Sprintf("new-%d", i)), 2000)
	}

	est, err := sk.EstimateWindow(2500, 600)
	require.NoError(t, err)
	assert.InDelta(t, 500, est, 500*0.1)
}

// TestDecayScenario reproduces the canonical decay variant of the seed scenario:
// insert "old" at t=1000; decay(now=5000, w=600); estimateWindow(5000,600)
// < 1.5.
func TestDecayScenario(t *testing.T) {
	sk, err := New(14, 1000)
	require.NoError(t, err)
	sk.Update([]byte("old"), 1000)

	sk.Decay(5000, 600)

	est, err := sk.EstimateWindow(5000, 600)
	require.NoError(t, err)
	assert.Less(t, est, 1.5)
}

func TestEstimateWindow_RejectsWiderThanMax(t *testing.T) {
	sk, err := New(10, 100)
	require.NoError(t, err)
	_, err = sk.EstimateWindow(1000, 200)
	require.Error(t, err)
}

func TestLFPMInvariant_StaysSortedAndDecreasing(t *testing.T) {
	sk, err := New(8, 10000)
	require.NoError(t, err)
	for i := int64(0); i < 2000; i++ {
		sk.Update([]byte(fmt.Sprintf("k-%d", i)), i)
	}
	for _, list := range sk.registers {
		for i := 1; i < len(list); i++ {
			assert.Less(t, list[i-1].t, list[i].t)
			assert.Less(t, list[i].v, list[i-1].v)
		}
	}
}

func TestMerge_RequiresMatchingShape(t *testing.T) {
	a, err := New(10, 1000)
	require.NoError(t, err)
	b, err := New(12, 1000)
	require.NoError(t, err)
	require.Error(t, a.Merge(b))

	c, err := New(10, 1000)
	require.NoError(t, err)
	require.NoError(t, a.Merge(c))
}

func TestMerge_UnionOfDisjointSetsIsMonotonic(t *testing.T) {
	a, err := New(12, 10000)
	require.NoError(t, err)
	b, err := New(12, 10000)
	require.NoError(t, err)

	for i := 0; i < 2000; i++ {
		a.Update([]byte(fmt.Sprintf("a-%d", i)), 100)
	}
	for i := 0; i < 2000; i++ {
		b.Update([]byte(fmt.Sprintf("b-%d", i)), 100)
	}

	estA, err := a.EstimateWindow(100, 1000)
	require.NoError(t, err)

	require.NoError(t, a.Merge(b))
	estMerged, err := a.EstimateWindow(100, 1000)
	require.NoError(t, err)

	assert.Greater(t, estMerged, estA*1.5)
}

func TestSerializeRoundTrip(t *testing.T) {
	sk, err := New(10, 5000)
	require.NoError(t, err)
	for i := 0; i < 300; i++ {
		sk.Update([]byte(fmt.Sprintf("key-%d", i)), int64(i))
	}

	b := sk.Serialize()
	back, err := Deserialize(b)
	require.NoError(t, err)

	assert.Equal(t, sk.Precision(), back.Precision())
	assert.Equal(t, sk.Window(), back.Window())

	want, err := sk.EstimateWindow(299, 100)
	require.NoError(t, err)
	got, err := back.EstimateWindow(299, 100)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

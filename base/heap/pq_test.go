// Copyright 2026 RePlay Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heap

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestPriorityQueue(t *testing.T) {
	pq := NewPriorityQueue(false)
	pq.Push(10, 1)
	pq.Push(20, 2)
	pq.Push(30, 3)
	// duplicate values are ignored
	pq.Push(10, 100)
	assert.Equal(t, 3, pq.Len())
	value, weight := pq.Peek()
	assert.Equal(t, int32(10), value)
	assert.Equal(t, float32(1), weight)
	value, weight = pq.Pop()
	assert.Equal(t, int32(10), value)
	assert.Equal(t, float32(1), weight)
	value, weight = pq.Pop()
	assert.Equal(t, int32(20), value)
	assert.Equal(t, float32(2), weight)
	assert.Panics(t, func() {
		pq.Push(40, math32.NaN())
	})
}

func TestPriorityQueue_Reverse(t *testing.T) {
	pq := NewPriorityQueue(true)
	pq.Push(10, 1)
	pq.Push(20, 2)
	pq.Push(30, 3)
	reversed := pq.Reverse()
	value, weight := reversed.Pop()
	assert.Equal(t, int32(10), value)
	assert.Equal(t, float32(1), weight)
}

func TestTopKFilter(t *testing.T) {
	const n = 100
	const k = 10
	filter := NewTopKFilter[int32, float32](k)
	weights := rand.Perm(n)
	for value, weight := range weights {
		filter.Push(int32(value), float32(weight))
	}
	items, scores := filter.PopAll()
	assert.Len(t, items, k)
	assert.True(t, sort.SliceIsSorted(scores, func(i, j int) bool {
		return scores[i] > scores[j]
	}))
	assert.Equal(t, float32(n-1), scores[0])
}

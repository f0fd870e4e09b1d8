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

package base

import (
	"testing"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/replay-rec/replay/common/floats"
	"github.com/stretchr/testify/assert"
)

const randomEpsilon = 0.1

func TestRandomGenerator_NormalMatrix(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.NormalMatrix(1, 1000, 1, 2)[0]
	assert.False(t, math32.Abs(floats.Mean(vec)-1) > randomEpsilon)
	assert.False(t, math32.Abs(floats.StdDev(vec)-2) > randomEpsilon)
}

func TestRandomGenerator_UniformMatrix(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.UniformMatrix(1, 1000, 1, 2)[0]
	assert.False(t, floats.Min(vec) < 1)
	assert.False(t, floats.Max(vec) > 2)
}

func TestRandomGenerator_Sample(t *testing.T) {
	excludeSet := mapset.NewSet(0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	sampled := rng.Sample(0, 10, 3, excludeSet)
	assert.Equal(t, 3, len(sampled))
	for _, v := range sampled {
		assert.False(t, excludeSet.Contains(v))
	}
	// n greater than interval size returns the whole complement
	sampled = rng.Sample(0, 10, 10, excludeSet)
	assert.ElementsMatch(t, []int{5, 6, 7, 8, 9}, sampled)
}

func TestRandomGenerator_SampleInt32(t *testing.T) {
	excludeSet := mapset.NewSet[int32](0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	sampled := rng.SampleInt32(0, 10, 3, excludeSet)
	assert.Equal(t, 3, len(sampled))
	for _, v := range sampled {
		assert.False(t, excludeSet.Contains(v))
	}
}

func TestNewMatrix32(t *testing.T) {
	m := NewMatrix32(2, 3)
	assert.Len(t, m, 2)
	assert.Len(t, m[0], 3)
	assert.Len(t, m[1], 3)
}

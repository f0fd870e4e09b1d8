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

package floats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	assert.Equal(t, float32(32), Dot(a, b))
	assert.Panics(t, func() { Dot(a, b[:2]) })
}

func TestEuclidean(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}
	assert.Equal(t, float32(5), Euclidean(a, b))
}

func TestAddSub(t *testing.T) {
	a := []float32{1, 2, 3}
	Add(a, []float32{1, 1, 1})
	assert.Equal(t, []float32{2, 3, 4}, a)
	Sub(a, []float32{1, 1, 1})
	assert.Equal(t, []float32{1, 2, 3}, a)
	dst := make([]float32, 3)
	AddTo(a, []float32{1, 1, 1}, dst)
	assert.Equal(t, []float32{2, 3, 4}, dst)
	SubTo(a, []float32{1, 1, 1}, dst)
	assert.Equal(t, []float32{0, 1, 2}, dst)
}

func TestMulConst(t *testing.T) {
	a := []float32{1, 2, 3}
	MulConst(a, 2)
	assert.Equal(t, []float32{2, 4, 6}, a)
	dst := make([]float32, 3)
	MulConstTo(a, 0.5, dst)
	assert.Equal(t, []float32{1, 2, 3}, dst)
	MulConstAddTo(a, 0.5, dst)
	assert.Equal(t, []float32{2, 4, 6}, dst)
	MulAddTo([]float32{1, 1, 1}, []float32{1, 2, 3}, dst)
	assert.Equal(t, []float32{3, 6, 9}, dst)
}

func TestStats(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	assert.Equal(t, float32(10), Sum(a))
	assert.Equal(t, float32(2.5), Mean(a))
	assert.Equal(t, float32(1), Min(a))
	assert.Equal(t, float32(4), Max(a))
	assert.InDelta(t, 1.29099, StdDev(a), 1e-4)
	MatZero([][]float32{a})
	assert.Equal(t, []float32{0, 0, 0, 0}, a)
}

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

package ann

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/replay-rec/replay/base"
	"github.com/replay-rec/replay/common/floats"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func recall(gt, pred []lo.Tuple2[int, float32]) float64 {
	s := mapset.NewSet[int]()
	for _, pair := range gt {
		s.Add(pair.A)
	}
	hit := 0
	for _, pair := range pred {
		if s.Contains(pair.A) {
			hit++
		}
	}
	return float64(hit) / float64(len(gt))
}

func TestBruteforce(t *testing.T) {
	bf := NewBruteforce(floats.Euclidean)
	vectors := [][]float32{{0, 0}, {1, 0}, {0, 1}, {10, 10}, {10, 11}}
	for _, v := range vectors {
		bf.Add(v)
	}
	scores, err := bf.SearchIndex(0, 2, false)
	assert.NoError(t, err)
	assert.Len(t, scores, 2)
	assert.ElementsMatch(t, []int{1, 2}, []int{scores[0].A, scores[1].A})

	scores = bf.SearchVector([]float32{10, 10.4}, 2, false)
	assert.Len(t, scores, 2)
	assert.ElementsMatch(t, []int{3, 4}, []int{scores[0].A, scores[1].A})

	_, err = bf.SearchIndex(100, 2, false)
	assert.Error(t, err)
}

func TestHNSW(t *testing.T) {
	const (
		numVectors = 1000
		dim        = 16
		topK       = 10
		numQueries = 100
	)
	rng := base.NewRandomGenerator(42)
	vectors := rng.UniformMatrix(numVectors, dim, 0, 1)
	bf := NewBruteforce(floats.Euclidean)
	hnsw := NewHNSW(floats.Euclidean)
	for _, v := range vectors {
		bf.Add(v)
		hnsw.Add(v)
	}
	// approximate search must reach the recall of exhaustive search
	var recallSum float64
	for i := 0; i < numQueries; i++ {
		gt, err := bf.SearchIndex(i, topK, false)
		assert.NoError(t, err)
		assert.Len(t, gt, topK)
		scores, err := hnsw.SearchIndex(i, topK, false)
		assert.NoError(t, err)
		assert.Len(t, scores, topK)
		recallSum += recall(gt, scores)
	}
	assert.Greater(t, recallSum/numQueries, 0.9)
}

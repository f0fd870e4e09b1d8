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

package rec

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/c-bata/goptuna"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/stretchr/testify/assert"
)

const evalEpsilon = 0.00001

func TestNDCG(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 5, 7)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.6766372989, NDCG(targetSet, rankList), evalEpsilon)
}

func TestPrecision(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 5, 7)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.4, Precision(targetSet, rankList), evalEpsilon)
}

func TestRecall(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 15, 17, 19)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.4, Recall(targetSet, rankList), evalEpsilon)
}

func TestMAP(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 7, 9)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.44375, MAP(targetSet, rankList), evalEpsilon)
}

func TestMRR(t *testing.T) {
	targetSet := mapset.NewSet[int32](3)
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 0.25, MRR(targetSet, rankList), evalEpsilon)
}

func TestHitRate(t *testing.T) {
	rankList := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 1, HitRate(mapset.NewSet[int32](3), rankList), evalEpsilon)
	assert.InDelta(t, 0, HitRate(mapset.NewSet[int32](30), rankList), evalEpsilon)
}

func TestAUC(t *testing.T) {
	// all positives above all negatives
	assert.InDelta(t, 1.0, AUC(mapset.NewSet[int32](0, 1), []int32{0, 1, 2, 3}), evalEpsilon)
	// all positives below all negatives
	assert.InDelta(t, 0.0, AUC(mapset.NewSet[int32](2, 3), []int32{0, 1, 2, 3}), evalEpsilon)
	// interleaved
	assert.InDelta(t, 0.5, AUC(mapset.NewSet[int32](0, 3), []int32{0, 1, 2, 3}), evalEpsilon)
}

func TestCoverage(t *testing.T) {
	assert.InDelta(t, 0.5, Coverage([][]int32{{0, 1}, {1, 2, 3}, {0}}, 8), evalEpsilon)
	// recommendations outside the catalog push coverage over 1
	assert.Greater(t, Coverage([][]int32{{0, 1, 2, 3, 4, 5}}, 4), float32(1))
	// unknown items are warned about and still counted
	assert.InDelta(t, 0.25, Coverage([][]int32{{0, 9}}, 8), evalEpsilon)
}

type mockRecommenderForEval struct {
	BaseRecommender
	positive []mapset.Set[int32]
	negative []mapset.Set[int32]
}

func (m *mockRecommenderForEval) Marshal(_ io.Writer) error {
	panic("implement me")
}

func (m *mockRecommenderForEval) Unmarshal(_ io.Reader) error {
	panic("implement me")
}

func (m *mockRecommenderForEval) Fit(_ context.Context, _, _ *dataset.Dataset, _ *FitConfig) Score {
	panic("don't call me")
}

func (m *mockRecommenderForEval) Predict(_, _ string) float32 {
	panic("don't call me")
}

func (m *mockRecommenderForEval) InternalPredict(userIndex, itemIndex int32) float32 {
	if m.positive[userIndex].Contains(itemIndex) {
		return 1
	}
	if m.negative[userIndex].Contains(itemIndex) {
		return -1
	}
	return 0
}

func (m *mockRecommenderForEval) GetParamsGrid(_ bool) model.ParamsGrid {
	panic("don't call me")
}

func (m *mockRecommenderForEval) SuggestParams(_ goptuna.Trial) model.Params {
	panic("don't call me")
}

func TestEvaluate(t *testing.T) {
	// create dataset
	train := dataset.NewDataset()
	test := dataset.NewSharedDataset(train)
	for i := 0; i < 16; i++ {
		test.AddIndexedFeedback(train.UserDict.Id(strconv.Itoa(i/4)), train.ItemDict.Id(strconv.Itoa(i)), time.Time{}, 1)
	}
	assert.Equal(t, 16, test.Count())
	assert.Equal(t, 4, test.UserCount())
	assert.Equal(t, 16, test.ItemCount())
	// create model
	m := &mockRecommenderForEval{
		positive: []mapset.Set[int32]{
			mapset.NewSet[int32](0, 1, 2, 3),
			mapset.NewSet[int32](4, 5, 6),
			mapset.NewSet[int32](8, 9),
			mapset.NewSet[int32](12),
		},
		negative: []mapset.Set[int32]{
			mapset.NewSet[int32](),
			mapset.NewSet[int32](7),
			mapset.NewSet[int32](10, 11),
			mapset.NewSet[int32](13, 14, 15),
		},
	}
	// evaluate model
	s := Evaluate(context.Background(), m, test, train, 4, test.ItemCount(), 4, Precision)
	assert.Equal(t, 1, len(s))
	assert.Equal(t, float32(0.625), s[0])
}

func TestRank(t *testing.T) {
	m := &mockRecommenderForEval{
		positive: []mapset.Set[int32]{mapset.NewSet[int32](2, 4)},
		negative: []mapset.Set[int32]{mapset.NewSet[int32](1, 3)},
	}
	rankList, scores := Rank(m, 0, []int32{1, 2, 3, 4}, 2)
	assert.ElementsMatch(t, []int32{2, 4}, rankList)
	assert.Equal(t, []float32{1, 1}, scores)
}

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
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/stretchr/testify/assert"
)

// newPreferenceLog builds a log where even users interact with even items
// and odd users with odd items. The last interaction of each user is held
// out into the test set.
func newPreferenceLog(numUsers, numItems int) (train, test *dataset.Dataset) {
	data := dataset.NewDataset()
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	row := 0
	for u := 0; u < numUsers; u++ {
		for i := u % 2; i < numItems; i += 2 {
			data.AddFeedback(strconv.Itoa(u), strconv.Itoa(i), ts.Add(time.Duration(row)*time.Minute), 1)
			row++
		}
	}
	// hold out the last item of each user
	trainIndices := make([]int, 0, data.Count())
	testIndices := make([]int, 0, numUsers)
	row = 0
	for u := 0; u < numUsers; u++ {
		count := 0
		for i := u % 2; i < numItems; i += 2 {
			count++
		}
		for j := 0; j < count; j++ {
			if j == count-1 {
				testIndices = append(testIndices, row)
			} else {
				trainIndices = append(trainIndices, row)
			}
			row++
		}
	}
	return data.SubSet(trainIndices), data.SubSet(testIndices)
}

func TestPopRec(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	// item a is seen by three users, b by two, c by one
	data.AddFeedback("1", "a", ts, 1)
	data.AddFeedback("2", "a", ts, 1)
	data.AddFeedback("3", "a", ts, 1)
	data.AddFeedback("1", "b", ts, 1)
	data.AddFeedback("2", "b", ts, 1)
	data.AddFeedback("3", "c", ts, 1)
	m := NewPopRec(nil)
	m.Fit(context.Background(), data, nil, NewFitConfig())
	assert.Equal(t, float32(1), m.Predict("1", "a"))
	assert.InDelta(t, 2.0/3, m.Predict("1", "b"), evalEpsilon)
	assert.InDelta(t, 1.0/3, m.Predict("1", "c"), evalEpsilon)
	// popularity is the same for every user
	assert.Equal(t, m.Predict("1", "a"), m.Predict("3", "a"))
	// marshal and unmarshal
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalModel(buf, m))
	copied, err := UnmarshalModel(buf)
	assert.NoError(t, err)
	assert.Equal(t, m.Predict("1", "b"), copied.Predict("1", "b"))
}

func TestUserPopRec(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	data.AddFeedback("1", "a", ts, 1)
	data.AddFeedback("1", "a", ts, 1)
	data.AddFeedback("1", "b", ts, 1)
	data.AddFeedback("2", "b", ts, 1)
	m := NewUserPopRec(nil)
	m.Fit(context.Background(), data, nil, NewFitConfig())
	assert.InDelta(t, 2.0/3, m.Predict("1", "a"), evalEpsilon)
	assert.InDelta(t, 1.0/3, m.Predict("1", "b"), evalEpsilon)
	// unseen items always score zero
	assert.Equal(t, float32(0), m.Predict("2", "a"))
	// recommendations never contain unseen items
	items, _ := Recommend(m, 1, 10, nil)
	for _, itemIndex := range items {
		if m.InternalPredict(1, itemIndex) == 0 {
			continue
		}
		itemId, _ := m.GetItemDict().String(itemIndex)
		assert.Equal(t, "b", itemId)
	}
}

func TestUserPopRec_UseRelevance(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	data.AddFeedback("1", "a", ts, 3)
	data.AddFeedback("1", "b", ts, 1)
	m := NewUserPopRec(model.Params{model.UseRelevance: true})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	assert.InDelta(t, 0.75, m.Predict("1", "a"), evalEpsilon)
	assert.InDelta(t, 0.25, m.Predict("1", "b"), evalEpsilon)
}

func TestRandomRec(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	for i := 0; i < 10; i++ {
		data.AddFeedback("1", strconv.Itoa(i), ts, 1)
	}
	m := NewRandomRec(model.Params{model.Seed: int64(42)})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	// deterministic given the seed
	n := NewRandomRec(model.Params{model.Seed: int64(42)})
	n.Fit(context.Background(), data, nil, NewFitConfig())
	for i := int32(0); i < 10; i++ {
		score := m.InternalPredict(0, i)
		assert.Greater(t, score, float32(0))
		assert.Less(t, score, float32(1))
		assert.Equal(t, score, n.InternalPredict(0, i))
	}
	// different seeds give different rankings
	o := NewRandomRec(model.Params{model.Seed: int64(43)})
	o.Fit(context.Background(), data, nil, NewFitConfig())
	same := true
	for i := int32(0); i < 10; i++ {
		if m.InternalPredict(0, i) != o.InternalPredict(0, i) {
			same = false
		}
	}
	assert.False(t, same)
}

func TestWilson(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	// item a: 4 likes, item b: 2 likes 2 dislikes, item c: 1 like
	for i := 0; i < 4; i++ {
		data.AddFeedback(strconv.Itoa(i), "a", ts, 1)
	}
	data.AddFeedback("0", "b", ts, 1)
	data.AddFeedback("1", "b", ts, 1)
	data.AddFeedback("2", "b", ts, 0)
	data.AddFeedback("3", "b", ts, 0)
	data.AddFeedback("0", "c", ts, 1)
	m := NewWilson(nil)
	m.Fit(context.Background(), data, nil, NewFitConfig())
	// more likes with more evidence wins
	assert.Greater(t, m.Predict("0", "a"), m.Predict("0", "b"))
	// a single like carries less confidence than four likes
	assert.Greater(t, m.Predict("0", "a"), m.Predict("0", "c"))
}

func TestUCB(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	// item a: popular with good reward, item b: rarely shown
	for i := 0; i < 100; i++ {
		data.AddFeedback(strconv.Itoa(i), "a", ts, 1)
	}
	data.AddFeedback("0", "b", ts, 1)
	m := NewUCB(model.Params{model.Exploration: 2.0})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	// the rarely shown item gets a larger exploration bonus
	assert.Greater(t, m.Predict("0", "b"), m.Predict("0", "a"))
	// reducing exploration closes the gap monotonically
	low := NewUCB(model.Params{model.Exploration: 0.0})
	low.Fit(context.Background(), data, nil, NewFitConfig())
	assert.Equal(t, float32(1), low.Predict("0", "a"))
	assert.Equal(t, float32(1), low.Predict("0", "b"))
}

func TestItemKNN(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	// items a and b share all users, c is independent
	for i := 0; i < 4; i++ {
		data.AddFeedback(strconv.Itoa(i), "a", ts, 1)
		data.AddFeedback(strconv.Itoa(i), "b", ts, 1)
	}
	data.AddFeedback("9", "c", ts, 1)
	m := NewItemKNN(model.Params{model.NumNeighbors: 10})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	// user 0 has seen a, so b scores high and c scores zero
	assert.Greater(t, m.Predict("0", "b"), float32(0))
	assert.Equal(t, float32(0), m.Predict("0", "c"))
	// identical user sets give cosine similarity 1
	assert.InDelta(t, 1.0, m.PredictProfile([]int32{m.GetItemDict().Lookup("a")}, m.GetItemDict().Lookup("b")), evalEpsilon)
	// jaccard
	j := NewItemKNN(model.Params{model.Similarity: model.SimilarityJaccard, model.NumNeighbors: 10})
	j.Fit(context.Background(), data, nil, NewFitConfig())
	assert.InDelta(t, 1.0, j.PredictProfile([]int32{j.GetItemDict().Lookup("a")}, j.GetItemDict().Lookup("b")), evalEpsilon)
	// marshaled models keep their neighbor lists
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalModel(buf, m))
	copied, err := UnmarshalModel(buf)
	assert.NoError(t, err)
	knn := copied.(*ItemKNN)
	assert.InDelta(t, 1.0, knn.PredictProfile([]int32{knn.GetItemDict().Lookup("a")}, knn.GetItemDict().Lookup("b")), evalEpsilon)
}

func TestItemKNN_Clone(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	for i := 0; i < 4; i++ {
		data.AddFeedback(strconv.Itoa(i), "a", ts, 1)
		data.AddFeedback(strconv.Itoa(i), "b", ts, 1)
	}
	m := NewItemKNN(model.Params{model.NumNeighbors: 10})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	assert.Greater(t, m.Predict("0", "b"), float32(0))
	// clones keep the user histories needed for scoring
	copied := Clone(m).(*ItemKNN)
	assert.Equal(t, m.Predict("0", "b"), copied.Predict("0", "b"))
	assert.Equal(t, m.InternalPredict(0, m.GetItemDict().Lookup("b")),
		copied.InternalPredict(0, copied.GetItemDict().Lookup("b")))
}

func TestItemKNN_NearestItems(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	// items a and b share four users, c shares two of them with a
	for i := 0; i < 4; i++ {
		data.AddFeedback(strconv.Itoa(i), "a", ts, 1)
		data.AddFeedback(strconv.Itoa(i), "b", ts, 1)
	}
	data.AddFeedback("0", "c", ts, 1)
	data.AddFeedback("1", "c", ts, 1)
	m := NewItemKNN(model.Params{model.NumNeighbors: 10})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	// unfitted models cannot be queried
	_, _, err := NewItemKNN(nil).NearestItems(0, 2)
	assert.Error(t, err)
	items, similarities, err := m.NearestItems(m.GetItemDict().Lookup("a"), 2)
	assert.NoError(t, err)
	assert.Equal(t, []int32{m.GetItemDict().Lookup("b"), m.GetItemDict().Lookup("c")}, items)
	assert.InDelta(t, 1.0, similarities[0], evalEpsilon)
	assert.Greater(t, similarities[0], similarities[1])
	_, _, err = m.NearestItems(100, 2)
	assert.Error(t, err)
}

func TestItemKNN_Approximate(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	for i := 0; i < 4; i++ {
		data.AddFeedback(strconv.Itoa(i), "a", ts, 1)
		data.AddFeedback(strconv.Itoa(i), "b", ts, 1)
	}
	data.AddFeedback("0", "c", ts, 1)
	data.AddFeedback("1", "c", ts, 1)
	m := NewItemKNN(model.Params{model.NumNeighbors: 10, model.Approximate: true})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	// identical user sets keep similarity one under the index
	assert.InDelta(t, 1.0, m.PredictProfile([]int32{m.GetItemDict().Lookup("a")}, m.GetItemDict().Lookup("b")), evalEpsilon)
	assert.Greater(t, m.Predict("0", "b"), float32(0))
	items, _, err := m.NearestItems(m.GetItemDict().Lookup("a"), 1)
	assert.NoError(t, err)
	assert.Equal(t, []int32{m.GetItemDict().Lookup("b")}, items)
}

func TestBPR(t *testing.T) {
	train, test := newPreferenceLog(32, 16)
	m := NewBPR(model.Params{
		model.NFactors:    8,
		model.NEpochs:     30,
		model.RandomState: int64(42),
	})
	score := m.Fit(context.Background(), train, test, NewFitConfig().SetVerbose(100).SetJobs(2))
	assert.Greater(t, score.NDCG, float32(0.3))
	// preferred items score above the rest on average
	var preferred, other float32
	for i := int32(0); i < 16; i += 2 {
		preferred += m.InternalPredict(0, i)
		other += m.InternalPredict(0, i+1)
	}
	assert.Greater(t, preferred, other)
	// marshal and unmarshal
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalModel(buf, m))
	copied, err := UnmarshalModel(buf)
	assert.NoError(t, err)
	assert.InDelta(t, m.InternalPredict(0, 0), copied.InternalPredict(0, 0), evalEpsilon)
}

func TestBPR_NearestItems(t *testing.T) {
	train, test := newPreferenceLog(32, 16)
	m := NewBPR(model.Params{
		model.NFactors:    8,
		model.NEpochs:     30,
		model.RandomState: int64(42),
	})
	m.Fit(context.Background(), train, test, NewFitConfig().SetVerbose(100))
	// unfitted models cannot be indexed
	_, err := NewBPR(nil).BuildItemIndex(false)
	assert.Error(t, err)
	for _, approximate := range []bool{false, true} {
		index, err := m.BuildItemIndex(approximate)
		assert.NoError(t, err)
		items, distances, err := index.NearestItems(0, 4)
		assert.NoError(t, err)
		assert.Equal(t, 4, len(items))
		assert.Equal(t, 4, len(distances))
		assert.NotContains(t, items, int32(0))
		_, _, err = index.NearestItems(100, 4)
		assert.Error(t, err)
	}
}

func TestALS(t *testing.T) {
	train, test := newPreferenceLog(32, 16)
	m := NewALS(model.Params{
		model.NFactors:    8,
		model.NEpochs:     10,
		model.RandomState: int64(42),
	})
	score := m.Fit(context.Background(), train, test, NewFitConfig().SetVerbose(100).SetJobs(2))
	assert.Greater(t, score.NDCG, float32(0.3))
	var preferred, other float32
	for i := int32(0); i < 16; i += 2 {
		preferred += m.InternalPredict(0, i)
		other += m.InternalPredict(0, i+1)
	}
	assert.Greater(t, preferred, other)
}

func TestClone(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	data.AddFeedback("1", "a", ts, 1)
	data.AddFeedback("2", "b", ts, 1)
	m := NewPopRec(model.Params{model.RandomState: int64(7)})
	m.Fit(context.Background(), data, nil, NewFitConfig())
	copied := Clone(m)
	assert.Equal(t, "pop", GetModelName(copied))
	assert.Equal(t, m.Predict("1", "a"), copied.Predict("1", "a"))
	// the copy is independent
	m.Clear()
	assert.False(t, copied.Invalid())
}

func TestNewModel(t *testing.T) {
	for _, name := range []string{"pop", "user_pop", "random", "wilson", "ucb", "knn", "bpr", "als"} {
		m, err := NewModel(name, nil)
		assert.NoError(t, err)
		assert.Equal(t, name, GetModelName(m))
	}
	_, err := NewModel("unknown", nil)
	assert.Error(t, err)
}

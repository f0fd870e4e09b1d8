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
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base/encoding"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

// mockRecommenderForSearch scores a parameter combination without training so
// the search strategies can be checked deterministically.
type mockRecommenderForSearch struct {
	BaseRecommender
}

func newMockRecommenderForSearch() *mockRecommenderForSearch {
	return new(mockRecommenderForSearch)
}

func (m *mockRecommenderForSearch) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.InitMean:   []interface{}{0.1, 0.3, 0.5},
		model.InitStdDev: []interface{}{0.01, 0.05, 0.1},
	}
}

func (m *mockRecommenderForSearch) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.InitMean:   lo.Must(trial.SuggestFloat(string(model.InitMean), 0, 1)),
		model.InitStdDev: lo.Must(trial.SuggestFloat(string(model.InitStdDev), 0, 1)),
	}
}

func (m *mockRecommenderForSearch) Fit(_ context.Context, _, _ *dataset.Dataset, _ *FitConfig) Score {
	score := m.Params.GetFloat32(model.InitMean, 0) +
		m.Params.GetFloat32(model.InitStdDev, 0)
	return Score{NDCG: score}
}

func (m *mockRecommenderForSearch) Predict(_, _ string) float32 {
	panic("don't call me")
}

func (m *mockRecommenderForSearch) InternalPredict(_, _ int32) float32 {
	panic("don't call me")
}

func (m *mockRecommenderForSearch) Marshal(w io.Writer) error {
	return errors.Trace(encoding.WriteGob(w, m.Params))
}

func (m *mockRecommenderForSearch) Unmarshal(r io.Reader) error {
	return errors.Trace(encoding.ReadGob(r, &m.Params))
}

func TestGridSearchCV(t *testing.T) {
	m := newMockRecommenderForSearch()
	r := GridSearchCV(context.Background(), m, nil, nil, m.GetParamsGrid(false), 0, NewFitConfig())
	assert.Equal(t, 9, len(r.Scores))
	assert.InDelta(t, 0.6, r.BestScore.NDCG, evalEpsilon)
	assert.Equal(t, model.Params{
		model.InitMean:   0.5,
		model.InitStdDev: 0.1,
	}, r.BestParams)
	assert.NotNil(t, r.BestModel)
}

func TestGridSearchCV_BestModelFitted(t *testing.T) {
	data := dataset.NewDataset()
	ts := time.Now()
	for i := 0; i < 4; i++ {
		data.AddFeedback(strconv.Itoa(i), "a", ts, 1)
		data.AddFeedback(strconv.Itoa(i), "b", ts, 1)
	}
	m := NewItemKNN(model.Params{model.NumNeighbors: 10})
	r := GridSearchCV(context.Background(), m, data, nil, model.ParamsGrid{
		model.Shrink: []interface{}{0.0, 1.0},
	}, 0, NewFitConfig())
	// the returned best model scores without refitting
	best := r.BestModel.(*ItemKNN)
	assert.Greater(t, best.Predict("0", "b"), float32(0))
}

func TestRandomSearchCV(t *testing.T) {
	// fewer combinations than trials falls back to grid search
	m := newMockRecommenderForSearch()
	r := RandomSearchCV(context.Background(), m, nil, nil, m.GetParamsGrid(false), 10, 42, NewFitConfig())
	assert.Equal(t, 9, len(r.Scores))
	assert.InDelta(t, 0.6, r.BestScore.NDCG, evalEpsilon)
	// the random path keeps the best of the sampled combinations
	r = RandomSearchCV(context.Background(), m, nil, nil, m.GetParamsGrid(false), 5, 42, NewFitConfig())
	assert.Equal(t, 5, len(r.Scores))
	best := r.Scores[0].NDCG
	for _, score := range r.Scores {
		if score.NDCG > best {
			best = score.NDCG
		}
	}
	assert.Equal(t, best, r.BestScore.NDCG)
}

func TestTPE(t *testing.T) {
	search := NewModelSearch(map[string]ModelCreator{
		"mock": func() Recommender { return newMockRecommenderForSearch() },
	}, nil, nil, NewFitConfig())
	result, err := search.Optimize(10)
	assert.NoError(t, err)
	assert.Equal(t, "mock", result.Type)
	assert.Greater(t, result.Score.NDCG, float32(0))
}

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
	"time"

	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base/encoding"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Wilson recommends items by the lower bound of the Wilson confidence
// interval on the share of positive interactions. Interactions with positive
// relevance count as successes, the rest as failures.
type Wilson struct {
	BaseRecommender
	ItemScores []float32
}

func NewWilson(params model.Params) *Wilson {
	w := new(Wilson)
	w.SetParams(params)
	return w
}

func (w *Wilson) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{}
}

func (w *Wilson) SuggestParams(_ goptuna.Trial) model.Params {
	return model.Params{}
}

func (w *Wilson) Clear() {
	w.BaseRecommender.Clear()
	w.ItemScores = nil
}

func (w *Wilson) Invalid() bool {
	return w == nil || w.ItemScores == nil || w.BaseRecommender.Invalid()
}

func (w *Wilson) Fit(_ context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit wilson",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Any("params", w.GetParams()))
	w.Init(trainSet)
	fitStart := time.Now()
	// 95% confidence
	const z = float32(1.96)
	w.ItemScores = make([]float32, trainSet.ItemCount())
	for itemIndex := range w.ItemScores {
		relevances := trainSet.ItemRelevances[itemIndex]
		if len(relevances) == 0 {
			continue
		}
		var positive float32
		for _, relevance := range relevances {
			if relevance > 0 {
				positive++
			}
		}
		n := float32(len(relevances))
		pHat := positive / n
		w.ItemScores[itemIndex] = (pHat + z*z/(2*n) - z*math32.Sqrt((pHat*(1-pHat)+z*z/(4*n))/n)) / (1 + z*z/n)
	}
	fitTime := time.Since(fitStart)
	scores := evalFitted(w, valSet, trainSet, config)
	log.Logger().Info("fit wilson complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.String("fit_time", fitTime.String()))
	return scores
}

func (w *Wilson) Predict(userId, itemId string) float32 {
	return predict(w, userId, itemId)
}

func (w *Wilson) InternalPredict(_, itemIndex int32) float32 {
	if itemIndex < 0 || int(itemIndex) >= len(w.ItemScores) {
		return 0
	}
	return w.ItemScores[itemIndex]
}

func (w *Wilson) Marshal(writer io.Writer) error {
	if err := w.marshalBase(writer); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(writer, w.ItemScores))
}

func (w *Wilson) Unmarshal(r io.Reader) error {
	if err := w.unmarshalBase(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &w.ItemScores); err != nil {
		return errors.Trace(err)
	}
	w.SetParams(w.Params)
	return nil
}

// UCB is an upper confidence bound bandit over items. Relevance is treated as
// binary: positive values are wins, the rest are losses. The score of an item
// is its mean reward plus an exploration bonus that shrinks as the item
// accumulates interactions, so rarely shown items keep being recommended.
type UCB struct {
	BaseRecommender
	exploration float32
	ItemMeans   []float32
	ItemCounts  []float32
	Total       float32
}

func NewUCB(params model.Params) *UCB {
	u := new(UCB)
	u.SetParams(params)
	return u
}

func (u *UCB) SetParams(params model.Params) {
	u.BaseRecommender.SetParams(params)
	u.exploration = u.Params.GetFloat32(model.Exploration, 2)
}

func (u *UCB) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.Exploration: []interface{}{0.5, 1.0, 2.0, 4.0},
	}
}

func (u *UCB) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.Exploration: lo.Must(trial.SuggestLogFloat(string(model.Exploration), 0.1, 10)),
	}
}

func (u *UCB) Clear() {
	u.BaseRecommender.Clear()
	u.ItemMeans = nil
	u.ItemCounts = nil
	u.Total = 0
}

func (u *UCB) Invalid() bool {
	return u == nil || u.ItemMeans == nil || u.BaseRecommender.Invalid()
}

func (u *UCB) Fit(_ context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit ucb",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Any("params", u.GetParams()))
	u.Init(trainSet)
	fitStart := time.Now()
	u.ItemMeans = make([]float32, trainSet.ItemCount())
	u.ItemCounts = make([]float32, trainSet.ItemCount())
	u.Total = float32(trainSet.Count())
	for itemIndex := range u.ItemMeans {
		relevances := trainSet.ItemRelevances[itemIndex]
		u.ItemCounts[itemIndex] = float32(len(relevances))
		if len(relevances) == 0 {
			// uniform prior for items without interactions
			u.ItemMeans[itemIndex] = 0.5
			continue
		}
		var wins float32
		for _, relevance := range relevances {
			if relevance > 0 {
				wins++
			}
		}
		u.ItemMeans[itemIndex] = wins / float32(len(relevances))
	}
	fitTime := time.Since(fitStart)
	scores := evalFitted(u, valSet, trainSet, config)
	log.Logger().Info("fit ucb complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.String("fit_time", fitTime.String()))
	return scores
}

func (u *UCB) Predict(userId, itemId string) float32 {
	return predict(u, userId, itemId)
}

func (u *UCB) InternalPredict(_, itemIndex int32) float32 {
	if itemIndex < 0 || int(itemIndex) >= len(u.ItemMeans) {
		return 0
	}
	count := u.ItemCounts[itemIndex]
	if count < 1 {
		count = 1
	}
	return u.ItemMeans[itemIndex] + u.exploration*math32.Sqrt(2*math32.Log(u.Total)/count)
}

func (u *UCB) Marshal(w io.Writer) error {
	if err := u.marshalBase(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, u.ItemMeans); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, u.ItemCounts); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, u.Total))
}

func (u *UCB) Unmarshal(r io.Reader) error {
	if err := u.unmarshalBase(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &u.ItemMeans); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &u.ItemCounts); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &u.Total); err != nil {
		return errors.Trace(err)
	}
	u.SetParams(u.Params)
	return nil
}

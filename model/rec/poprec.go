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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base/encoding"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PopRec recommends items by popularity. The relevance of an item is the
// share of users who interacted with it.
type PopRec struct {
	BaseRecommender
	ItemScores []float32
}

func NewPopRec(params model.Params) *PopRec {
	p := new(PopRec)
	p.SetParams(params)
	return p
}

func (p *PopRec) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{}
}

func (p *PopRec) SuggestParams(_ goptuna.Trial) model.Params {
	return model.Params{}
}

func (p *PopRec) Clear() {
	p.BaseRecommender.Clear()
	p.ItemScores = nil
}

func (p *PopRec) Invalid() bool {
	return p == nil || p.ItemScores == nil || p.BaseRecommender.Invalid()
}

func (p *PopRec) Fit(_ context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit pop",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Any("params", p.GetParams()))
	p.Init(trainSet)
	fitStart := time.Now()
	p.ItemScores = make([]float32, trainSet.ItemCount())
	numUsers := float32(trainSet.CountUserFeedback())
	for itemIndex := range p.ItemScores {
		users := mapset.NewThreadUnsafeSet(trainSet.GetItemFeedback(int32(itemIndex))...)
		p.ItemScores[itemIndex] = float32(users.Cardinality()) / numUsers
	}
	fitTime := time.Since(fitStart)
	scores := evalFitted(p, valSet, trainSet, config)
	log.Logger().Info("fit pop complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.String("fit_time", fitTime.String()))
	return scores
}

func (p *PopRec) Predict(userId, itemId string) float32 {
	return predict(p, userId, itemId)
}

func (p *PopRec) InternalPredict(_, itemIndex int32) float32 {
	if itemIndex < 0 || int(itemIndex) >= len(p.ItemScores) {
		return 0
	}
	return p.ItemScores[itemIndex]
}

func (p *PopRec) Marshal(w io.Writer) error {
	if err := p.marshalBase(w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, p.ItemScores))
}

func (p *PopRec) Unmarshal(r io.Reader) error {
	if err := p.unmarshalBase(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.ItemScores); err != nil {
		return errors.Trace(err)
	}
	p.SetParams(p.Params)
	return nil
}

// UserPopRec recommends items each user already interacted with, ordered by
// the share of the user's interactions spent on the item. With UseRelevance
// the share is weighted by relevance values instead of counts. Unseen items
// always score zero.
type UserPopRec struct {
	BaseRecommender
	useRelevance   bool
	UserItemScores []map[int32]float32
}

func NewUserPopRec(params model.Params) *UserPopRec {
	p := new(UserPopRec)
	p.SetParams(params)
	return p
}

func (p *UserPopRec) SetParams(params model.Params) {
	p.BaseRecommender.SetParams(params)
	p.useRelevance = p.Params.GetBool(model.UseRelevance, false)
}

func (p *UserPopRec) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.UseRelevance: []interface{}{false, true},
	}
}

func (p *UserPopRec) SuggestParams(_ goptuna.Trial) model.Params {
	return model.Params{}
}

func (p *UserPopRec) Clear() {
	p.BaseRecommender.Clear()
	p.UserItemScores = nil
}

func (p *UserPopRec) Invalid() bool {
	return p == nil || p.UserItemScores == nil || p.BaseRecommender.Invalid()
}

func (p *UserPopRec) Fit(_ context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit user_pop",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Any("params", p.GetParams()))
	p.Init(trainSet)
	fitStart := time.Now()
	p.UserItemScores = make([]map[int32]float32, trainSet.UserCount())
	for userIndex := range p.UserItemScores {
		feedback := trainSet.GetUserFeedback(int32(userIndex))
		if len(feedback) == 0 {
			continue
		}
		counts := make(map[int32]float32, len(feedback))
		total := float32(0)
		for i, itemIndex := range feedback {
			weight := float32(1)
			if p.useRelevance {
				weight = trainSet.UserRelevances[userIndex][i]
			}
			counts[itemIndex] += weight
			total += weight
		}
		if total > 0 {
			for itemIndex := range counts {
				counts[itemIndex] /= total
			}
		}
		p.UserItemScores[userIndex] = counts
	}
	fitTime := time.Since(fitStart)
	scores := evalFitted(p, valSet, trainSet, config)
	log.Logger().Info("fit user_pop complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.String("fit_time", fitTime.String()))
	return scores
}

func (p *UserPopRec) Predict(userId, itemId string) float32 {
	return predict(p, userId, itemId)
}

func (p *UserPopRec) InternalPredict(userIndex, itemIndex int32) float32 {
	if userIndex < 0 || int(userIndex) >= len(p.UserItemScores) {
		return 0
	}
	return p.UserItemScores[userIndex][itemIndex]
}

func (p *UserPopRec) Marshal(w io.Writer) error {
	if err := p.marshalBase(w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, p.UserItemScores))
}

func (p *UserPopRec) Unmarshal(r io.Reader) error {
	if err := p.unmarshalBase(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.UserItemScores); err != nil {
		return errors.Trace(err)
	}
	p.SetParams(p.Params)
	return nil
}

// Distributions of RandomRec.
const (
	DistributionUniform      = "uniform"
	DistributionPopularBased = "popular_based"
)

// RandomRec recommends random items. With the popular_based distribution
// popular items are drawn with higher probability, weighted by the number of
// interactions plus Alpha. Scores are deterministic given the seed.
type RandomRec struct {
	BaseRecommender
	distribution string
	alpha        float32
	seed         int64
	ItemWeights  []float32
}

func NewRandomRec(params model.Params) *RandomRec {
	r := new(RandomRec)
	r.SetParams(params)
	return r
}

func (r *RandomRec) SetParams(params model.Params) {
	r.BaseRecommender.SetParams(params)
	r.distribution = r.Params.GetString(model.Distribution, DistributionUniform)
	r.alpha = r.Params.GetFloat32(model.Alpha, 0)
	r.seed = r.Params.GetInt64(model.Seed, 0)
}

func (r *RandomRec) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.Alpha: []interface{}{0.0, 0.5, 1.0},
	}
}

func (r *RandomRec) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.Alpha: lo.Must(trial.SuggestFloat(string(model.Alpha), 0, 1)),
	}
}

func (r *RandomRec) Clear() {
	r.BaseRecommender.Clear()
	r.ItemWeights = nil
}

func (r *RandomRec) Invalid() bool {
	return r == nil || r.ItemWeights == nil || r.BaseRecommender.Invalid()
}

func (r *RandomRec) Fit(_ context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit random",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Any("params", r.GetParams()))
	r.Init(trainSet)
	fitStart := time.Now()
	r.ItemWeights = make([]float32, trainSet.ItemCount())
	for itemIndex := range r.ItemWeights {
		switch r.distribution {
		case DistributionPopularBased:
			r.ItemWeights[itemIndex] = float32(len(trainSet.GetItemFeedback(int32(itemIndex)))) + r.alpha
		default:
			r.ItemWeights[itemIndex] = 1
		}
	}
	fitTime := time.Since(fitStart)
	scores := evalFitted(r, valSet, trainSet, config)
	log.Logger().Info("fit random complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.String("fit_time", fitTime.String()))
	return scores
}

func (r *RandomRec) Predict(userId, itemId string) float32 {
	return predict(r, userId, itemId)
}

// InternalPredict draws a weighted random score. The weighted reservoir trick
// u^(1/w) keeps the score within (0, 1) while giving heavier items larger
// scores on average.
func (r *RandomRec) InternalPredict(userIndex, itemIndex int32) float32 {
	if itemIndex < 0 || int(itemIndex) >= len(r.ItemWeights) {
		return 0
	}
	weight := r.ItemWeights[itemIndex]
	if weight <= 0 {
		return 0
	}
	u := uniform(uint64(r.seed), uint64(userIndex), uint64(itemIndex))
	return math32.Pow(u, 1/weight)
}

func (r *RandomRec) Marshal(w io.Writer) error {
	if err := r.marshalBase(w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, r.ItemWeights))
}

func (r *RandomRec) Unmarshal(reader io.Reader) error {
	if err := r.unmarshalBase(reader); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(reader, &r.ItemWeights); err != nil {
		return errors.Trace(err)
	}
	r.SetParams(r.Params)
	return nil
}

// uniform hashes (seed, user, item) to a deterministic float in (0, 1).
func uniform(seed, user, item uint64) float32 {
	x := seed ^ user<<32 ^ item
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return (float32(x>>40) + 0.5) / (1 << 24)
}

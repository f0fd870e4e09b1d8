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

// Package scenario combines first-stage candidate generators with a trained
// second-stage reranker.
package scenario

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base"
	"github.com/replay-rec/replay/base/heap"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/replay-rec/replay/model/rec"
	"github.com/replay-rec/replay/splitter"
	"go.uber.org/zap"
)

// Sources of second-stage negative examples.
const (
	NegativesRandom     = "random"
	NegativesFirstLevel = "first_level"
)

// TwoStagesConfig configures a TwoStages scenario. Zero values fall back to
// the defaults of NewTwoStages.
type TwoStagesConfig struct {
	// Splitter divides the log into the first-stage and second-stage train
	// sets. Defaults to a shuffled per-user 50/50 split with seed 42.
	Splitter splitter.Splitter
	// FirstLevel lists the candidate generators. The first one also generates
	// candidates at inference time.
	FirstLevel []rec.Recommender
	// UseFeatures marks which first-level models contribute their relevance as
	// a feature. Empty means all of them. A non-empty list must have one flag
	// per model.
	UseFeatures []bool
	// NumNegatives is the number of negative examples generated per user.
	NumNegatives int
	// NegativesType selects the negative source, random or first_level.
	NegativesType string
	// NumCandidates is the number of first-stage candidates per user at
	// inference time.
	NumCandidates int
	// RerankerParams are passed to the logistic regression.
	RerankerParams model.Params
	// Seed drives random negative sampling.
	Seed int64
}

// TwoStages trains first-level models on one half of the log and a logistic
// regression reranker on the other half. Inference takes the candidates of
// the first model and reorders them by the reranker score.
type TwoStages struct {
	config     TwoStagesConfig
	reranker   *Reranker
	firstTrain *dataset.Dataset
}

func NewTwoStages(config TwoStagesConfig) (*TwoStages, error) {
	if len(config.FirstLevel) == 0 {
		return nil, errors.New("two stages scenario requires at least one first level model")
	}
	if len(config.UseFeatures) > 0 && len(config.UseFeatures) != len(config.FirstLevel) {
		return nil, errors.Errorf("expect %v use feature flags, got %v",
			len(config.FirstLevel), len(config.UseFeatures))
	}
	if config.UseFeatures == nil {
		config.UseFeatures = make([]bool, len(config.FirstLevel))
		for i := range config.UseFeatures {
			config.UseFeatures[i] = true
		}
	}
	if config.Splitter == nil {
		config.Splitter = &splitter.UserSplitter{ItemTestSize: 0.5, Shuffle: true, Seed: 42}
	}
	if config.NumNegatives == 0 {
		config.NumNegatives = 100
	}
	if config.NegativesType == "" {
		config.NegativesType = NegativesFirstLevel
	}
	if config.NegativesType != NegativesRandom && config.NegativesType != NegativesFirstLevel {
		return nil, errors.Errorf("unknown negatives type %v", config.NegativesType)
	}
	if config.NumCandidates == 0 {
		config.NumCandidates = 100
	}
	return &TwoStages{
		config:   config,
		reranker: NewReranker(config.RerankerParams),
	}, nil
}

// Fit splits the log, fits the first-level models on the first half and the
// reranker on positives from the second half against generated negatives.
func (s *TwoStages) Fit(ctx context.Context, data *dataset.Dataset, config *rec.FitConfig) error {
	config = config.LoadDefaultIfNil()
	fitStart := time.Now()
	firstTrain, secondTrain := s.config.Splitter.Split(data)
	s.firstTrain = firstTrain
	log.Logger().Info("fit two stages scenario",
		zap.Int("first_train_size", firstTrain.Count()),
		zap.Int("second_train_size", secondTrain.Count()),
		zap.Int("num_first_level", len(s.config.FirstLevel)))
	for _, m := range s.config.FirstLevel {
		m.Fit(ctx, firstTrain, nil, config)
	}
	// assemble train set of the reranker
	features := make([][]float32, 0, secondTrain.Count())
	labels := make([]float32, 0, secondTrain.Count())
	for userIndex := int32(0); int(userIndex) < secondTrain.UserCount(); userIndex++ {
		positives := secondTrain.GetUserFeedback(userIndex)
		if len(positives) == 0 {
			continue
		}
		for _, itemIndex := range positives {
			features = append(features, s.features(userIndex, itemIndex))
			labels = append(labels, 1)
		}
		negatives, err := s.negatives(userIndex, firstTrain, secondTrain)
		if err != nil {
			return errors.Trace(err)
		}
		for _, itemIndex := range negatives {
			features = append(features, s.features(userIndex, itemIndex))
			labels = append(labels, 0)
		}
	}
	if err := s.reranker.Fit(features, labels); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("fit two stages scenario complete",
		zap.String("fit_time", time.Since(fitStart).String()))
	return nil
}

// negatives draws NumNegatives unseen items for one user.
func (s *TwoStages) negatives(userIndex int32, firstTrain, secondTrain *dataset.Dataset) ([]int32, error) {
	seen := mapset.NewSet[int32]()
	seen.Append(firstTrain.GetUserFeedback(userIndex)...)
	seen.Append(secondTrain.GetUserFeedback(userIndex)...)
	switch s.config.NegativesType {
	case NegativesRandom:
		rng := base.NewRandomGenerator(s.config.Seed + int64(userIndex))
		return rng.SampleInt32(0, int32(firstTrain.ItemCount()), s.config.NumNegatives, seen), nil
	case NegativesFirstLevel:
		candidates, _ := rec.Recommend(s.config.FirstLevel[0], userIndex, s.config.NumNegatives, seen.ToSlice())
		return candidates, nil
	default:
		return nil, errors.Errorf("unknown negatives type %v", s.config.NegativesType)
	}
}

// features builds the reranker input for one user-item pair: the relevance of
// each flagged first-level model, the user activity and the item popularity.
func (s *TwoStages) features(userIndex, itemIndex int32) []float32 {
	features := make([]float32, 0, len(s.config.FirstLevel)+2)
	for i, m := range s.config.FirstLevel {
		if s.config.UseFeatures[i] {
			features = append(features, m.InternalPredict(userIndex, itemIndex))
		}
	}
	total := float32(s.firstTrain.Count())
	features = append(features, float32(len(s.firstTrain.GetUserFeedback(userIndex)))/total)
	features = append(features, float32(len(s.firstTrain.GetItemFeedback(itemIndex)))/total)
	return features
}

// Recommend returns the top-n items for a user. Candidates come from the
// first model with seen items excluded, the order from the reranker.
func (s *TwoStages) Recommend(userId string, n int) ([]string, []float32, error) {
	if s.reranker.Invalid() {
		return nil, nil, errors.New("two stages scenario is not fitted")
	}
	first := s.config.FirstLevel[0]
	userIndex := first.GetUserDict().Lookup(userId)
	if userIndex < 0 {
		return nil, nil, errors.NotFoundf("user %v", userId)
	}
	candidates, _ := rec.Recommend(first, userIndex, s.config.NumCandidates,
		s.firstTrain.GetUserFeedback(userIndex))
	filter := heap.NewTopKFilter[int32, float32](n)
	for _, itemIndex := range candidates {
		filter.Push(itemIndex, s.reranker.Predict(s.features(userIndex, itemIndex)))
	}
	ranked, scores := filter.PopAll()
	items := make([]string, len(ranked))
	for i, itemIndex := range ranked {
		items[i], _ = first.GetItemDict().String(itemIndex)
	}
	return items, scores, nil
}

// Reranker exposes the fitted second-stage model.
func (s *TwoStages) Reranker() *Reranker {
	return s.reranker
}

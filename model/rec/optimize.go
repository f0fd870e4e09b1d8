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

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"golang.org/x/exp/maps"
)

// ModelCreator builds an empty model for one optimization trial.
type ModelCreator func() Recommender

// SearchedModel is the winner of a model search.
type SearchedModel struct {
	Type   string
	Params model.Params
	Score  Score
}

// ModelSearch optimizes the model type and its hyper-parameters jointly with
// a TPE sampler. Each trial draws a model type, asks the model to suggest its
// parameters and fits it on the train set.
type ModelSearch struct {
	modelCreators map[string]ModelCreator
	modelTypes    []string
	trainSet      *dataset.Dataset
	testSet       *dataset.Dataset
	config        *FitConfig
	result        SearchedModel
}

func NewModelSearch(models map[string]ModelCreator, trainSet, testSet *dataset.Dataset, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		modelCreators: models,
		modelTypes:    maps.Keys(models),
		trainSet:      trainSet,
		testSet:       testSet,
		config:        config,
	}
}

// DefaultModelCreators lists every built-in model.
func DefaultModelCreators() map[string]ModelCreator {
	return map[string]ModelCreator{
		"pop":      func() Recommender { return NewPopRec(nil) },
		"user_pop": func() Recommender { return NewUserPopRec(nil) },
		"random":   func() Recommender { return NewRandomRec(nil) },
		"wilson":   func() Recommender { return NewWilson(nil) },
		"ucb":      func() Recommender { return NewUCB(nil) },
		"knn":      func() Recommender { return NewItemKNN(nil) },
		"bpr":      func() Recommender { return NewBPR(nil) },
		"als":      func() Recommender { return NewALS(nil) },
	}
}

func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	if len(ms.modelCreators) == 0 {
		return 0, errors.New("no model to search")
	}
	modelType, err := trial.SuggestCategorical("Model", ms.modelTypes)
	if err != nil {
		return 0, errors.Trace(err)
	}
	m := ms.modelCreators[modelType]()
	m.SetParams(m.SuggestParams(trial))
	score := m.Fit(context.Background(), ms.trainSet, ms.testSet, ms.config)
	if score.NDCG > ms.result.Score.NDCG {
		ms.result = SearchedModel{
			Type:   modelType,
			Params: m.GetParams(),
			Score:  score,
		}
	}
	return float64(score.NDCG), nil
}

func (ms *ModelSearch) Result() SearchedModel {
	return ms.result
}

// Optimize runs numTrials trials and returns the best model type, parameters
// and score.
func (ms *ModelSearch) Optimize(numTrials int) (SearchedModel, error) {
	study, err := goptuna.CreateStudy("model-search",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	if err != nil {
		return SearchedModel{}, errors.Trace(err)
	}
	if err := study.Optimize(ms.Objective, numTrials); err != nil {
		return SearchedModel{}, errors.Trace(err)
	}
	return ms.result, nil
}

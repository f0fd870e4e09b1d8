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
	"sort"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base/encoding"
	"github.com/replay-rec/replay/base/heap"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/common/ann"
	"github.com/replay-rec/replay/common/parallel"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Neighbor is one entry of an item's neighbor list.
type Neighbor struct {
	ItemIndex  int32
	Similarity float32
}

// ItemKNN recommends items similar to the ones in the user's history. The
// similarity between two items is computed over the sets of users who
// interacted with them, keeping the NumNeighbors most similar items per item.
//
// Hyper-parameters:
//
//	Similarity   - cosine or jaccard. Default is cosine.
//	NumNeighbors - the number of neighbors kept per item. Default is 100.
//	Shrink       - shrinkage term of the similarity denominator. Default is 0.
//	Approximate  - search neighbors with an HNSW index instead of the exact
//	               co-occurrence scan. Default is false.
type ItemKNN struct {
	BaseRecommender
	similarity   string
	numNeighbors int
	shrink       float32
	approximate  bool
	Neighbors    [][]Neighbor
	// userFeedback is rebuilt from the train set at fit time and used by
	// InternalPredict. It is not serialized: scoring a marshaled model
	// requires the user histories passed through PredictProfile.
	userFeedback [][]int32
}

func NewItemKNN(params model.Params) *ItemKNN {
	knn := new(ItemKNN)
	knn.SetParams(params)
	return knn
}

func (knn *ItemKNN) SetParams(params model.Params) {
	knn.BaseRecommender.SetParams(params)
	knn.similarity = knn.Params.GetString(model.Similarity, model.SimilarityCosine)
	knn.numNeighbors = knn.Params.GetInt(model.NumNeighbors, 100)
	knn.shrink = knn.Params.GetFloat32(model.Shrink, 0)
	knn.approximate = knn.Params.GetBool(model.Approximate, false)
}

func (knn *ItemKNN) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.Similarity:   []interface{}{model.SimilarityCosine, model.SimilarityJaccard},
		model.NumNeighbors: []interface{}{10, 50, 100, 200},
		model.Shrink:       []interface{}{0.0, 10.0, 100.0},
	}
}

func (knn *ItemKNN) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.Similarity:   lo.Must(trial.SuggestCategorical(string(model.Similarity), []string{model.SimilarityCosine, model.SimilarityJaccard})),
		model.NumNeighbors: lo.Must(trial.SuggestInt(string(model.NumNeighbors), 10, 200)),
		model.Shrink:       lo.Must(trial.SuggestFloat(string(model.Shrink), 0, 100)),
	}
}

func (knn *ItemKNN) Clear() {
	knn.BaseRecommender.Clear()
	knn.Neighbors = nil
	knn.userFeedback = nil
}

func (knn *ItemKNN) Invalid() bool {
	return knn == nil || knn.Neighbors == nil || knn.BaseRecommender.Invalid()
}

func (knn *ItemKNN) Fit(ctx context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit knn",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Any("params", knn.GetParams()),
		zap.Any("config", config))
	knn.Init(trainSet)
	knn.userFeedback = trainSet.UserFeedback
	fitStart := time.Now()
	// sort item feedback for the merge based dot product
	itemFeedback := make([][]int32, trainSet.ItemCount())
	for itemIndex := range itemFeedback {
		feedback := trainSet.GetItemFeedback(int32(itemIndex))
		itemFeedback[itemIndex] = make([]int32, len(feedback))
		copy(itemFeedback[itemIndex], feedback)
		sort.Slice(itemFeedback[itemIndex], func(i, j int) bool {
			return itemFeedback[itemIndex][i] < itemFeedback[itemIndex][j]
		})
	}
	knn.Neighbors = make([][]Neighbor, trainSet.ItemCount())
	if knn.approximate {
		knn.fitApproximate(ctx, trainSet, itemFeedback, config)
	} else {
		_ = parallel.Parallel(ctx, trainSet.ItemCount(), config.Jobs, func(_, itemIndex int) error {
			// collect candidates via co-occurrence
			candidateSet := mapset.NewThreadUnsafeSet[int32]()
			for _, userIndex := range itemFeedback[itemIndex] {
				candidateSet.Append(trainSet.GetUserFeedback(userIndex)...)
			}
			filter := heap.NewTopKFilter[int32, float32](knn.numNeighbors)
			candidateSet.Each(func(neighborIndex int32) bool {
				if neighborIndex == int32(itemIndex) {
					return false
				}
				if similarity := 1 - knn.setDistance(itemFeedback[itemIndex], itemFeedback[neighborIndex]); similarity > 0 {
					filter.Push(neighborIndex, similarity)
				}
				return false
			})
			items, similarities := filter.PopAll()
			neighbors := make([]Neighbor, len(items))
			for i := range items {
				neighbors[i] = Neighbor{ItemIndex: items[i], Similarity: similarities[i]}
			}
			knn.Neighbors[itemIndex] = neighbors
			return nil
		})
	}
	fitTime := time.Since(fitStart)
	evalStart := time.Now()
	scores := evalFitted(knn, valSet, trainSet, config)
	evalTime := time.Since(evalStart)
	log.Logger().Info("fit knn complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.String("fit_time", fitTime.String()),
		zap.String("eval_time", evalTime.String()))
	return scores
}

// fitApproximate searches neighbors with an HNSW index over the sorted user
// sets of items, the distance being 1 minus the configured similarity.
func (knn *ItemKNN) fitApproximate(ctx context.Context, trainSet *dataset.Dataset, itemFeedback [][]int32, config *FitConfig) {
	index := ann.NewHNSW(knn.setDistance)
	for _, feedback := range itemFeedback {
		index.Add(feedback)
	}
	_ = parallel.Parallel(ctx, trainSet.ItemCount(), config.Jobs, func(_, itemIndex int) error {
		// the index may return the query item itself
		scores, err := index.SearchIndex(itemIndex, knn.numNeighbors+1, false)
		if err != nil {
			return errors.Trace(err)
		}
		neighbors := make([]Neighbor, 0, knn.numNeighbors)
		for _, score := range scores {
			if score.A == itemIndex || len(neighbors) >= knn.numNeighbors {
				continue
			}
			if similarity := 1 - score.B; similarity > 0 {
				neighbors = append(neighbors, Neighbor{ItemIndex: int32(score.A), Similarity: similarity})
			}
		}
		knn.Neighbors[itemIndex] = neighbors
		return nil
	})
}

// setDistance is 1 minus the configured similarity of two sorted user sets.
func (knn *ItemKNN) setDistance(a, b []int32) float32 {
	common := intersection(a, b)
	var denominator float32
	switch knn.similarity {
	case model.SimilarityCosine:
		denominator = math32.Sqrt(float32(len(a)))*math32.Sqrt(float32(len(b))) + knn.shrink
	case model.SimilarityJaccard:
		denominator = float32(len(a)+len(b)) - common + knn.shrink
	default:
		panic("invalid similarity")
	}
	if denominator == 0 {
		return 1
	}
	return 1 - common/denominator
}

// NearestItems returns up to n most similar items to itemIndex, most similar
// first.
func (knn *ItemKNN) NearestItems(itemIndex int32, n int) ([]int32, []float32, error) {
	if knn.Invalid() {
		return nil, nil, errors.New("model is not fitted")
	}
	if itemIndex < 0 || int(itemIndex) >= len(knn.Neighbors) {
		return nil, nil, errors.Errorf("index out of range: %v", itemIndex)
	}
	// neighbor lists are kept in decreasing similarity
	neighbors := knn.Neighbors[itemIndex]
	if n > len(neighbors) {
		n = len(neighbors)
	}
	items := make([]int32, n)
	similarities := make([]float32, n)
	for i := 0; i < n; i++ {
		items[i] = neighbors[i].ItemIndex
		similarities[i] = neighbors[i].Similarity
	}
	return items, similarities, nil
}

// copyTransient restores the train set histories that Marshal leaves out.
func (knn *ItemKNN) copyTransient(from Recommender) {
	knn.userFeedback = from.(*ItemKNN).userFeedback
}

func (knn *ItemKNN) Predict(userId, itemId string) float32 {
	return predict(knn, userId, itemId)
}

func (knn *ItemKNN) InternalPredict(userIndex, itemIndex int32) float32 {
	if userIndex < 0 || int(userIndex) >= len(knn.userFeedback) {
		return 0
	}
	return knn.PredictProfile(knn.userFeedback[userIndex], itemIndex)
}

// PredictProfile scores an item against an explicit user history.
func (knn *ItemKNN) PredictProfile(profile []int32, itemIndex int32) float32 {
	if itemIndex < 0 || int(itemIndex) >= len(knn.Neighbors) {
		return 0
	}
	profileSet := mapset.NewThreadUnsafeSet(profile...)
	sum := float32(0)
	for _, neighbor := range knn.Neighbors[itemIndex] {
		if profileSet.Contains(neighbor.ItemIndex) {
			sum += neighbor.Similarity
		}
	}
	return sum
}

func (knn *ItemKNN) Marshal(w io.Writer) error {
	if err := knn.marshalBase(w); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, knn.Neighbors))
}

func (knn *ItemKNN) Unmarshal(r io.Reader) error {
	if err := knn.unmarshalBase(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &knn.Neighbors); err != nil {
		return errors.Trace(err)
	}
	knn.SetParams(knn.Params)
	return nil
}

// intersection counts common elements of two sorted slices.
func intersection(a, b []int32) float32 {
	i, j, sum := 0, 0, float32(0)
	for i < len(a) && j < len(b) {
		if a[i] == b[j] {
			sum++
			i++
			j++
		} else if a[i] < b[j] {
			i++
		} else {
			j++
		}
	}
	return sum
}

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

// Package rec implements recommendation models over interaction logs.
package rec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/bits-and-blooms/bitset"
	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base/encoding"
	"github.com/replay-rec/replay/base/heap"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"go.uber.org/zap"
)

type Score struct {
	NDCG      float32
	Precision float32
	Recall    float32
}

type FitConfig struct {
	Jobs       int
	Verbose    int
	Candidates int
	TopK       int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:       1,
		Verbose:    10,
		Candidates: 100,
		TopK:       10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// Recommender is the interface of models ranking items for users.
type Recommender interface {
	model.Model
	// Fit a model with a train set and parameters.
	Fit(ctx context.Context, trainSet, validateSet *dataset.Dataset, config *FitConfig) Score
	// Predict the relevance of an item for a user.
	Predict(userId, itemId string) float32
	// InternalPredict predicts relevance given a user index and an item index.
	InternalPredict(userIndex, itemIndex int32) float32
	// GetUserDict returns the user dictionary.
	GetUserDict() *dataset.FreqDict
	// GetItemDict returns the item dictionary.
	GetItemDict() *dataset.FreqDict
	// IsUserPredictable returns false if the user was absent from the train set.
	IsUserPredictable(userIndex int32) bool
	// IsItemPredictable returns false if the item was absent from the train set.
	IsItemPredictable(itemIndex int32) bool
	// Marshal model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal model from byte stream.
	Unmarshal(r io.Reader) error
	// SuggestParams draws hyper-parameters for one optimization trial.
	SuggestParams(trial goptuna.Trial) model.Params
}

// BaseRecommender is included by every recommender. It manages the id
// dictionaries and the predictable flags of users and items seen during fit.
type BaseRecommender struct {
	model.BaseModel
	UserDict        *dataset.FreqDict
	ItemDict        *dataset.FreqDict
	UserPredictable *bitset.BitSet
	ItemPredictable *bitset.BitSet
}

func (b *BaseRecommender) Init(trainSet *dataset.Dataset) {
	b.UserDict = trainSet.UserDict
	b.ItemDict = trainSet.ItemDict
	// set user trained flags
	b.UserPredictable = bitset.New(uint(trainSet.UserCount()))
	for userIndex := int32(0); userIndex < int32(trainSet.UserCount()); userIndex++ {
		if len(trainSet.GetUserFeedback(userIndex)) > 0 {
			b.UserPredictable.Set(uint(userIndex))
		}
	}
	// set item trained flags
	b.ItemPredictable = bitset.New(uint(trainSet.ItemCount()))
	for itemIndex := int32(0); itemIndex < int32(trainSet.ItemCount()); itemIndex++ {
		if len(trainSet.GetItemFeedback(itemIndex)) > 0 {
			b.ItemPredictable.Set(uint(itemIndex))
		}
	}
}

func (b *BaseRecommender) GetUserDict() *dataset.FreqDict {
	return b.UserDict
}

func (b *BaseRecommender) GetItemDict() *dataset.FreqDict {
	return b.ItemDict
}

// IsUserPredictable returns false if the user was absent from the train set.
func (b *BaseRecommender) IsUserPredictable(userIndex int32) bool {
	if b.UserDict == nil || userIndex >= b.UserDict.Count() || userIndex < 0 {
		return false
	}
	return b.UserPredictable.Test(uint(userIndex))
}

// IsItemPredictable returns false if the item was absent from the train set.
func (b *BaseRecommender) IsItemPredictable(itemIndex int32) bool {
	if b.ItemDict == nil || itemIndex >= b.ItemDict.Count() || itemIndex < 0 {
		return false
	}
	return b.ItemPredictable.Test(uint(itemIndex))
}

func (b *BaseRecommender) Clear() {
	b.UserDict = nil
	b.ItemDict = nil
	b.UserPredictable = nil
	b.ItemPredictable = nil
}

func (b *BaseRecommender) Invalid() bool {
	return b == nil || b.UserDict == nil || b.ItemDict == nil
}

// marshalBase writes the shared model state.
func (b *BaseRecommender) marshalBase(w io.Writer) error {
	if err := encoding.WriteGob(w, b.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, b.UserDict); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, b.ItemDict); err != nil {
		return errors.Trace(err)
	}
	if _, err := b.UserPredictable.WriteTo(w); err != nil {
		return errors.Trace(err)
	}
	if _, err := b.ItemPredictable.WriteTo(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// unmarshalBase reads the shared model state.
func (b *BaseRecommender) unmarshalBase(r io.Reader) error {
	if err := encoding.ReadGob(r, &b.Params); err != nil {
		return errors.Trace(err)
	}
	b.UserDict = dataset.NewFreqDict()
	if err := encoding.ReadGob(r, b.UserDict); err != nil {
		return errors.Trace(err)
	}
	b.ItemDict = dataset.NewFreqDict()
	if err := encoding.ReadGob(r, b.ItemDict); err != nil {
		return errors.Trace(err)
	}
	b.UserPredictable = new(bitset.BitSet)
	if _, err := b.UserPredictable.ReadFrom(r); err != nil {
		return errors.Trace(err)
	}
	b.ItemPredictable = new(bitset.BitSet)
	if _, err := b.ItemPredictable.ReadFrom(r); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// predict converts string ids to indices and calls InternalPredict.
func predict(r Recommender, userId, itemId string) float32 {
	userIndex := r.GetUserDict().Lookup(userId)
	itemIndex := r.GetItemDict().Lookup(itemId)
	if userIndex < 0 {
		log.Logger().Warn("unknown user", zap.String("user_id", userId))
	}
	if itemIndex < 0 {
		log.Logger().Warn("unknown item", zap.String("item_id", itemId))
	}
	if userIndex < 0 || itemIndex < 0 {
		return 0
	}
	return r.InternalPredict(userIndex, itemIndex)
}

// Recommend returns the top-n items for a user, most relevant first. Items in
// exclude are skipped, as are items the model cannot predict.
func Recommend(r Recommender, userIndex int32, n int, exclude []int32) ([]int32, []float32) {
	excludeSet := make(map[int32]struct{}, len(exclude))
	for _, itemIndex := range exclude {
		excludeSet[itemIndex] = struct{}{}
	}
	filter := heap.NewTopKFilter[int32, float32](n)
	for itemIndex := int32(0); itemIndex < r.GetItemDict().Count(); itemIndex++ {
		if _, excluded := excludeSet[itemIndex]; excluded {
			continue
		}
		if !r.IsItemPredictable(itemIndex) {
			continue
		}
		filter.Push(itemIndex, r.InternalPredict(userIndex, itemIndex))
	}
	return filter.PopAll()
}

func GetModelName(m Recommender) string {
	switch m.(type) {
	case *PopRec:
		return "pop"
	case *UserPopRec:
		return "user_pop"
	case *RandomRec:
		return "random"
	case *Wilson:
		return "wilson"
	case *UCB:
		return "ucb"
	case *ItemKNN:
		return "knn"
	case *BPR:
		return "bpr"
	case *ALS:
		return "als"
	default:
		return reflect.TypeOf(m).String()
	}
}

// NewModel creates an empty model by name.
func NewModel(name string, params model.Params) (Recommender, error) {
	switch name {
	case "pop":
		return NewPopRec(params), nil
	case "user_pop":
		return NewUserPopRec(params), nil
	case "random":
		return NewRandomRec(params), nil
	case "wilson":
		return NewWilson(params), nil
	case "ucb":
		return NewUCB(params), nil
	case "knn":
		return NewItemKNN(params), nil
	case "bpr":
		return NewBPR(params), nil
	case "als":
		return NewALS(params), nil
	}
	return nil, errors.NotFoundf("model %v", name)
}

func MarshalModel(w io.Writer, m Recommender) error {
	if err := encoding.WriteString(w, GetModelName(m)); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func UnmarshalModel(r io.Reader) (Recommender, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	m, err := NewModel(name, nil)
	if err != nil {
		return nil, fmt.Errorf("unknown model %v", name)
	}
	if err := m.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

// transientCopier restores fitted state that Marshal leaves out of the byte
// stream, such as train set histories.
type transientCopier interface {
	copyTransient(from Recommender)
}

// Clone a model with deep copy.
func Clone(m Recommender) Recommender {
	buf := bytes.NewBuffer(nil)
	if err := m.Marshal(buf); err != nil {
		panic(err)
	}
	copied := reflect.New(reflect.TypeOf(m).Elem()).Interface().(Recommender)
	if err := copied.Unmarshal(buf); err != nil {
		panic(err)
	}
	copied.SetParams(copied.GetParams())
	if copier, ok := copied.(transientCopier); ok {
		copier.copyTransient(m)
	}
	return copied
}

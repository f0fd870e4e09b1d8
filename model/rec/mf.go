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
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base"
	"github.com/replay-rec/replay/base/encoding"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/common/ann"
	"github.com/replay-rec/replay/common/floats"
	"github.com/replay-rec/replay/common/parallel"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// BaseMatrixFactorization is shared by models embedding users and items into
// a common latent space.
type BaseMatrixFactorization struct {
	BaseRecommender
	UserFactor [][]float32 // p_u
	ItemFactor [][]float32 // q_i
}

// GetUserFactor returns the latent factor of a user.
func (baseModel *BaseMatrixFactorization) GetUserFactor(userIndex int32) []float32 {
	return baseModel.UserFactor[userIndex]
}

// GetItemFactor returns the latent factor of an item.
func (baseModel *BaseMatrixFactorization) GetItemFactor(itemIndex int32) []float32 {
	return baseModel.ItemFactor[itemIndex]
}

func (baseModel *BaseMatrixFactorization) InternalPredict(userIndex, itemIndex int32) float32 {
	if userIndex < 0 || int(userIndex) >= len(baseModel.UserFactor) ||
		itemIndex < 0 || int(itemIndex) >= len(baseModel.ItemFactor) {
		log.Logger().Warn("unknown user or item")
		return 0
	}
	return floats.Dot(baseModel.UserFactor[userIndex], baseModel.ItemFactor[itemIndex])
}

// ItemNeighborIndex answers nearest neighbor queries over the item factors.
type ItemNeighborIndex struct {
	index interface {
		SearchIndex(q, k int, prune0 bool) ([]lo.Tuple2[int, float32], error)
	}
}

// BuildItemIndex indexes the item factors for nearest neighbor queries. With
// approximate a HNSW index replaces the exact scan.
func (baseModel *BaseMatrixFactorization) BuildItemIndex(approximate bool) (*ItemNeighborIndex, error) {
	if baseModel.ItemFactor == nil {
		return nil, errors.New("model is not fitted")
	}
	if approximate {
		index := ann.NewHNSW[[]float32](floats.Euclidean)
		for _, factor := range baseModel.ItemFactor {
			index.Add(factor)
		}
		return &ItemNeighborIndex{index: index}, nil
	}
	index := ann.NewBruteforce[[]float32](floats.Euclidean)
	for _, factor := range baseModel.ItemFactor {
		index.Add(factor)
	}
	return &ItemNeighborIndex{index: index}, nil
}

// NearestItems returns up to n items closest to the given item in the latent
// space, nearest first.
func (idx *ItemNeighborIndex) NearestItems(itemIndex int32, n int) ([]int32, []float32, error) {
	// the approximate index may return the query item itself
	scores, err := idx.index.SearchIndex(int(itemIndex), n+1, false)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	items := make([]int32, 0, n)
	distances := make([]float32, 0, n)
	for _, score := range scores {
		if int32(score.A) == itemIndex || len(items) >= n {
			continue
		}
		items = append(items, int32(score.A))
		distances = append(distances, score.B)
	}
	return items, distances, nil
}

func (baseModel *BaseMatrixFactorization) Clear() {
	baseModel.BaseRecommender.Clear()
	baseModel.UserFactor = nil
	baseModel.ItemFactor = nil
}

func (baseModel *BaseMatrixFactorization) Invalid() bool {
	return baseModel == nil ||
		baseModel.UserFactor == nil ||
		baseModel.ItemFactor == nil ||
		baseModel.BaseRecommender.Invalid()
}

// Marshal model into byte stream.
func (baseModel *BaseMatrixFactorization) Marshal(w io.Writer) error {
	if err := baseModel.marshalBase(w); err != nil {
		return errors.Trace(err)
	}
	if err := writeFactors(w, baseModel.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := writeFactors(w, baseModel.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (baseModel *BaseMatrixFactorization) Unmarshal(r io.Reader) error {
	if err := baseModel.unmarshalBase(r); err != nil {
		return errors.Trace(err)
	}
	var err error
	if baseModel.UserFactor, err = readFactors(r); err != nil {
		return errors.Trace(err)
	}
	if baseModel.ItemFactor, err = readFactors(r); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func writeFactors(w io.Writer, m [][]float32) error {
	var rows, cols int32
	rows = int32(len(m))
	if rows > 0 {
		cols = int32(len(m[0]))
	}
	if err := binary.Write(w, binary.LittleEndian, rows); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, cols); err != nil {
		return errors.Trace(err)
	}
	return encoding.WriteMatrix(w, m)
}

func readFactors(r io.Reader) ([][]float32, error) {
	var rows, cols int32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, errors.Trace(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, errors.Trace(err)
	}
	m := base.NewMatrix32(int(rows), int(cols))
	if err := encoding.ReadMatrix(r, m); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

// BPR means Bayesian Personal Ranking, is a pairwise learning algorithm for matrix factorization
// models with implicit feedback. The pairwise ranking between item i and j for user u is estimated
// by:
//
//	p(i >_u j) = \sigma( p_u^T (q_i - q_j) )
//
// Hyper-parameters:
//
//	Reg        - The regularization parameter of the cost function that is
//	             optimized. Default is 0.01.
//	Lr         - The learning rate of SGD. Default is 0.05.
//	NFactors   - The number of latent factors. Default is 16.
//	NEpochs    - The number of iteration of the SGD procedure. Default is 100.
//	InitMean   - The mean of initial random latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial random latent factors. Default is 0.001.
type BPR struct {
	BaseMatrixFactorization
	// Hyper parameters
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	initMean   float32
	initStdDev float32
}

// NewBPR creates a BPR model.
func NewBPR(params model.Params) *BPR {
	bpr := new(BPR)
	bpr.SetParams(params)
	return bpr
}

// SetParams sets hyper-parameters of the BPR model.
func (bpr *BPR) SetParams(params model.Params) {
	bpr.BaseMatrixFactorization.SetParams(params)
	// Setup hyper-parameters
	bpr.nFactors = bpr.Params.GetInt(model.NFactors, 16)
	bpr.nEpochs = bpr.Params.GetInt(model.NEpochs, 100)
	bpr.lr = bpr.Params.GetFloat32(model.Lr, 0.05)
	bpr.reg = bpr.Params.GetFloat32(model.Reg, 0.01)
	bpr.initMean = bpr.Params.GetFloat32(model.InitMean, 0)
	bpr.initStdDev = bpr.Params.GetFloat32(model.InitStdDev, 0.001)
}

func (bpr *BPR) GetParamsGrid(withSize bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors:   lo.If(withSize, []interface{}{8, 16, 32, 64}).Else([]interface{}{16}),
		model.Lr:         []interface{}{0.001, 0.005, 0.01, 0.05, 0.1},
		model.Reg:        []interface{}{0.001, 0.005, 0.01, 0.05, 0.1},
		model.InitMean:   []interface{}{0},
		model.InitStdDev: []interface{}{0.001, 0.005, 0.01, 0.05, 0.1},
	}
}

func (bpr *BPR) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors:   lo.Must(trial.SuggestStepInt(string(model.NFactors), 8, 64, 8)),
		model.Lr:         lo.Must(trial.SuggestLogFloat(string(model.Lr), 0.001, 0.1)),
		model.Reg:        lo.Must(trial.SuggestLogFloat(string(model.Reg), 0.001, 0.1)),
		model.InitMean:   0,
		model.InitStdDev: lo.Must(trial.SuggestLogFloat(string(model.InitStdDev), 0.001, 0.1)),
	}
}

// Fit the BPR model. Its task complexity is O(bpr.nEpochs).
func (bpr *BPR) Fit(ctx context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit bpr",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("test_set_size", valSet.Count()),
		zap.Any("params", bpr.GetParams()),
		zap.Any("config", config))
	bpr.Init(trainSet)
	// Create buffers
	temp := base.NewMatrix32(config.Jobs, bpr.nFactors)
	userFactor := base.NewMatrix32(config.Jobs, bpr.nFactors)
	positiveItemFactor := base.NewMatrix32(config.Jobs, bpr.nFactors)
	negativeItemFactor := base.NewMatrix32(config.Jobs, bpr.nFactors)
	rng := make([]base.RandomGenerator, config.Jobs)
	for i := 0; i < config.Jobs; i++ {
		rng[i] = base.NewRandomGenerator(bpr.GetRandomGenerator().Int63())
	}
	// Convert array to hashmap
	userFeedback := make([]mapset.Set[int32], trainSet.UserCount())
	for u := range userFeedback {
		userFeedback[u] = mapset.NewSet(trainSet.GetUserFeedback(int32(u))...)
	}
	evalStart := time.Now()
	scores := evalFitted(bpr, valSet, trainSet, config)
	evalTime := time.Since(evalStart)
	log.Logger().Debug(fmt.Sprintf("fit bpr %v/%v", 0, bpr.nEpochs),
		zap.String("eval_time", evalTime.String()),
		zap.Float32(ndcgKey(config.TopK), scores.NDCG))
	// Training
	for epoch := 1; epoch <= bpr.nEpochs; epoch++ {
		fitStart := time.Now()
		// Training epoch
		cost := make([]float32, config.Jobs)
		_ = parallel.Parallel(ctx, trainSet.Count(), config.Jobs, func(workerId, _ int) error {
			// Select a user
			var userIndex int32
			var ratingCount int
			for {
				userIndex = rng[workerId].Int31n(int32(trainSet.UserCount()))
				ratingCount = len(trainSet.GetUserFeedback(userIndex))
				if ratingCount > 0 {
					break
				}
			}
			posIndex := trainSet.GetUserFeedback(userIndex)[rng[workerId].Intn(ratingCount)]
			// Select a negative sample
			negIndex := int32(-1)
			for {
				temp := rng[workerId].Int31n(int32(trainSet.ItemCount()))
				if !userFeedback[userIndex].Contains(temp) {
					negIndex = temp
					break
				}
			}
			diff := bpr.InternalPredict(userIndex, posIndex) - bpr.InternalPredict(userIndex, negIndex)
			cost[workerId] += math32.Log1p(math32.Exp(-diff))
			grad := math32.Exp(-diff) / (1.0 + math32.Exp(-diff))
			// Pairwise update
			copy(userFactor[workerId], bpr.UserFactor[userIndex])
			copy(positiveItemFactor[workerId], bpr.ItemFactor[posIndex])
			copy(negativeItemFactor[workerId], bpr.ItemFactor[negIndex])
			// Update positive item latent factor: +w_u
			floats.MulConstTo(userFactor[workerId], grad, temp[workerId])
			floats.MulConstAddTo(positiveItemFactor[workerId], -bpr.reg, temp[workerId])
			floats.MulConstAddTo(temp[workerId], bpr.lr, bpr.ItemFactor[posIndex])
			// Update negative item latent factor: -w_u
			floats.MulConstTo(userFactor[workerId], -grad, temp[workerId])
			floats.MulConstAddTo(negativeItemFactor[workerId], -bpr.reg, temp[workerId])
			floats.MulConstAddTo(temp[workerId], bpr.lr, bpr.ItemFactor[negIndex])
			// Update user latent factor: h_i-h_j
			floats.SubTo(positiveItemFactor[workerId], negativeItemFactor[workerId], temp[workerId])
			floats.MulConst(temp[workerId], grad)
			floats.MulConstAddTo(userFactor[workerId], -bpr.reg, temp[workerId])
			floats.MulConstAddTo(temp[workerId], bpr.lr, bpr.UserFactor[userIndex])
			return nil
		})
		fitTime := time.Since(fitStart)
		// Cross validation
		if epoch%config.Verbose == 0 || epoch == bpr.nEpochs {
			evalStart = time.Now()
			scores = evalFitted(bpr, valSet, trainSet, config)
			evalTime = time.Since(evalStart)
			log.Logger().Info(fmt.Sprintf("fit bpr %v/%v", epoch, bpr.nEpochs),
				zap.String("fit_time", fitTime.String()),
				zap.String("eval_time", evalTime.String()),
				zap.Float32("cost", floats.Sum(cost)),
				zap.Float32(ndcgKey(config.TopK), scores.NDCG))
		}
	}
	log.Logger().Info("fit bpr complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.Float32(precisionKey(config.TopK), scores.Precision),
		zap.Float32(recallKey(config.TopK), scores.Recall))
	return scores
}

func (bpr *BPR) Init(trainSet *dataset.Dataset) {
	// Initialize parameters
	newUserFactor := bpr.GetRandomGenerator().NormalMatrix(trainSet.UserCount(), bpr.nFactors, bpr.initMean, bpr.initStdDev)
	newItemFactor := bpr.GetRandomGenerator().NormalMatrix(trainSet.ItemCount(), bpr.nFactors, bpr.initMean, bpr.initStdDev)
	// Initialize base
	bpr.UserFactor = newUserFactor
	bpr.ItemFactor = newItemFactor
	bpr.BaseRecommender.Init(trainSet)
}

func (bpr *BPR) Predict(userId, itemId string) float32 {
	return predict(bpr, userId, itemId)
}

// Unmarshal model from byte stream.
func (bpr *BPR) Unmarshal(r io.Reader) error {
	if err := bpr.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	bpr.SetParams(bpr.Params)
	return nil
}

// ALS implements the element-wise alternating least squares for implicit
// feedback described in:
//
//	He, Xiangnan, et al. "Fast matrix factorization for online recommendation
//	with implicit feedback." SIGIR 2016.
//
// Hyper-parameters:
//
//	NFactors   - The number of latent factors. Default is 16.
//	NEpochs    - The number of training epochs. Default is 50.
//	Reg        - The strength of regularization. Default is 0.06.
//	InitMean   - The mean of initial latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial latent factors. Default is 0.1.
//	Alpha      - The weight of negative samples. Default is 0.001.
type ALS struct {
	BaseMatrixFactorization
	// Hyper parameters
	nFactors   int
	nEpochs    int
	reg        float32
	initMean   float32
	initStdDev float32
	weight     float32
}

// NewALS creates an eALS model.
func NewALS(params model.Params) *ALS {
	als := new(ALS)
	als.SetParams(params)
	return als
}

// SetParams sets hyper-parameters for the ALS model.
func (als *ALS) SetParams(params model.Params) {
	als.BaseMatrixFactorization.SetParams(params)
	als.nFactors = als.Params.GetInt(model.NFactors, 16)
	als.nEpochs = als.Params.GetInt(model.NEpochs, 50)
	als.initMean = als.Params.GetFloat32(model.InitMean, 0)
	als.initStdDev = als.Params.GetFloat32(model.InitStdDev, 0.1)
	als.reg = als.Params.GetFloat32(model.Reg, 0.06)
	als.weight = als.Params.GetFloat32(model.Alpha, 0.001)
}

func (als *ALS) GetParamsGrid(withSize bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors:   lo.If(withSize, []interface{}{8, 16, 32, 64}).Else([]interface{}{16}),
		model.InitMean:   []interface{}{0},
		model.InitStdDev: []interface{}{0.001, 0.005, 0.01, 0.05, 0.1},
		model.Reg:        []interface{}{0.001, 0.005, 0.01, 0.05, 0.1},
		model.Alpha:      []interface{}{0.001, 0.005, 0.01, 0.05, 0.1},
	}
}

func (als *ALS) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors:   lo.Must(trial.SuggestStepInt(string(model.NFactors), 8, 64, 8)),
		model.InitMean:   0,
		model.InitStdDev: lo.Must(trial.SuggestLogFloat(string(model.InitStdDev), 0.001, 0.1)),
		model.Reg:        lo.Must(trial.SuggestLogFloat(string(model.Reg), 0.001, 0.1)),
		model.Alpha:      lo.Must(trial.SuggestLogFloat(string(model.Alpha), 0.001, 0.1)),
	}
}

func (als *ALS) Init(trainSet *dataset.Dataset) {
	// Initialize
	newUserFactor := als.GetRandomGenerator().NormalMatrix(trainSet.UserCount(), als.nFactors, als.initMean, als.initStdDev)
	newItemFactor := als.GetRandomGenerator().NormalMatrix(trainSet.ItemCount(), als.nFactors, als.initMean, als.initStdDev)
	// Initialize base
	als.UserFactor = newUserFactor
	als.ItemFactor = newItemFactor
	als.BaseRecommender.Init(trainSet)
}

func (als *ALS) Predict(userId, itemId string) float32 {
	return predict(als, userId, itemId)
}

// Fit the ALS model. Its task complexity is O(als.nEpochs).
func (als *ALS) Fit(ctx context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit als",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("test_set_size", valSet.Count()),
		zap.Any("params", als.GetParams()),
		zap.Any("config", config))
	als.Init(trainSet)
	// Create temporary matrix
	s := base.NewMatrix32(als.nFactors, als.nFactors)
	userPredictions := make([][]float32, config.Jobs)
	itemPredictions := make([][]float32, config.Jobs)
	userRes := make([][]float32, config.Jobs)
	itemRes := make([][]float32, config.Jobs)
	for i := 0; i < config.Jobs; i++ {
		userPredictions[i] = make([]float32, trainSet.ItemCount())
		itemPredictions[i] = make([]float32, trainSet.UserCount())
		userRes[i] = make([]float32, trainSet.ItemCount())
		itemRes[i] = make([]float32, trainSet.UserCount())
	}
	// evaluate initial model
	evalStart := time.Now()
	scores := evalFitted(als, valSet, trainSet, config)
	evalTime := time.Since(evalStart)
	log.Logger().Debug(fmt.Sprintf("fit als %v/%v", 0, als.nEpochs),
		zap.String("eval_time", evalTime.String()),
		zap.Float32(ndcgKey(config.TopK), scores.NDCG))
	for ep := 1; ep <= als.nEpochs; ep++ {
		fitStart := time.Now()
		// Update user factors
		// S^q <- \sum^N_{itemIndex=1} c_i q_i q_i^T
		floats.MatZero(s)
		for itemIndex := 0; itemIndex < trainSet.ItemCount(); itemIndex++ {
			if len(trainSet.GetItemFeedback(int32(itemIndex))) > 0 {
				for i := 0; i < als.nFactors; i++ {
					for j := 0; j < als.nFactors; j++ {
						s[i][j] += als.ItemFactor[itemIndex][i] * als.ItemFactor[itemIndex][j]
					}
				}
			}
		}
		_ = parallel.Parallel(ctx, trainSet.UserCount(), config.Jobs, func(workerId, userIndex int) error {
			userFeedback := trainSet.GetUserFeedback(int32(userIndex))
			for _, i := range userFeedback {
				userPredictions[workerId][i] = als.InternalPredict(int32(userIndex), i)
			}
			for f := 0; f < als.nFactors; f++ {
				// for itemIndex \in R_u do   \hat_{r}^f_{ui} <- \hat_{r}_{ui} - p_{uf}q_{if}
				for _, i := range userFeedback {
					userRes[workerId][i] = userPredictions[workerId][i] - als.UserFactor[userIndex][f]*als.ItemFactor[i][f]
				}
				// p_{uf} <-
				a, b, c := float32(0), float32(0), float32(0)
				for _, i := range userFeedback {
					a += (1 - (1-als.weight)*userRes[workerId][i]) * als.ItemFactor[i][f]
					c += (1 - als.weight) * als.ItemFactor[i][f] * als.ItemFactor[i][f]
				}
				for k := 0; k < als.nFactors; k++ {
					if k != f {
						b += als.weight * als.UserFactor[userIndex][k] * s[k][f]
					}
				}
				als.UserFactor[userIndex][f] = (a - b) / (c + als.weight*s[f][f] + als.reg)
				// for itemIndex \in R_u do   \hat_{r}_{ui} <- \hat_{r}^f_{ui} + p_{uf}q_{if}
				for _, i := range userFeedback {
					userPredictions[workerId][i] = userRes[workerId][i] + als.UserFactor[userIndex][f]*als.ItemFactor[i][f]
				}
			}
			return nil
		})
		// Update item factors
		// S^p <- P^T P
		floats.MatZero(s)
		for userIndex := 0; userIndex < trainSet.UserCount(); userIndex++ {
			if len(trainSet.GetUserFeedback(int32(userIndex))) > 0 {
				for i := 0; i < als.nFactors; i++ {
					for j := 0; j < als.nFactors; j++ {
						s[i][j] += als.UserFactor[userIndex][i] * als.UserFactor[userIndex][j]
					}
				}
			}
		}
		_ = parallel.Parallel(ctx, trainSet.ItemCount(), config.Jobs, func(workerId, itemIndex int) error {
			itemFeedback := trainSet.GetItemFeedback(int32(itemIndex))
			for _, u := range itemFeedback {
				itemPredictions[workerId][u] = als.InternalPredict(u, int32(itemIndex))
			}
			for f := 0; f < als.nFactors; f++ {
				// for userIndex \in R_i do   \hat_{r}^f_{ui} <- \hat_{r}_{ui} - p_{uf}q_{if}
				for _, u := range itemFeedback {
					itemRes[workerId][u] = itemPredictions[workerId][u] - als.UserFactor[u][f]*als.ItemFactor[itemIndex][f]
				}
				// q_{if} <-
				a, b, c := float32(0), float32(0), float32(0)
				for _, u := range itemFeedback {
					a += (1 - (1-als.weight)*itemRes[workerId][u]) * als.UserFactor[u][f]
					c += (1 - als.weight) * als.UserFactor[u][f] * als.UserFactor[u][f]
				}
				for k := 0; k < als.nFactors; k++ {
					if k != f {
						b += als.weight * als.ItemFactor[itemIndex][k] * s[k][f]
					}
				}
				als.ItemFactor[itemIndex][f] = (a - b) / (c + als.weight*s[f][f] + als.reg)
				// for userIndex \in R_i do   \hat_{r}_{ui} <- \hat_{r}^f_{ui} + p_{uf}q_{if}
				for _, u := range itemFeedback {
					itemPredictions[workerId][u] = itemRes[workerId][u] + als.UserFactor[u][f]*als.ItemFactor[itemIndex][f]
				}
			}
			return nil
		})
		fitTime := time.Since(fitStart)
		// Cross validation
		if ep%config.Verbose == 0 || ep == als.nEpochs {
			evalStart = time.Now()
			scores = evalFitted(als, valSet, trainSet, config)
			evalTime = time.Since(evalStart)
			log.Logger().Debug(fmt.Sprintf("fit als %v/%v", ep, als.nEpochs),
				zap.String("fit_time", fitTime.String()),
				zap.String("eval_time", evalTime.String()),
				zap.Float32(ndcgKey(config.TopK), scores.NDCG))
		}
	}
	log.Logger().Info("fit als complete",
		zap.Float32(ndcgKey(config.TopK), scores.NDCG),
		zap.Float32(precisionKey(config.TopK), scores.Precision),
		zap.Float32(recallKey(config.TopK), scores.Recall))
	return scores
}

// Unmarshal model from byte stream.
func (als *ALS) Unmarshal(r io.Reader) error {
	if err := als.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	als.SetParams(als.Params)
	return nil
}

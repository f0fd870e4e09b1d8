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
	"fmt"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/replay-rec/replay/base/heap"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/common/floats"
	"github.com/replay-rec/replay/common/parallel"
	"github.com/replay-rec/replay/dataset"
	"go.uber.org/zap"
)

/* Evaluate Item Ranking */

// Metric is used by evaluators in personalized ranking tasks.
type Metric func(targetSet mapset.Set[int32], rankList []int32) float32

// Evaluate evaluates a model in top-n tasks. For each user with feedback in
// the test set, the target items are ranked against numCandidates sampled
// negatives and each metric is averaged over users.
func Evaluate(ctx context.Context, estimator Recommender, testSet, trainSet *dataset.Dataset, topK, numCandidates, nJobs int, scorers ...Metric) []float32 {
	partSum := make([][]float32, nJobs)
	partCount := make([]float32, nJobs)
	for i := 0; i < nJobs; i++ {
		partSum[i] = make([]float32, len(scorers))
	}
	negatives := testSet.NegativeSample(trainSet, numCandidates)
	_ = parallel.Parallel(ctx, testSet.UserCount(), nJobs, func(workerId, userIndex int) error {
		// Find top-n items in the test set
		targetSet := mapset.NewThreadUnsafeSet(testSet.GetUserFeedback(int32(userIndex))...)
		if targetSet.Cardinality() > 0 {
			// Sample negative samples
			negativeSample := negatives[userIndex]
			candidates := make([]int32, 0, targetSet.Cardinality()+len(negativeSample))
			candidates = append(candidates, testSet.GetUserFeedback(int32(userIndex))...)
			candidates = append(candidates, negativeSample...)
			// Find top-n items in predictions
			rankList, _ := Rank(estimator, int32(userIndex), candidates, topK)
			partCount[workerId]++
			for i, metric := range scorers {
				partSum[workerId][i] += metric(targetSet, rankList)
			}
		}
		return nil
	})
	sum := make([]float32, len(scorers))
	for i := 0; i < nJobs; i++ {
		for j := range partSum[i] {
			sum[j] += partSum[i][j]
		}
	}
	count := floats.Sum(partCount)
	if count > 0 {
		floats.MulConst(sum, 1/count)
	}
	return sum
}

// Rank returns the top-n candidates ordered by predicted relevance.
func Rank(model Recommender, userIndex int32, candidates []int32, topN int) ([]int32, []float32) {
	itemsHeap := heap.NewTopKFilter[int32, float32](topN)
	for _, itemIndex := range candidates {
		itemsHeap.Push(itemIndex, model.InternalPredict(userIndex, itemIndex))
	}
	return itemsHeap.PopAll()
}

// NDCG means Normalized Discounted Cumulative Gain.
func NDCG(targetSet mapset.Set[int32], rankList []int32) float32 {
	// IDCG = \sum^{|REL|}_{i=1} \frac {1} {\log_2(i+1)}
	idcg := float32(0)
	for i := 0; i < targetSet.Cardinality() && i < len(rankList); i++ {
		idcg += 1.0 / math32.Log2(float32(i)+2.0)
	}
	// DCG = \sum^{N}_{i=1} \frac {2^{rel_i}-1} {\log_2(i+1)}
	dcg := float32(0)
	for i, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			dcg += 1.0 / math32.Log2(float32(i)+2.0)
		}
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// Precision is the fraction of relevant items among the recommended items.
//
//	\frac{|relevant documents| \cap |retrieved documents|} {|{retrieved documents}|}
func Precision(targetSet mapset.Set[int32], rankList []int32) float32 {
	hit := float32(0)
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
		}
	}
	return hit / float32(len(rankList))
}

// Recall is the fraction of relevant items that have been recommended over
// the total amount of relevant items.
//
//	\frac{|relevant documents| \cap |retrieved documents|} {|{relevant documents}|}
func Recall(targetSet mapset.Set[int32], rankList []int32) float32 {
	hit := 0
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
		}
	}
	return float32(hit) / float32(targetSet.Cardinality())
}

// HitRate is 1 if at least one relevant item appears in the rank list.
func HitRate(targetSet mapset.Set[int32], rankList []int32) float32 {
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			return 1
		}
	}
	return 0
}

// MAP means Mean Average Precision.
// mAP: http://sdsawtelle.github.io/blog/output/mean-average-precision-MAP-for-recommender-systems.html
func MAP(targetSet mapset.Set[int32], rankList []int32) float32 {
	sumPrecision := float32(0)
	hit := 0
	for i, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
			sumPrecision += float32(hit) / float32(i+1)
		}
	}
	return sumPrecision / float32(targetSet.Cardinality())
}

// MRR means Mean Reciprocal Rank.
//
// The mean reciprocal rank is a statistic measure for evaluating any process
// that produces a list of possible responses to a sample of queries, ordered
// by probability of correctness. The reciprocal rank of a query response is
// the multiplicative inverse of the rank of the first correct answer: 1 for
// first place, 1/2 for second place, 1/3 for third place and so on.
//
//	MRR = \frac{1}{Q} \sum^{|Q|}_{i=1} \frac{1}{rank_i}
func MRR(targetSet mapset.Set[int32], rankList []int32) float32 {
	for i, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			return 1 / float32(i+1)
		}
	}
	return 0
}

// AUC is the probability that a relevant item is ranked above an irrelevant
// one. The rank list must contain every candidate, so evaluate it with the
// top-k cut equal to the number of candidates.
func AUC(targetSet mapset.Set[int32], rankList []int32) float32 {
	numPositive := 0
	numPairs := 0
	numCorrect := 0
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			numPositive++
		} else {
			// every positive seen so far is ranked above this negative
			numCorrect += numPositive
			numPairs += targetSet.Cardinality()
		}
	}
	if numPairs == 0 {
		return 0
	}
	return float32(numCorrect) / float32(numPairs)
}

// Coverage is the share of the catalog that appears in the recommendation
// lists. When recommendations contain items outside the catalog a warning is
// logged and the value can exceed 1.
func Coverage(recommendations [][]int32, catalogSize int) float32 {
	recommended := mapset.NewThreadUnsafeSet[int32]()
	numUnknown := 0
	for _, rankList := range recommendations {
		for _, itemIndex := range rankList {
			if itemIndex < 0 || int(itemIndex) >= catalogSize {
				numUnknown++
			}
			recommended.Add(itemIndex)
		}
	}
	if numUnknown > 0 {
		log.Logger().Warn("recommendations contain items outside the catalog",
			zap.Int("num_unknown", numUnknown),
			zap.Int("catalog_size", catalogSize))
	}
	return float32(recommended.Cardinality()) / float32(catalogSize)
}

// evalFitted evaluates a fitted model during training. A missing or empty
// validation set yields a zero score.
func evalFitted(r Recommender, testSet, trainSet *dataset.Dataset, config *FitConfig) Score {
	if testSet == nil || testSet.Count() == 0 {
		return Score{}
	}
	scores := Evaluate(context.Background(), r, testSet, trainSet,
		config.TopK, config.Candidates, config.Jobs, NDCG, Precision, Recall)
	return Score{NDCG: scores[0], Precision: scores[1], Recall: scores[2]}
}

func ndcgKey(topK int) string {
	return fmt.Sprintf("NDCG@%v", topK)
}

func precisionKey(topK int) string {
	return fmt.Sprintf("Precision@%v", topK)
}

func recallKey(topK int) string {
	return fmt.Sprintf("Recall@%v", topK)
}

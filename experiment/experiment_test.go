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

package experiment

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model/rec"
	"github.com/stretchr/testify/assert"
)

func TestExperiment(t *testing.T) {
	ts := time.Now()
	train := dataset.NewDataset()
	train.AddFeedback("0", "a", ts, 1)
	train.AddFeedback("0", "b", ts, 1)
	train.AddFeedback("1", "a", ts, 1)
	train.AddFeedback("1", "c", ts, 1)
	test := dataset.NewSharedDataset(train)
	test.AddFeedback("0", "c", ts, 1)
	test.AddFeedback("1", "b", ts, 1)

	pop := rec.NewPopRec(nil)
	pop.Fit(context.Background(), train, nil, rec.NewFitConfig())
	random, err := rec.NewModel("random", nil)
	assert.NoError(t, err)
	random.Fit(context.Background(), train, nil, rec.NewFitConfig())

	e := NewExperiment(train, test, []int{1, 5},
		WithCandidates(10),
		WithMetrics(NamedMetric{"NDCG", rec.NDCG}, NamedMetric{"Precision", rec.Precision}))
	assert.Equal(t, []string{"NDCG@1", "NDCG@5", "Precision@1", "Precision@5"}, e.Columns())
	assert.NoError(t, e.AddResult(context.Background(), "pop", pop))
	assert.NoError(t, e.AddResult(context.Background(), "random", random))
	assert.Equal(t, []string{"pop", "random"}, e.Names())

	// the only candidate of each user is its target item
	score, exist := e.Result("pop", "Precision@1")
	assert.True(t, exist)
	assert.Equal(t, float32(1), score)
	score, exist = e.Result("pop", "NDCG@1")
	assert.True(t, exist)
	assert.Equal(t, float32(1), score)
	_, exist = e.Result("pop", "HitRate@1")
	assert.False(t, exist)
	_, exist = e.Result("unknown", "NDCG@1")
	assert.False(t, exist)

	// unfitted models are rejected
	assert.Error(t, e.AddResult(context.Background(), "empty", rec.NewPopRec(nil)))

	// render
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, e.Render(buf))
	assert.True(t, strings.Contains(buf.String(), "pop"))
	assert.True(t, strings.Contains(buf.String(), "NDCG@1"))
}

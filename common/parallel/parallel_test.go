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

package parallel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/juju/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

func TestParallel(t *testing.T) {
	jobIds := make([]int, 100)
	workerIds := make([]int, 100)
	err := Parallel(context.Background(), 100, 4, func(workerId, jobId int) error {
		jobIds[jobId] = jobId
		workerIds[jobId] = workerId
		return nil
	})
	assert.NoError(t, err)
	workersSet := mapset.NewSet(workerIds...)
	assert.Greater(t, workersSet.Cardinality(), 1)
	assert.LessOrEqual(t, workersSet.Cardinality(), 4)
	for i := range jobIds {
		assert.Equal(t, i, jobIds[i])
	}
}

func TestParallelFail(t *testing.T) {
	err := Parallel(context.Background(), 100, 4, func(workerId, jobId int) error {
		if jobId == 50 {
			return errors.New("boom")
		}
		return nil
	})
	assert.Error(t, err)
}

func TestParallelCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Parallel(ctx, 100, 1, func(workerId, jobId int) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFor(t *testing.T) {
	var count atomic.Int64
	For(100, 4, func(i int) {
		count.Add(1)
	})
	assert.Equal(t, int64(100), count.Load())
}

func TestForEach(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	sum := make([]int64, len(a))
	ForEach(a, 4, func(i, v int) {
		sum[i] = int64(v)
	})
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, sum)
}

func TestSplit(t *testing.T) {
	chunks := Split([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, chunks)
	chunks = Split([]int{1, 2}, 3)
	assert.Equal(t, [][]int{{1}, {2}}, chunks)
	assert.Nil(t, Split([]int{}, 3))
}

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

// Package splitter splits interaction logs into train and test sets. All
// splitters share the same post-processing: cold users and items (absent from
// the train set) and zero relevance rows can be dropped from the test set.
package splitter

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/replay-rec/replay/base"
	"github.com/replay-rec/replay/dataset"
)

// Splitter splits an interaction log into a train set and a test set. The
// two sets share the id dictionaries of the input.
type Splitter interface {
	Split(data *dataset.Dataset) (train, test *dataset.Dataset)
}

// Options are the post-processing switches shared by all splitters.
type Options struct {
	DropColdUsers           bool // drop test rows whose user is absent from train
	DropColdItems           bool // drop test rows whose item is absent from train
	DropZeroRelevanceInTest bool // drop test rows with relevance <= 0
}

// apply builds the two subsets and filters the test rows per the options.
func (opts Options) apply(data *dataset.Dataset, trainIndices, testIndices []int) (*dataset.Dataset, *dataset.Dataset) {
	train := data.SubSet(trainIndices)
	trainUsers := mapset.NewThreadUnsafeSet[int32]()
	trainItems := mapset.NewThreadUnsafeSet[int32]()
	if opts.DropColdUsers || opts.DropColdItems {
		trainUsers.Append(train.Users...)
		trainItems.Append(train.Items...)
	}
	filtered := make([]int, 0, len(testIndices))
	for _, i := range testIndices {
		if opts.DropColdUsers && !trainUsers.Contains(data.Users[i]) {
			continue
		}
		if opts.DropColdItems && !trainItems.Contains(data.Items[i]) {
			continue
		}
		if opts.DropZeroRelevanceInTest && data.Relevances[i] <= 0 {
			continue
		}
		filtered = append(filtered, i)
	}
	return train, data.SubSet(filtered)
}

// DateSplitter puts interactions before Date into the train set and the rest
// into the test set.
type DateSplitter struct {
	Options
	Date time.Time
}

func NewDateSplitter(date time.Time) *DateSplitter {
	return &DateSplitter{Date: date}
}

func (s *DateSplitter) Split(data *dataset.Dataset) (*dataset.Dataset, *dataset.Dataset) {
	trainIndices := make([]int, 0, data.Count())
	testIndices := make([]int, 0)
	for i, timestamp := range data.Timestamps {
		if timestamp.Before(s.Date) {
			trainIndices = append(trainIndices, i)
		} else {
			testIndices = append(testIndices, i)
		}
	}
	return s.apply(data, trainIndices, testIndices)
}

// RatioSplitter randomly samples a fraction of interactions into the test
// set. The same seed always produces the same split.
type RatioSplitter struct {
	Options
	TestSize float64
	Seed     int64
}

func NewRatioSplitter(testSize float64, seed int64) *RatioSplitter {
	return &RatioSplitter{TestSize: testSize, Seed: seed}
}

func (s *RatioSplitter) Split(data *dataset.Dataset) (*dataset.Dataset, *dataset.Dataset) {
	rng := base.NewRandomGenerator(s.Seed)
	perm := rng.Perm(data.Count())
	numTest := int(float64(data.Count()) * s.TestSize)
	testIndices := perm[:numTest]
	trainIndices := perm[numTest:]
	sort.Ints(testIndices)
	sort.Ints(trainIndices)
	return s.apply(data, trainIndices, testIndices)
}

// UserSplitter takes a share of each user's interactions into the test set.
// By default the most recent interactions are taken; with Shuffle the
// interactions of each user are sampled at random instead.
type UserSplitter struct {
	Options
	// ItemTestSize is the test share per user: values below 1 are treated as
	// a fraction of the user's history, values of 1 and above as an absolute
	// count.
	ItemTestSize float64
	// UserTestSize limits the set of users with test interactions. Values
	// below 1 are a fraction of all users, values of 1 and above an absolute
	// count, 0 means every user.
	UserTestSize float64
	Shuffle      bool
	Seed         int64
}

// NewUserSplitter creates a UserSplitter. Zero relevance rows are dropped
// from the test set by default; clear DropZeroRelevanceInTest to keep them.
func NewUserSplitter(itemTestSize float64, seed int64) *UserSplitter {
	return &UserSplitter{
		Options:      Options{DropZeroRelevanceInTest: true},
		ItemTestSize: itemTestSize,
		Seed:         seed,
	}
}

func (s *UserSplitter) testCount(historySize int) int {
	if s.ItemTestSize >= 1 {
		count := int(s.ItemTestSize)
		if count > historySize {
			count = historySize
		}
		return count
	}
	return int(float64(historySize) * s.ItemTestSize)
}

func (s *UserSplitter) Split(data *dataset.Dataset) (*dataset.Dataset, *dataset.Dataset) {
	rng := base.NewRandomGenerator(s.Seed)
	// collect row indices per user
	userRows := make([][]int, data.UserCount())
	for i, userIndex := range data.Users {
		userRows[userIndex] = append(userRows[userIndex], i)
	}
	// choose users holding test interactions
	testUsers := mapset.NewThreadUnsafeSet[int32]()
	if s.UserTestSize > 0 {
		activeUsers := make([]int32, 0, data.UserCount())
		for userIndex, rows := range userRows {
			if len(rows) > 0 {
				activeUsers = append(activeUsers, int32(userIndex))
			}
		}
		numUsers := int(s.UserTestSize)
		if s.UserTestSize < 1 {
			numUsers = int(float64(len(activeUsers)) * s.UserTestSize)
		}
		if numUsers > len(activeUsers) {
			numUsers = len(activeUsers)
		}
		for _, i := range rng.Perm(len(activeUsers))[:numUsers] {
			testUsers.Add(activeUsers[i])
		}
	}
	trainIndices := make([]int, 0, data.Count())
	testIndices := make([]int, 0)
	for userIndex, rows := range userRows {
		if len(rows) == 0 {
			continue
		}
		if s.UserTestSize > 0 && !testUsers.Contains(int32(userIndex)) {
			trainIndices = append(trainIndices, rows...)
			continue
		}
		ordered := rows
		if s.Shuffle {
			ordered = make([]int, len(rows))
			copy(ordered, rows)
			rng.Shuffle(len(ordered), func(i, j int) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			})
		} else {
			ordered = make([]int, len(rows))
			copy(ordered, rows)
			// most recent interactions go to the test set
			sort.SliceStable(ordered, func(i, j int) bool {
				return data.Timestamps[ordered[i]].Before(data.Timestamps[ordered[j]])
			})
		}
		numTest := s.testCount(len(ordered))
		trainIndices = append(trainIndices, ordered[:len(ordered)-numTest]...)
		testIndices = append(testIndices, ordered[len(ordered)-numTest:]...)
	}
	sort.Ints(trainIndices)
	sort.Ints(testIndices)
	return s.apply(data, trainIndices, testIndices)
}

// KFold shuffles the interactions of each user and deals them round-robin
// into k folds, so the history of every user spreads across folds. The i-th
// pair uses fold i as the test set.
func KFold(data *dataset.Dataset, k int, seed int64, opts Options) ([]*dataset.Dataset, []*dataset.Dataset) {
	rng := base.NewRandomGenerator(seed)
	userRows := make([][]int, data.UserCount())
	for i, userIndex := range data.Users {
		userRows[userIndex] = append(userRows[userIndex], i)
	}
	folds := make([][]int, k)
	for _, rows := range userRows {
		shuffled := make([]int, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		for pos, row := range shuffled {
			folds[pos%k] = append(folds[pos%k], row)
		}
	}
	trains := make([]*dataset.Dataset, k)
	tests := make([]*dataset.Dataset, k)
	for i := 0; i < k; i++ {
		trainIndices := make([]int, 0, data.Count())
		for j := 0; j < k; j++ {
			if j != i {
				trainIndices = append(trainIndices, folds[j]...)
			}
		}
		sort.Ints(trainIndices)
		testIndices := make([]int, len(folds[i]))
		copy(testIndices, folds[i])
		sort.Ints(testIndices)
		trains[i], tests[i] = opts.apply(data, trainIndices, testIndices)
	}
	return trains, tests
}

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

package dataset

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/common/util"
	"go.uber.org/zap"
)

// Dataset is an interaction log indexed for recommendation. Each row is one
// interaction (user, item, relevance, timestamp). Besides the row-level view
// used by splitters, the dataset maintains per-user and per-item posting
// lists used by models.
type Dataset struct {
	UserDict *FreqDict
	ItemDict *FreqDict

	// row-level storage
	Users      []int32
	Items      []int32
	Relevances []float32
	Timestamps []time.Time

	// posting lists, aligned pairwise
	UserFeedback   [][]int32
	ItemFeedback   [][]int32
	UserRelevances [][]float32
	ItemRelevances [][]float32

	// cached negative samples
	Negatives [][]int32
}

// NewDataset creates an empty dataset with fresh id dictionaries.
func NewDataset() *Dataset {
	return &Dataset{
		UserDict: NewFreqDict(),
		ItemDict: NewFreqDict(),
	}
}

// NewSharedDataset creates an empty dataset sharing the id dictionaries of
// reference. Rows appended to the new dataset reuse the same indices, so
// models fitted on one dataset can be evaluated on the other.
func NewSharedDataset(reference *Dataset) *Dataset {
	return &Dataset{
		UserDict: reference.UserDict,
		ItemDict: reference.ItemDict,
	}
}

// Count returns the number of interactions.
func (d *Dataset) Count() int {
	return len(d.Users)
}

// UserCount returns the number of users in the shared dictionary.
func (d *Dataset) UserCount() int {
	return int(d.UserDict.Count())
}

// ItemCount returns the number of items in the shared dictionary.
func (d *Dataset) ItemCount() int {
	return int(d.ItemDict.Count())
}

// CountUserFeedback returns the number of distinct users with interactions in
// this dataset.
func (d *Dataset) CountUserFeedback() int {
	count := 0
	for _, feedback := range d.UserFeedback {
		if len(feedback) > 0 {
			count++
		}
	}
	return count
}

// CountItemFeedback returns the number of distinct items with interactions in
// this dataset.
func (d *Dataset) CountItemFeedback() int {
	count := 0
	for _, feedback := range d.ItemFeedback {
		if len(feedback) > 0 {
			count++
		}
	}
	return count
}

// AddFeedback appends one interaction given string ids.
func (d *Dataset) AddFeedback(userId, itemId string, timestamp time.Time, relevance float32) {
	d.AddIndexedFeedback(d.UserDict.Id(userId), d.ItemDict.Id(itemId), timestamp, relevance)
}

// AddIndexedFeedback appends one interaction given dense indices. The indices
// must have been allocated by this dataset's dictionaries.
func (d *Dataset) AddIndexedFeedback(userIndex, itemIndex int32, timestamp time.Time, relevance float32) {
	d.Users = append(d.Users, userIndex)
	d.Items = append(d.Items, itemIndex)
	d.Relevances = append(d.Relevances, relevance)
	d.Timestamps = append(d.Timestamps, timestamp)
	for int(userIndex) >= len(d.UserFeedback) {
		d.UserFeedback = append(d.UserFeedback, nil)
		d.UserRelevances = append(d.UserRelevances, nil)
	}
	d.UserFeedback[userIndex] = append(d.UserFeedback[userIndex], itemIndex)
	d.UserRelevances[userIndex] = append(d.UserRelevances[userIndex], relevance)
	for int(itemIndex) >= len(d.ItemFeedback) {
		d.ItemFeedback = append(d.ItemFeedback, nil)
		d.ItemRelevances = append(d.ItemRelevances, nil)
	}
	d.ItemFeedback[itemIndex] = append(d.ItemFeedback[itemIndex], userIndex)
	d.ItemRelevances[itemIndex] = append(d.ItemRelevances[itemIndex], relevance)
}

// SubSet returns a new dataset containing the rows at indices. The id
// dictionaries are shared with the receiver.
func (d *Dataset) SubSet(indices []int) *Dataset {
	subset := NewSharedDataset(d)
	for _, i := range indices {
		subset.AddIndexedFeedback(d.Users[i], d.Items[i], d.Timestamps[i], d.Relevances[i])
	}
	return subset
}

// GetUserFeedback returns the items interacted by userIndex. The slice must
// not be modified.
func (d *Dataset) GetUserFeedback(userIndex int32) []int32 {
	if int(userIndex) >= len(d.UserFeedback) {
		return nil
	}
	return d.UserFeedback[userIndex]
}

// GetItemFeedback returns the users who interacted with itemIndex. The slice
// must not be modified.
func (d *Dataset) GetItemFeedback(itemIndex int32) []int32 {
	if int(itemIndex) >= len(d.ItemFeedback) {
		return nil
	}
	return d.ItemFeedback[itemIndex]
}

// NegativeSample samples numCandidates unobserved items for each user,
// excluding items in both this dataset and excludeSet. The result is cached,
// repeated calls return the same candidates.
func (d *Dataset) NegativeSample(excludeSet *Dataset, numCandidates int) [][]int32 {
	if len(d.Negatives) == 0 {
		rng := base.NewRandomGenerator(0)
		d.Negatives = make([][]int32, d.UserCount())
		for userIndex := int32(0); userIndex < int32(d.UserCount()); userIndex++ {
			s1 := mapset.NewSet(d.GetUserFeedback(userIndex)...)
			var s2 mapset.Set[int32]
			if excludeSet != nil {
				s2 = mapset.NewSet(excludeSet.GetUserFeedback(userIndex)...)
			} else {
				s2 = mapset.NewSet[int32]()
			}
			d.Negatives[userIndex] = rng.SampleInt32(0, int32(d.ItemCount()), numCandidates, s1, s2)
		}
	}
	return d.Negatives
}

// LoadLogFromCSV reads an interaction log from a CSV file. The expected
// columns are user id, item id, then optionally relevance and timestamp.
// Missing relevance defaults to 1. Timestamps are parsed as unix seconds or
// common date layouts.
func LoadLogFromCSV(fileName, sep string, hasHeader bool) (*Dataset, error) {
	dataset := NewDataset()
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore header
		if hasHeader {
			hasHeader = false
			continue
		}
		fields := strings.Split(line, sep)
		// Ignore empty line
		if len(fields) < 2 {
			continue
		}
		relevance := float32(1)
		if len(fields) > 2 {
			relevance, err = util.ParseFloat[float32](fields[2])
			if err != nil {
				return nil, errors.Trace(err)
			}
		}
		var timestamp time.Time
		if len(fields) > 3 {
			timestamp, err = ParseTimestamp(fields[3])
			if err != nil {
				return nil, errors.Trace(err)
			}
		}
		dataset.AddFeedback(fields[0], fields[1], timestamp, relevance)
	}
	return dataset, scanner.Err()
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a timestamp as unix seconds or one of the supported
// date layouts.
func ParseTimestamp(s string) (time.Time, error) {
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unsupported timestamp: %v", s)
}

// LoadLogFromBuiltIn loads a built-in interaction log, downloading it on
// first use.
func LoadLogFromBuiltIn(name string) (*Dataset, error) {
	dataset, exist := builtInDataSets[name]
	if !exist {
		return nil, errors.NotFoundf("built-in dataset %v", name)
	}
	dataFile, err := downloadBuiltIn(name, dataset.path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	data, err := LoadLogFromCSV(dataFile, dataset.sep, dataset.header)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load built-in dataset",
		zap.String("name", name),
		zap.Int("n_interactions", data.Count()),
		zap.Int("n_users", data.UserCount()),
		zap.Int("n_items", data.ItemCount()))
	return data, nil
}

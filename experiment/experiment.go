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

// Package experiment compares recommendation models on a shared test set.
package experiment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model/rec"
	"go.uber.org/zap"
)

// NamedMetric couples a ranking metric with its printed name.
type NamedMetric struct {
	Name string
	Fn   rec.Metric
}

// DefaultMetrics lists the metrics reported when none are given.
func DefaultMetrics() []NamedMetric {
	return []NamedMetric{
		{"NDCG", rec.NDCG},
		{"Precision", rec.Precision},
		{"Recall", rec.Recall},
		{"MRR", rec.MRR},
		{"MAP", rec.MAP},
		{"HitRate", rec.HitRate},
	}
}

// Experiment evaluates fitted models on one test set and collects the scores
// into a metric@k table with one row per model.
type Experiment struct {
	trainSet   *dataset.Dataset
	testSet    *dataset.Dataset
	topKs      []int
	metrics    []NamedMetric
	candidates int
	jobs       int
	names      []string
	results    map[string]map[string]float32
}

type Option func(*Experiment)

// WithCandidates sets the number of sampled negatives per user.
func WithCandidates(n int) Option {
	return func(e *Experiment) { e.candidates = n }
}

// WithJobs sets the number of evaluation workers.
func WithJobs(n int) Option {
	return func(e *Experiment) { e.jobs = n }
}

// WithMetrics replaces the default metric list.
func WithMetrics(metrics ...NamedMetric) Option {
	return func(e *Experiment) { e.metrics = metrics }
}

func NewExperiment(trainSet, testSet *dataset.Dataset, topKs []int, opts ...Option) *Experiment {
	e := &Experiment{
		trainSet:   trainSet,
		testSet:    testSet,
		topKs:      topKs,
		metrics:    DefaultMetrics(),
		candidates: 100,
		jobs:       1,
		results:    make(map[string]map[string]float32),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Columns returns the metric@k column names in render order.
func (e *Experiment) Columns() []string {
	columns := make([]string, 0, len(e.metrics)*len(e.topKs))
	for _, metric := range e.metrics {
		for _, k := range e.topKs {
			columns = append(columns, fmt.Sprintf("%s@%d", metric.Name, k))
		}
	}
	return columns
}

// AddResult evaluates a fitted model and stores one row of scores. Evaluating
// the same name twice overwrites the previous row.
func (e *Experiment) AddResult(ctx context.Context, name string, m rec.Recommender) error {
	if m.Invalid() {
		return errors.Errorf("model %v is not fitted", name)
	}
	start := time.Now()
	row := make(map[string]float32, len(e.metrics)*len(e.topKs))
	for _, k := range e.topKs {
		scorers := make([]rec.Metric, len(e.metrics))
		for i, metric := range e.metrics {
			scorers[i] = metric.Fn
		}
		scores := rec.Evaluate(ctx, m, e.testSet, e.trainSet, k, e.candidates, e.jobs, scorers...)
		for i, metric := range e.metrics {
			row[fmt.Sprintf("%s@%d", metric.Name, k)] = scores[i]
		}
	}
	if _, exist := e.results[name]; !exist {
		e.names = append(e.names, name)
	}
	e.results[name] = row
	log.Logger().Info("experiment result added",
		zap.String("model", name),
		zap.Duration("eval_time", time.Since(start)))
	return nil
}

// Result returns the score of one model in one metric@k column.
func (e *Experiment) Result(name, column string) (float32, bool) {
	row, exist := e.results[name]
	if !exist {
		return 0, false
	}
	score, exist := row[column]
	return score, exist
}

// Names returns the model names in insertion order.
func (e *Experiment) Names() []string {
	return e.names
}

// Render writes the comparison table.
func (e *Experiment) Render(w io.Writer) error {
	columns := e.Columns()
	header := append([]string{"Model"}, columns...)
	table := tablewriter.NewWriter(w)
	table.Header(header)
	for _, name := range e.names {
		row := make([]string, 0, len(header))
		row = append(row, name)
		for _, column := range columns {
			row = append(row, fmt.Sprintf("%f", e.results[name][column]))
		}
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

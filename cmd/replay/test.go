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

package main

import (
	"context"
	"os"
	"time"

	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/experiment"
	"github.com/replay-rec/replay/model/rec"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	testCommand.PersistentFlags().Int("top-k", 0, "override the length of the recommendation list")
	testCommand.PersistentFlags().Int("jobs", 0, "override the number of evaluation workers")
}

var testCommand = &cobra.Command{
	Use:   "test [model...]",
	Short: "Split the log, fit models and report ranking metrics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadGlobalConfig(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		if topK, _ := cmd.PersistentFlags().GetInt("top-k"); topK > 0 {
			cfg.Eval.TopK = topK
		}
		if jobs, _ := cmd.PersistentFlags().GetInt("jobs"); jobs > 0 {
			cfg.Eval.Jobs = jobs
		}
		modelNames := args
		if len(modelNames) == 0 {
			modelNames = []string{cfg.Model.Name}
		}
		// load and split the log
		data, err := loadData(cfg)
		if err != nil {
			log.Logger().Fatal("failed to load dataset", zap.Error(err))
		}
		split, err := cfg.GetSplitter()
		if err != nil {
			log.Logger().Fatal("failed to create splitter", zap.Error(err))
		}
		trainSet, testSet := split.Split(data)
		log.Logger().Info("split dataset",
			zap.Int("train_set_size", trainSet.Count()),
			zap.Int("test_set_size", testSet.Count()))
		// fit and evaluate each model
		e := experiment.NewExperiment(trainSet, testSet, []int{cfg.Eval.TopK},
			experiment.WithCandidates(cfg.Eval.Candidates),
			experiment.WithJobs(cfg.Eval.Jobs))
		for _, modelName := range modelNames {
			m, err := rec.NewModel(modelName, cfg.GetParams())
			if err != nil {
				log.Logger().Fatal("failed to create model", zap.Error(err))
			}
			start := time.Now()
			m.Fit(context.Background(), trainSet, nil, cfg.GetFitConfig())
			log.Logger().Info("fit model",
				zap.String("model", modelName),
				zap.Duration("fit_time", time.Since(start)))
			if err = e.AddResult(context.Background(), modelName, m); err != nil {
				log.Logger().Fatal("failed to evaluate model", zap.Error(err))
			}
		}
		if err = e.Render(os.Stdout); err != nil {
			log.Logger().Fatal("failed to render results", zap.Error(err))
		}
	},
}

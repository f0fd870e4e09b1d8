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
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/config"
	"github.com/replay-rec/replay/dataset"
	"github.com/replay-rec/replay/model/rec"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	tuneCommand.PersistentFlags().Int("n-trials", 0, "override the number of search trials")
	tuneCommand.PersistentFlags().Int("jobs", 0, "override the number of evaluation workers")
}

var tuneCommand = &cobra.Command{
	Use:   "tune [model]",
	Short: "Search hyper-parameters by random search, or the model itself by TPE",
	Long: "Search the hyper-parameters of one model by random search over its grid.\n" +
		"Without a model argument, search the model type and its hyper-parameters\n" +
		"jointly with a TPE sampler.",
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadGlobalConfig(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		if numTrials, _ := cmd.PersistentFlags().GetInt("n-trials"); numTrials > 0 {
			cfg.Tune.NumTrials = numTrials
		}
		if jobs, _ := cmd.PersistentFlags().GetInt("jobs"); jobs > 0 {
			cfg.Eval.Jobs = jobs
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
		start := time.Now()
		if len(args) > 0 {
			tuneModel(cfg, args[0], trainSet, testSet)
		} else {
			searchModel(cfg, trainSet, testSet)
		}
		log.Logger().Info("complete tuning", zap.Duration("tune_time", time.Since(start)))
	},
}

// tuneModel searches the hyper-parameters of one model by random search.
func tuneModel(cfg *config.Config, modelName string, trainSet, testSet *dataset.Dataset) {
	m, err := rec.NewModel(modelName, cfg.GetParams())
	if err != nil {
		log.Logger().Fatal("failed to create model", zap.Error(err))
	}
	grid := m.GetParamsGrid(false)
	log.Logger().Info("tune hyper-parameters",
		zap.String("model", modelName),
		zap.Any("grid", grid),
		zap.Int("n_trials", cfg.Tune.NumTrials))
	result := rec.RandomSearchCV(context.Background(), m, trainSet, testSet, grid,
		cfg.Tune.NumTrials, cfg.Split.Seed, cfg.GetFitConfig())
	// render trials
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"#",
		fmt.Sprintf("NDCG@%d", cfg.Eval.TopK),
		fmt.Sprintf("Precision@%d", cfg.Eval.TopK),
		fmt.Sprintf("Recall@%d", cfg.Eval.TopK),
		"Params"})
	for i := range result.Params {
		score := result.Scores[i]
		if err := table.Append([]string{
			fmt.Sprintf("%v", i),
			fmt.Sprintf("%v", score.NDCG),
			fmt.Sprintf("%v", score.Precision),
			fmt.Sprintf("%v", score.Recall),
			result.Params[i].ToString(),
		}); err != nil {
			log.Logger().Fatal("failed to render results", zap.Error(err))
		}
	}
	if err := table.Render(); err != nil {
		log.Logger().Fatal("failed to render results", zap.Error(err))
	}
	log.Logger().Info("best params found",
		zap.String("params", result.BestParams.ToString()),
		zap.Float32("NDCG", result.BestScore.NDCG))
}

// searchModel searches the model type and its hyper-parameters jointly.
func searchModel(cfg *config.Config, trainSet, testSet *dataset.Dataset) {
	search := rec.NewModelSearch(rec.DefaultModelCreators(), trainSet, testSet, cfg.GetFitConfig())
	result, err := search.Optimize(cfg.Tune.NumTrials)
	if err != nil {
		log.Logger().Fatal("failed to search model", zap.Error(err))
	}
	log.Logger().Info("best model found",
		zap.String("model", result.Type),
		zap.String("params", result.Params.ToString()),
		zap.Float32("NDCG", result.Score.NDCG))
}

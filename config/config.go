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

// Package config loads and validates the replay configuration file.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/model"
	"github.com/replay-rec/replay/model/rec"
	"github.com/replay-rec/replay/splitter"
	"github.com/spf13/viper"
)

// Config is the configuration of the replay command line.
type Config struct {
	Data  DataConfig  `mapstructure:"data"`
	Split SplitConfig `mapstructure:"split"`
	Model ModelConfig `mapstructure:"model"`
	Eval  EvalConfig  `mapstructure:"eval"`
	Tune  TuneConfig  `mapstructure:"tune"`
}

// DataConfig locates the interaction log.
type DataConfig struct {
	// Path of a CSV log. Ignored when BuiltIn is set.
	Path string `mapstructure:"path"`
	// BuiltIn names a downloadable dataset (ml-100k, ml-1m, filmtrust).
	BuiltIn   string `mapstructure:"built_in" validate:"omitempty,oneof=ml-100k ml-1m filmtrust"`
	Separator string `mapstructure:"separator"`
	Header    bool   `mapstructure:"header"`
}

// SplitConfig builds the train/test splitter.
type SplitConfig struct {
	Type                    string  `mapstructure:"type" validate:"oneof=date ratio user"`
	TestSize                float64 `mapstructure:"test_size" validate:"gte=0"`
	Date                    string  `mapstructure:"date"`
	Shuffle                 bool    `mapstructure:"shuffle"`
	Seed                    int64   `mapstructure:"seed"`
	DropColdUsers           bool    `mapstructure:"drop_cold_users"`
	DropColdItems           bool    `mapstructure:"drop_cold_items"`
	DropZeroRelevanceInTest bool    `mapstructure:"drop_zero_relevance_in_test"`
}

// ModelConfig selects the model and its hyper-parameters.
type ModelConfig struct {
	Name string `mapstructure:"name" validate:"oneof=pop user_pop random wilson ucb knn bpr als"`
	// Hyper-parameters
	Lr           float64 `mapstructure:"lr"`
	Reg          float64 `mapstructure:"reg"`
	NEpochs      int     `mapstructure:"n_epochs"`
	NFactors     int     `mapstructure:"n_factors"`
	RandomState  int64   `mapstructure:"random_state"`
	InitMean     float64 `mapstructure:"init_mean"`
	InitStdDev   float64 `mapstructure:"init_std"`
	Alpha        float64 `mapstructure:"alpha"`
	Similarity   string  `mapstructure:"similarity" validate:"omitempty,oneof=cosine jaccard"`
	NumNeighbors int     `mapstructure:"num_neighbors"`
	Shrink       float64 `mapstructure:"shrink"`
	Exploration  float64 `mapstructure:"exploration"`
	Distribution string  `mapstructure:"distribution" validate:"omitempty,oneof=uniform popular_based"`
	Seed         int64   `mapstructure:"seed"`
}

// EvalConfig drives evaluation during fit and test.
type EvalConfig struct {
	TopK       int `mapstructure:"top_k" validate:"gt=0"`
	Candidates int `mapstructure:"n_candidates" validate:"gt=0"`
	Jobs       int `mapstructure:"jobs" validate:"gt=0"`
	Verbose    int `mapstructure:"verbose"`
}

// TuneConfig drives hyper-parameter search.
type TuneConfig struct {
	NumTrials int `mapstructure:"n_trials" validate:"gt=0"`
}

// GetDefaultConfig returns a Config with default values.
func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Separator: ",",
		},
		Split: SplitConfig{
			Type:     "ratio",
			TestSize: 0.2,
			Seed:     42,
		},
		Model: ModelConfig{
			Name: "pop",
		},
		Eval: EvalConfig{
			TopK:       10,
			Candidates: 100,
			Jobs:       1,
			Verbose:    10,
		},
		Tune: TuneConfig{
			NumTrials: 10,
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [data]
	viper.SetDefault("data.separator", defaultConfig.Data.Separator)
	// [split]
	viper.SetDefault("split.type", defaultConfig.Split.Type)
	viper.SetDefault("split.test_size", defaultConfig.Split.TestSize)
	viper.SetDefault("split.seed", defaultConfig.Split.Seed)
	// [model]
	viper.SetDefault("model.name", defaultConfig.Model.Name)
	// [eval]
	viper.SetDefault("eval.top_k", defaultConfig.Eval.TopK)
	viper.SetDefault("eval.n_candidates", defaultConfig.Eval.Candidates)
	viper.SetDefault("eval.jobs", defaultConfig.Eval.Jobs)
	viper.SetDefault("eval.verbose", defaultConfig.Eval.Verbose)
	// [tune]
	viper.SetDefault("tune.n_trials", defaultConfig.Tune.NumTrials)
}

type configBinding struct {
	key string
	env string
}

func bindEnv() {
	bindings := []configBinding{
		{"data.path", "REPLAY_DATA_PATH"},
		{"data.built_in", "REPLAY_DATA_BUILT_IN"},
		{"model.name", "REPLAY_MODEL_NAME"},
		{"eval.jobs", "REPLAY_EVAL_JOBS"},
	}
	for _, binding := range bindings {
		err := viper.BindEnv(binding.key, binding.env)
		if err != nil {
			panic(err)
		}
	}
}

// LoadConfig loads and validates the configuration from a TOML or YAML file.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	bindEnv()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Trace(err)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &config, nil
}

// Validate checks field constraints and cross-field rules.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	if config.Split.Type == "date" {
		if _, err := parseDate(config.Split.Date); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// GetParams converts the hyper-parameter section to model parameters. Only
// keys present in the configuration file are set, the rest keep the model's
// own defaults.
func (config *Config) GetParams() model.Params {
	type paramBinding struct {
		key   string
		name  model.ParamName
		value interface{}
	}
	bindings := []paramBinding{
		{"lr", model.Lr, config.Model.Lr},
		{"reg", model.Reg, config.Model.Reg},
		{"n_epochs", model.NEpochs, config.Model.NEpochs},
		{"n_factors", model.NFactors, config.Model.NFactors},
		{"random_state", model.RandomState, config.Model.RandomState},
		{"init_mean", model.InitMean, config.Model.InitMean},
		{"init_std", model.InitStdDev, config.Model.InitStdDev},
		{"alpha", model.Alpha, config.Model.Alpha},
		{"similarity", model.Similarity, config.Model.Similarity},
		{"num_neighbors", model.NumNeighbors, config.Model.NumNeighbors},
		{"shrink", model.Shrink, config.Model.Shrink},
		{"exploration", model.Exploration, config.Model.Exploration},
		{"distribution", model.Distribution, config.Model.Distribution},
		{"seed", model.Seed, config.Model.Seed},
	}
	params := model.Params{}
	for _, binding := range bindings {
		if viper.IsSet("model." + binding.key) {
			params[binding.name] = binding.value
		}
	}
	return params
}

// GetFitConfig converts the evaluation section to a fit configuration.
func (config *Config) GetFitConfig() *rec.FitConfig {
	return &rec.FitConfig{
		Jobs:       config.Eval.Jobs,
		Verbose:    config.Eval.Verbose,
		Candidates: config.Eval.Candidates,
		TopK:       config.Eval.TopK,
	}
}

// GetSplitter builds the splitter described by the split section.
func (config *Config) GetSplitter() (splitter.Splitter, error) {
	options := splitter.Options{
		DropColdUsers:           config.Split.DropColdUsers,
		DropColdItems:           config.Split.DropColdItems,
		DropZeroRelevanceInTest: config.Split.DropZeroRelevanceInTest,
	}
	switch config.Split.Type {
	case "date":
		date, err := parseDate(config.Split.Date)
		if err != nil {
			return nil, errors.Trace(err)
		}
		s := splitter.NewDateSplitter(date)
		s.Options = options
		return s, nil
	case "ratio":
		s := splitter.NewRatioSplitter(config.Split.TestSize, config.Split.Seed)
		s.Options = options
		return s, nil
	case "user":
		s := splitter.NewUserSplitter(config.Split.TestSize, config.Split.Seed)
		s.Options = options
		s.Shuffle = config.Split.Shuffle
		return s, nil
	}
	return nil, errors.Errorf("unknown splitter %v", config.Split.Type)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if date, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return date, nil
		}
	}
	return time.Time{}, errors.Errorf("failed to parse date %v", s)
}

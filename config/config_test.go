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

package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/replay-rec/replay/model"
	"github.com/replay-rec/replay/splitter"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestUnmarshal(t *testing.T) {
	data, err := os.ReadFile("config.toml.template")
	assert.NoError(t, err)
	text := string(data)
	text = strings.Replace(text, "name = \"pop\"", "name = \"bpr\"", -1)
	text = strings.Replace(text, "#n_factors = 16", "n_factors = 32", -1)
	text = strings.Replace(text, "#lr = 0.05", "lr = 0.01", -1)
	viper.SetConfigType("toml")
	err = viper.ReadConfig(strings.NewReader(text))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)

	// [data]
	assert.Equal(t, ",", config.Data.Separator)
	assert.False(t, config.Data.Header)
	// [split]
	assert.Equal(t, "ratio", config.Split.Type)
	assert.Equal(t, 0.2, config.Split.TestSize)
	assert.Equal(t, int64(42), config.Split.Seed)
	// [model]
	assert.Equal(t, "bpr", config.Model.Name)
	assert.Equal(t, 32, config.Model.NFactors)
	assert.Equal(t, 0.01, config.Model.Lr)
	// [eval]
	assert.Equal(t, 10, config.Eval.TopK)
	assert.Equal(t, 100, config.Eval.Candidates)
	assert.Equal(t, 1, config.Eval.Jobs)
	// [tune]
	assert.Equal(t, 10, config.Tune.NumTrials)

	// only keys present in the file become model parameters
	params := config.GetParams()
	assert.Equal(t, 32, params[model.NFactors])
	assert.Equal(t, 0.01, params[model.Lr])
	_, exist := params[model.Reg]
	assert.False(t, exist)

	fitConfig := config.GetFitConfig()
	assert.Equal(t, 10, fitConfig.TopK)
	assert.Equal(t, 100, fitConfig.Candidates)
}

func TestSetDefault(t *testing.T) {
	viper.Reset()
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)
}

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, config.Validate())
	// unknown model
	config = GetDefaultConfig()
	config.Model.Name = "unknown"
	assert.Error(t, config.Validate())
	// unknown splitter
	config = GetDefaultConfig()
	config.Split.Type = "unknown"
	assert.Error(t, config.Validate())
	// date splitter requires a date
	config = GetDefaultConfig()
	config.Split.Type = "date"
	assert.Error(t, config.Validate())
	config.Split.Date = "2020-01-01"
	assert.NoError(t, config.Validate())
	// evaluation workers must be positive
	config = GetDefaultConfig()
	config.Eval.Jobs = 0
	assert.Error(t, config.Validate())
}

func TestGetSplitter(t *testing.T) {
	config := GetDefaultConfig()
	s, err := config.GetSplitter()
	assert.NoError(t, err)
	ratio, ok := s.(*splitter.RatioSplitter)
	assert.True(t, ok)
	assert.Equal(t, 0.2, ratio.TestSize)

	config.Split.Type = "user"
	config.Split.Shuffle = true
	s, err = config.GetSplitter()
	assert.NoError(t, err)
	user, ok := s.(*splitter.UserSplitter)
	assert.True(t, ok)
	assert.True(t, user.Shuffle)

	config.Split.Type = "date"
	config.Split.Date = "2020-01-02"
	config.Split.DropColdUsers = true
	s, err = config.GetSplitter()
	assert.NoError(t, err)
	date, ok := s.(*splitter.DateSplitter)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), date.Date)
	assert.True(t, date.DropColdUsers)

	config.Split.Type = "date"
	config.Split.Date = "invalid"
	_, err = config.GetSplitter()
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	assert.NoError(t, os.Setenv("REPLAY_MODEL_NAME", "ucb"))
	defer os.Unsetenv("REPLAY_MODEL_NAME")
	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, "ucb", config.Model.Name)
	// check default values
	assert.Equal(t, 10, config.Eval.TopK)
}

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
	"fmt"

	"github.com/juju/errors"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/config"
	"github.com/replay-rec/replay/dataset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// VersionName is the printed version of the replay command line.
const VersionName = "0.11.0"

func init() {
	rootCommand.PersistentFlags().StringP("config", "c", "", "path of the configuration file")
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.AddCommand(versionCommand)
	rootCommand.AddCommand(testCommand)
	rootCommand.AddCommand(tuneCommand)
}

var rootCommand = &cobra.Command{
	Use:   "replay",
	Short: "Offline recommender system toolkit",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Check the version of replay",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(VersionName)
	},
}

// loadGlobalConfig loads the configuration file named by the --config flag or
// falls back to the defaults.
func loadGlobalConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flags().Changed("config") {
		path, _ := cmd.Flags().GetString("config")
		return config.LoadConfig(path)
	}
	return config.GetDefaultConfig(), nil
}

// loadData loads the interaction log named by the data section.
func loadData(cfg *config.Config) (*dataset.Dataset, error) {
	if cfg.Data.BuiltIn != "" {
		log.Logger().Info("load built-in dataset", zap.String("name", cfg.Data.BuiltIn))
		return dataset.LoadLogFromBuiltIn(cfg.Data.BuiltIn)
	}
	if cfg.Data.Path != "" {
		log.Logger().Info("load dataset from CSV", zap.String("path", cfg.Data.Path))
		return dataset.LoadLogFromCSV(cfg.Data.Path, cfg.Data.Separator, cfg.Data.Header)
	}
	return nil, errors.New("no dataset in config, set data.path or data.built_in")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}

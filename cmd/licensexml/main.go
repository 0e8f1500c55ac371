/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"licensexml/internal/config"
	applog "licensexml/internal/log"
	"licensexml/internal/version"
)

// configPath is set by the persistent --config flag.
var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "licensexml",
		Short: "Convert license templates to structured XML",
		Long: `licensexml walks a license catalog and converts every template that has
no output document yet. Each template is classified line by line in an
interactive terminal view; the committed decision is condensed into
sections and written as one XML document per record.

Example:
  licensexml convert --catalog catalog.yaml --templates license-list --output src
  licensexml convert --type exception
  licensexml review --output src`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(secretCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and initializes console logging from it.
func loadConfig() (config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	applog.Init(logOptions(cfg))
	return cfg, nil
}

func logOptions(cfg config.AppConfig) applog.Options {
	return applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("licensexml", version.String())
		},
	}
}

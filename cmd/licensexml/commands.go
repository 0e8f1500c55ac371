/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"licensexml/internal/catalog"
	"licensexml/internal/config"
	"licensexml/internal/domain"
	"licensexml/internal/storage"
)

func validateCmd() *cobra.Command {
	var (
		src      sourceFlags
		resolve  bool
		typeName string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the catalog for invalid or duplicate records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			src.apply(&cfg)
			cat, closeCat, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeCat()

			w := cmd.OutOrStdout()
			problems, err := catalog.Check(cmd.Context(), cat)
			if err != nil {
				return err
			}
			for _, p := range problems {
				_, _ = fmt.Fprintln(w, p)
			}

			if resolve {
				typ, err := domain.ParseRecordType(typeName)
				if err != nil {
					return err
				}
				tpl, err := openTemplates(cfg)
				if err != nil {
					return err
				}
				recs, err := cat.Records(cmd.Context(), typ)
				if err != nil {
					return err
				}
				for _, rec := range recs {
					if _, err := catalog.Resolve(cmd.Context(), tpl, rec); err != nil {
						problems = append(problems, catalog.Problem{Type: typ, Identifier: rec.Identifier, Err: err})
						_, _ = fmt.Fprintln(w, problems[len(problems)-1])
					}
				}
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) found", len(problems))
			}
			_, _ = fmt.Fprintln(w, "catalog OK")
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&resolve, "resolve", false, "also fetch every template")
	cmd.Flags().StringVar(&typeName, "type", "license", "record type to resolve")
	return cmd
}

func reviewCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List converted records flagged for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Convert.Output = output
			}
			root, err := filepath.Abs(cfg.Convert.Output)
			if err != nil {
				return err
			}
			ix, err := storage.OpenIndex(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer ix.Close()
			entries, err := ix.Reviews(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(w, "no records flagged for review")
				return nil
			}
			for _, e := range entries {
				_, _ = fmt.Fprintf(w, "%-10s %-32s %s\n", e.Type, e.Identifier, e.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output root")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = w.Write(b)
			keys := config.OverrideKeys()
			slices.Sort(keys)
			for _, k := range keys {
				if env, ok := config.EnvOverrideFor(k); ok {
					_, _ = fmt.Fprintf(w, "# %s overridden by %s\n", k, env)
				}
			}
			if err := cfg.Validate(); err != nil {
				_, _ = fmt.Fprintf(w, "# invalid: %v\n", err)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the defaults to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(config.Defaults(), configPath)
		},
	})
	return cmd
}

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets in the OS keyring",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "set <name>",
		Short:     "Store a secret read from stdin; empty input deletes it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.SecretNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(config.SecretNames(), args[0]) {
				return fmt.Errorf("unknown secret %q (known: %s)", args[0], strings.Join(config.SecretNames(), ", "))
			}
			sc := bufio.NewScanner(cmd.InOrStdin())
			var value string
			if sc.Scan() {
				value = strings.TrimSpace(sc.Text())
			}
			if err := sc.Err(); err != nil {
				return err
			}
			return config.SetSecret(args[0], value)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Report which secrets are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, name := range config.SecretNames() {
				v, err := config.Secret(name)
				state := "missing"
				switch {
				case err != nil:
					state = "error"
					errs = append(errs, err)
				case v != "":
					state = "set"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, state)
			}
			return errors.Join(errs...)
		},
	})
	return cmd
}

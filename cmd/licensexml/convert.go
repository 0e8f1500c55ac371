/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"licensexml/internal/batch"
	"licensexml/internal/catalog"
	"licensexml/internal/config"
	"licensexml/internal/crash"
	"licensexml/internal/domain"
	"licensexml/internal/export"
	applog "licensexml/internal/log"
	"licensexml/internal/storage"
	"licensexml/internal/telemetry"
	"licensexml/internal/ui"
)

// sourceFlags are shared by convert and validate.
type sourceFlags struct {
	catalogFile string
	pgDSN       string
	templates   string
	s3Endpoint  string
	s3Bucket    string
	s3Prefix    string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.catalogFile, "catalog", "", "catalog file (YAML or JSON)")
	cmd.Flags().StringVar(&f.pgDSN, "pg-dsn", "", "read the catalog from PostgreSQL instead of a file")
	cmd.Flags().StringVar(&f.templates, "templates", "", "template directory")
	cmd.Flags().StringVar(&f.s3Endpoint, "s3-endpoint", "", "read templates from this S3 endpoint")
	cmd.Flags().StringVar(&f.s3Bucket, "s3-bucket", "", "template bucket")
	cmd.Flags().StringVar(&f.s3Prefix, "s3-prefix", "", "template key prefix")
}

// apply lets explicit flags win over the config file and environment.
func (f *sourceFlags) apply(cfg *config.AppConfig) {
	switch {
	case f.pgDSN != "":
		cfg.Catalog.Source, cfg.Catalog.DSN = "postgres", f.pgDSN
	case f.catalogFile != "":
		cfg.Catalog.Source, cfg.Catalog.File = "file", f.catalogFile
	}
	switch {
	case f.s3Endpoint != "":
		cfg.Templates.Source, cfg.Templates.S3.Endpoint = "s3", f.s3Endpoint
	case f.templates != "":
		cfg.Templates.Source, cfg.Templates.Dir = "dir", f.templates
	}
	if f.s3Bucket != "" {
		cfg.Templates.S3.Bucket = f.s3Bucket
	}
	if f.s3Prefix != "" {
		cfg.Templates.S3.Prefix = f.s3Prefix
	}
}

func openCatalog(ctx context.Context, cfg config.AppConfig) (catalog.Source, func(), error) {
	if cfg.Catalog.Source == "postgres" {
		dsn, err := cfg.CatalogDSN()
		if err != nil {
			return nil, nil, err
		}
		pg, err := catalog.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	}
	f, err := catalog.LoadFile(cfg.Catalog.File)
	if err != nil {
		return nil, nil, err
	}
	return f, func() {}, nil
}

func openTemplates(cfg config.AppConfig) (catalog.Templates, error) {
	var next catalog.Templates
	if cfg.Templates.Source == "s3" {
		secret, err := config.Secret(config.SecretS3SecretKey)
		if err != nil {
			return nil, err
		}
		s3cfg := cfg.Templates.S3
		s3, err := catalog.NewS3(catalog.S3Config{
			Endpoint:  s3cfg.Endpoint,
			Region:    s3cfg.Region,
			AccessKey: s3cfg.AccessKey,
			SecretKey: secret,
			Bucket:    s3cfg.Bucket,
			Prefix:    s3cfg.Prefix,
			UseSSL:    s3cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		next = s3
	} else {
		next = catalog.Dir{Root: cfg.Templates.Dir}
	}
	return catalog.NewCached(next, cfg.Templates.CacheSize)
}

func convertCmd() *cobra.Command {
	var (
		src      sourceFlags
		typeName string
		output   string
		column   int
		proofDir string
		noIndex  bool
	)
	cmd := &cobra.Command{
		Use:   "convert [identifier...]",
		Short: "Classify and convert pending templates",
		Long: `Convert every catalog record of the selected type that has no output
document yet. Records already converted are skipped, so an interrupted
batch resumes where it stopped. Identifiers restrict the run to those records.

Keys in the classifier:
  Up/Down PgUp/PgDn           scroll; lines passing the marker take the marking category
  1 2 3 4                     mark title, copyright, body, optional from here on
  ` + "`" + `                           toggle review
  u r                         undo, redo
  Enter Tab                   commit
  q Esc Ctrl-C                quit the batch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			src.apply(&cfg)
			if output != "" {
				cfg.Convert.Output = output
			}
			if cmd.Flags().Changed("column") {
				cfg.Convert.Column = column
			}
			if proofDir != "" {
				cfg.Convert.ProofDir = proofDir
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			typ, err := domain.ParseRecordType(typeName)
			if err != nil {
				return err
			}
			root, err := filepath.Abs(cfg.Convert.Output)
			if err != nil {
				return err
			}

			// the classifier owns the terminal; logs go to a file only
			opts := logOptions(cfg)
			opts.NoConsole = true
			if opts.File == "" {
				opts.File = filepath.Join(root, storage.IndexDirName, "licensexml.log")
			}
			applog.Init(opts)
			defer func() { _ = applog.Close() }()
			l := applog.WithComponent("cli")
			defer crash.Recover(root)

			tcfg := telemetry.FromEnv()
			tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
			events := telemetry.NewDefault(tcfg)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				events.Flush(ctx)
				events.Close()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			cat, closeCat, err := openCatalog(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCat()
			tpl, err := openTemplates(cfg)
			if err != nil {
				return err
			}
			out, err := storage.NewOutput(root)
			if err != nil {
				return err
			}

			d := &batch.Driver{
				Type:      typ,
				Catalog:   cat,
				Templates: tpl,
				Output:    out,
				Events:    events,
				Column:    cfg.Convert.Column,
				Only:      args,
			}
			if !noIndex {
				ix, err := storage.OpenIndex(ctx, root)
				if err != nil {
					l.Warn("decision index unavailable", slog.Any("err", err))
				} else {
					defer ix.Close()
					d.Index = ix
				}
			}
			if cfg.Convert.ProofDir != "" {
				d.Proofs = export.ProofPDF{Dir: cfg.Convert.ProofDir}
			}

			sum, err := runClassifier(ctx, d, func() (screenClassifier, error) {
				return ui.Open(ui.Options{CacheSize: cfg.Templates.CacheSize})
			})
			if err != nil {
				if batch.Fatal(err) {
					crash.Fault(root, err)
				}
				return err
			}
			printSummary(cmd, typ, sum)
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().StringVar(&typeName, "type", "license", "record type: license or exception")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output root")
	cmd.Flags().IntVar(&column, "column", 80, "wrap column of the output documents")
	cmd.Flags().StringVar(&proofDir, "proof-dir", "", "also write a PDF proof per record below this dir")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "do not record decisions in the decision index")
	return cmd
}

// screenClassifier is a classifier that holds the terminal until closed.
type screenClassifier interface {
	batch.Classifier
	Close()
}

// runClassifier opens the screen and runs the batch on it. The screen is
// released before a panic reaches the crash handler deferred by the caller.
func runClassifier(ctx context.Context, d *batch.Driver, open func() (screenClassifier, error)) (batch.Summary, error) {
	term, err := open()
	if err != nil {
		return batch.Summary{}, err
	}
	defer term.Close()
	d.Classifier = term
	return d.Run(ctx)
}

func printSummary(cmd *cobra.Command, typ domain.RecordType, sum batch.Summary) {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "%s: %d converted, %d already done, %d unresolved (of %d)\n",
		typ.Plural(), sum.Converted, sum.Skipped, len(sum.Unresolved), sum.Total)
	for _, re := range sum.Unresolved {
		_, _ = fmt.Fprintf(w, "  skipped %s\n", re)
	}
	if sum.Aborted {
		_, _ = fmt.Fprintln(w, "Stopped by operator; run convert again to resume.")
	}
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/randunun/bom-pricer/internal/ingest"
	"github.com/randunun/bom-pricer/internal/model"
)

var ingestSource string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json> [file.json...]",
	Short: "Load crawl result files into the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		source := cfg.Ingest.Source
		if ingestSource != "" {
			source = ingestSource
		}
		ing := ingest.New(st, newConverter(), ingest.Options{
			Source:      source,
			Concurrency: cfg.Ingest.Concurrency,
		})

		var totalVariants, totalSamples int
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "ingest: read %s", path)
			}

			var payload model.CrawlResult
			if err := json.Unmarshal(data, &payload); err != nil {
				return eris.Wrapf(err, "ingest: parse %s", path)
			}

			report, err := ing.Ingest(ctx, payload)
			if err != nil {
				return eris.Wrapf(err, "ingest: %s", path)
			}

			zap.L().Info("ingested crawl result",
				zap.String("file", path),
				zap.String("keyword", payload.Keyword),
				zap.Int("listings", report.Listings),
				zap.Int("variants", report.Variants),
				zap.Int("samples", report.SamplesAppended),
				zap.Int("skipped", report.Skipped),
			)
			totalVariants += report.Variants
			totalSamples += report.SamplesAppended
		}

		zap.L().Info("ingest complete",
			zap.Int("files", len(args)),
			zap.Int("variants", totalVariants),
			zap.Int("samples", totalSamples),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "catalog source tag (e.g. test), defaults from config")
	rootCmd.AddCommand(ingestCmd)
}

package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/randunun/bom-pricer/internal/config"
	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/report"
)

var (
	priceFile   string
	priceUser   string
	priceFormat string
	priceOut    string
	priceRates  string
)

var priceCmd = &cobra.Command{
	Use:   "price [bom text]",
	Short: "Price a BOM from a file, stdin, or an inline argument",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readBOMText(args)
		if err != nil {
			return err
		}

		if priceRates != "" {
			rates, err := config.LoadRatesFile(priceRates)
			if err != nil {
				return err
			}
			for code, rate := range rates {
				cfg.FX.Rates[code] = rate
			}
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, err := newPricer(st).PriceBOM(ctx, priceUser, text)
		if err != nil {
			return err
		}

		zap.L().Info("priced BOM",
			zap.Int("lines", len(result.Items)),
			zap.Float64("total_usd", result.TotalUSD),
			zap.Bool("truncated", result.Truncated),
		)

		out := cmd.OutOrStdout()
		if priceOut != "" {
			f, err := os.Create(priceOut)
			if err != nil {
				return eris.Wrap(err, "price: create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		return writeResult(out, result, priceFormat)
	},
}

func readBOMText(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if priceFile != "" {
		data, err := os.ReadFile(priceFile)
		if err != nil {
			return "", eris.Wrap(err, "price: read BOM file")
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", eris.Wrap(err, "price: read stdin")
	}
	return string(data), nil
}

func writeResult(w io.Writer, result *model.Result, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "price: encode result")
	case "csv":
		return report.WriteCSV(w, result)
	case "legacy-csv":
		return report.WriteLegacyCSV(w, result)
	case "xlsx":
		return report.WriteXLSX(w, result)
	}
	return eris.Errorf("unknown format: %s", format)
}

func init() {
	priceCmd.Flags().StringVarP(&priceFile, "file", "f", "", "BOM text file (defaults to stdin)")
	priceCmd.Flags().StringVarP(&priceUser, "user", "u", "", "user key for trust-aware ranking")
	priceCmd.Flags().StringVar(&priceFormat, "format", "json", "output format: json, csv, legacy-csv, xlsx")
	priceCmd.Flags().StringVarP(&priceOut, "out", "o", "", "write output to file instead of stdout")
	priceCmd.Flags().StringVar(&priceRates, "rates", "", "yaml file of currency rate overrides")
	rootCmd.AddCommand(priceCmd)
}

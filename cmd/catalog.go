package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/pricing"
	"github.com/randunun/bom-pricer/internal/scoring"
	"github.com/randunun/bom-pricer/internal/store"
)

var catalogLimit int

var catalogCmd = &cobra.Command{
	Use:   "catalog <spec-key>",
	Short: "Inspect ranked catalog candidates for a canonical spec key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		specKey := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		listings, err := st.ListCandidates(ctx, specKey)
		if err != nil {
			return err
		}
		if len(listings) == 0 {
			fmt.Printf("no in-stock candidates for %s\n", specKey)
			return nil
		}

		fx := newConverter()
		ranked := scoring.Rank(listings, nil, fx, cfg.Scoring.ToScoring(), time.Now().UTC())

		var unitPrices []float64
		for _, c := range ranked {
			if c.UnitPriceUSD != nil {
				unitPrices = append(unitPrices, *c.UnitPriceUSD)
			}
		}
		est := pricing.LikelyPrice(unitPrices)

		fmt.Printf("%s: %d candidates\n", specKey, len(ranked))
		if est.LikelyPrice != nil {
			fmt.Printf("likely unit price: $%.2f (%s over %d variants)\n\n",
				*est.LikelyPrice, est.Method, est.VariantCount)
		}

		limit := catalogLimit
		if limit <= 0 || limit > len(ranked) {
			limit = len(ranked)
		}
		for i, c := range ranked {
			if i >= limit {
				break
			}
			unit := "-"
			if c.UnitPriceUSD != nil {
				unit = fmt.Sprintf("$%.2f", *c.UnitPriceUSD)
			}
			marker := " "
			if c.Default {
				marker = "*"
			}
			fmt.Printf("%s %-8s %-24s %-20s unit %-8s score %.2f %s\n",
				marker, c.Brand, c.DisplayLabel, c.Seller, unit, c.FinalScore, c.Risk)
		}

		printTrend(cmd, st, ranked[0])
		return nil
	},
}

func printTrend(cmd *cobra.Command, st store.Store, top model.RankedCandidate) {
	samples, err := st.ListPriceHistory(cmd.Context(), top.VariantID, cfg.Ingest.Source, 0)
	if err != nil {
		zap.L().Warn("price history lookup failed",
			zap.String("variant_id", top.VariantID),
			zap.Error(err),
		)
		return
	}
	if len(samples) < 2 {
		return
	}
	trend := pricing.AnalyzeTrend(samples)
	fmt.Printf("\ntop candidate trend: %s %+.1f%% over %d samples\n",
		trend.Direction, trend.ChangePct, trend.Samples)
}

func init() {
	catalogCmd.Flags().IntVar(&catalogLimit, "limit", 10, "max candidates to display")
	rootCmd.AddCommand(catalogCmd)
}

package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/store"
)

var (
	queueStatus string
	queueLimit  int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the crawl keyword queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reqs, err := st.ListCrawlQueue(ctx, store.CrawlFilter{
			Status: model.CrawlStatus(queueStatus),
			Limit:  queueLimit,
		})
		if err != nil {
			return err
		}
		if len(reqs) == 0 {
			fmt.Println("queue is empty")
			return nil
		}

		for _, req := range reqs {
			retry := "-"
			if req.NextRetry != nil {
				retry = req.NextRetry.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-40s %-8s %-12s prio %d fails %d retry %s\n",
				req.Keyword, req.Type, req.Status, req.Priority, req.FailCount, retry)
		}
		return nil
	},
}

var queueMarkCmd = &cobra.Command{
	Use:   "mark <keyword> <status>",
	Short: "Set the status of a queued crawl keyword",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		keyword := args[0]
		status := model.CrawlStatus(args[1])

		switch status {
		case model.CrawlPending, model.CrawlInProgress, model.CrawlDone, model.CrawlSoftFail:
		default:
			return eris.Errorf("queue: unknown status %q", args[1])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var nextRetry *time.Time
		if status == model.CrawlSoftFail {
			t := time.Now().UTC().Add(time.Duration(cfg.Crawl.RetryBackoffSecs) * time.Second)
			nextRetry = &t
		}

		if err := st.UpdateCrawlStatus(ctx, keyword, status, nextRetry); err != nil {
			return err
		}

		zap.L().Info("crawl keyword updated",
			zap.String("keyword", keyword),
			zap.String("status", string(status)),
		)
		return nil
	},
}

func init() {
	queueCmd.Flags().StringVar(&queueStatus, "status", "", "filter by status (pending, in_progress, done, soft_fail)")
	queueCmd.Flags().IntVar(&queueLimit, "limit", 50, "max entries to display")
	queueCmd.AddCommand(queueMarkCmd)
	rootCmd.AddCommand(queueCmd)
}

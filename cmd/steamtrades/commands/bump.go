package commands

import (
	"context"
	"fmt"
	"log/slog"
	"steamtrades-client/internal/chrono"
	"steamtrades-client/lib/bumplog"
	"steamtrades-client/lib/scrapers/steamtrades"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(bumpCmd)
}

var bumpCmd = &cobra.Command{
	Use:   "bump [trade id...]",
	Short: "Bumps the given trades (or the configured ones) once, concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tradeIds := args
		if len(tradeIds) == 0 {
			tradeIds = app.config.Trades
		}
		if len(tradeIds) == 0 {
			return fmt.Errorf("no trades given and none configured")
		}

		store, db, err := openBumpLog()
		if err != nil {
			return err
		}
		defer db.Close()

		attempts := bumpAll(cmd.Context(), tradesClient(), store, app.time, tradeIds)

		t := newTable()
		t.AppendHeader(table.Row{"Trade", "Title", "Outcome", "Minutes left"})
		for _, attempt := range attempts {
			t.AppendRow(table.Row{attempt.TradeId, attempt.Title, attempt.Outcome, attempt.MinutesLeft})
		}
		t.Render()
		return nil
	},
}

// bumpAll bumps every trade in its own goroutine and records each attempt.
// The results are in the same order as tradeIds.
func bumpAll(ctx context.Context, client *steamtrades.Client, store bumplog.Store, clock chrono.TimeAPI, tradeIds []string) []bumplog.Attempt {
	attempts := make([]bumplog.Attempt, len(tradeIds))

	var wg sync.WaitGroup
	for i, tradeId := range tradeIds {
		wg.Add(1)
		go func(i int, tradeId string) {
			defer wg.Done()
			attempts[i] = bumpOne(ctx, client, store, clock, tradeId)
		}(i, tradeId)
	}
	wg.Wait()

	return attempts
}

func bumpOne(ctx context.Context, client *steamtrades.Client, store bumplog.Store, clock chrono.TimeAPI, tradeId string) bumplog.Attempt {
	info, err := client.GetTradeInfo(ctx, tradeId)
	if err != nil {
		return bumplog.NewAttempt(tradeId, "", false, err, clock.Now())
	}

	bumped, err := client.Bump(ctx, info)
	attempt := bumplog.NewAttempt(info.Id, info.Title, bumped, err, clock.Now())

	recorded, err := store.Record(ctx, attempt)
	if err != nil {
		slog.Warn("failed to record bump", "trade", info.Id, "err", err)
		return attempt
	}
	return recorded
}

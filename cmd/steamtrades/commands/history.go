package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyTrade string
	historyLimit int
)

func init() {
	historyCmd.Flags().StringVar(&historyTrade, "trade", "", "Only show the attempts of this trade id.")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "The number of attempts to show, 0 shows all of them.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--trade <id>] [-n <limit>]",
	Short: "Lists past bump attempts, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, db, err := openBumpLog()
		if err != nil {
			return err
		}
		defer db.Close()

		attempts, err := store.History(cmd.Context(), historyTrade, historyLimit)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Time", "Trade", "Title", "Outcome", "Minutes left", "Id"})
		for _, attempt := range attempts {
			t.AppendRow(table.Row{
				attempt.AttemptedAt.Format(time.DateTime),
				attempt.TradeId,
				attempt.Title,
				attempt.Outcome,
				attempt.MinutesLeft,
				attempt.Id,
			})
		}
		t.Render()
		return nil
	},
}

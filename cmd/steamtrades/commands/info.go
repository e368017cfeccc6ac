package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <trade id>...",
	Short: "Resolves trade ids or aliases to their canonical id and title.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := tradesClient()

		t := newTable()
		t.AppendHeader(table.Row{"Input", "Id", "Title"})
		for _, tradeId := range args {
			info, err := client.GetTradeInfo(cmd.Context(), tradeId)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{tradeId, info.Id, info.Title})
		}
		t.Render()
		return nil
	},
}

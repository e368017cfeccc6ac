package commands

import (
	"fmt"
	"log/slog"
	"slices"
	"steamtrades-client/lib/scrapers/steamgifts"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	giveawayType      string
	giveawayAll       bool
	giveawayNoPinned  bool
	giveawayConfigure bool
)

func init() {
	giveawaysCmd.Flags().StringVarP(&giveawayType, "type", "t", steamgifts.GiveawayMain, "The giveaway list to read (main, wishlist, recommended, group, new).")
	giveawaysCmd.Flags().BoolVar(&giveawayAll, "all", false, "Include giveaways the user lacks the points or level for.")
	giveawaysCmd.Flags().BoolVar(&giveawayNoPinned, "no-pinned", false, "Leave out the pinned giveaways.")

	joinCmd.Flags().StringVarP(&giveawayType, "type", "t", steamgifts.GiveawayMain, "The giveaway list to join from.")
	joinCmd.Flags().BoolVar(&giveawayConfigure, "configure", false, "Turn on the account's giveaway filters first.")

	rootCmd.AddCommand(giveawaysCmd)
	rootCmd.AddCommand(joinCmd)
}

var giveawaysCmd = &cobra.Command{
	Use:   "giveaways [--type <type>] [--all] [--no-pinned]",
	Short: "Lists steamgifts giveaways the user can enter.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := giftsClient()
		giveaways, err := client.Giveaways(cmd.Context(), giveawayType, giveawayAll, !giveawayNoPinned)
		if err != nil {
			return err
		}

		user := client.UserInfo()
		fmt.Printf("points: %d, level: %d\n", user.Points, user.Level)

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Name", "Copies", "Points", "Level"})
		for _, giveaway := range giveaways {
			t.AppendRow(table.Row{giveaway.Id, giveaway.Name, giveaway.Copies, giveaway.Points, giveaway.Level})
		}
		t.Render()
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join [--type <type>] [--configure] [giveaway id...]",
	Short: "Joins the given giveaways, or every available one when no ids are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := giftsClient()

		if giveawayConfigure {
			err := client.Configure(ctx)
			if err != nil {
				return err
			}
		}

		giveaways, err := client.Giveaways(ctx, giveawayType, false, true)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Name", "Points", "Joined"})
		for _, giveaway := range giveaways {
			if len(args) > 0 && !slices.Contains(args, giveaway.Id) {
				continue
			}
			joined, err := client.Join(ctx, giveaway)
			if err != nil {
				slog.Warn("failed to join giveaway", "id", giveaway.Id, "err", err)
				t.AppendRow(table.Row{giveaway.Id, giveaway.Name, giveaway.Points, err.Error()})
				continue
			}
			t.AppendRow(table.Row{giveaway.Id, giveaway.Name, giveaway.Points, joined})
		}
		t.Render()
		fmt.Printf("points left: %d\n", client.UserInfo().Points)
		return nil
	},
}

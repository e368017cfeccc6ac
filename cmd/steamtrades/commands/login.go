package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var loginSite string

func init() {
	loginCmd.Flags().StringVar(&loginSite, "site", "steamtrades", "The site to sign into, steamtrades or steamgifts.")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [--site steamtrades|steamgifts]",
	Short: "Signs into a site through steam OpenID using the session cookies.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var result map[string]any
		switch loginSite {
		case "steamtrades":
			res, err := tradesClient().Login(cmd.Context())
			if err != nil {
				return err
			}
			result = res.Map()
		case "steamgifts":
			res, err := giftsClient().Login(cmd.Context())
			if err != nil {
				return err
			}
			result = res.Map()
		default:
			return fmt.Errorf("unknown site %q", loginSite)
		}

		keys := make([]string, 0, len(result))
		for key := range result {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		t := newTable()
		t.AppendHeader(table.Row{"Field", "Value"})
		for _, key := range keys {
			t.AppendRow(table.Row{key, result[key]})
		}
		t.Render()
		return nil
	},
}

package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"steamtrades-client/internal/chrono"
	"steamtrades-client/lib/bumplog"
	"steamtrades-client/lib/restyutil"
	"steamtrades-client/lib/scrapers/steamgifts"
	"steamtrades-client/lib/scrapers/steamtrades"
	"steamtrades-client/lib/session"
	"steamtrades-client/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dumpDir    string
)

// app is filled in by the root command before any subcommand runs.
var app struct {
	config Config
	http   *resty.Client
	tel    telemetry.API
	time   chrono.TimeAPI
}

var rootCmd = &cobra.Command{
	Use:           "steamtrades",
	Short:         "steamtrades signs into steamtrades/steamgifts and keeps trades bumped.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		app.config = cfg
		app.tel = telemetry.SlogAPI{}
		app.time = chrono.StandardTime{}

		client, err := session.New(cfg.Session, app.tel)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if dumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(dumpDir)
			if err != nil {
				return err
			}
			restyutil.DumpMessages(client, cmd.Name(), output)
		}
		app.http = client
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "steamtrades.json5", "The config file to read.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-http", "", "Write every request and response to this directory.")
}

// ExecuteContext runs the command line and reports the error, if any, on stderr.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

func tradesClient() *steamtrades.Client {
	return steamtrades.NewClient(app.http, app.config.Steamtrades, app.tel)
}

func giftsClient() *steamgifts.Client {
	return steamgifts.NewClient(app.http, app.config.Steamgifts, app.tel)
}

func openBumpLog() (bumplog.Store, *sql.DB, error) {
	db, err := app.config.Database.OpenDB()
	if err != nil {
		return bumplog.Store{}, nil, fmt.Errorf("open bump log: %w", err)
	}
	return bumplog.NewStore(db, app.time), db, nil
}

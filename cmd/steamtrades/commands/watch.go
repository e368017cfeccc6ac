package commands

import (
	"context"
	"fmt"
	"log/slog"
	"steamtrades-client/internal/chrono"
	"steamtrades-client/lib/bumplog"
	"steamtrades-client/lib/scrapers/steamforum"
	"steamtrades-client/lib/scrapers/steamtrades"
	"steamtrades-client/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

const minWatchWait = 30 * time.Second

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [trade id...]",
	Short: "Keeps bumping trades, waiting out each trade's cooldown, until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
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

		telemetry.InstrumentPerfStats(ctx)

		w := newWatcher(
			tradesClient(),
			store,
			app.time,
			tradeIds,
			time.Duration(app.config.WatchIntervalMinutes)*time.Minute,
		)
		for {
			wait, err := w.round(ctx)
			if err != nil {
				return err
			}
			slog.Info("waiting for the next round", "wait", wait)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
		}
	},
}

// watcher schedules bumps for a fixed set of trades. Trades may be given by
// alias, attempts are always recorded under the canonical id so the watcher
// remembers which canonical id each alias resolved to.
type watcher struct {
	client   *steamtrades.Client
	store    bumplog.Store
	time     chrono.TimeAPI
	tradeIds []string
	interval time.Duration

	canonical map[string]string
}

func newWatcher(client *steamtrades.Client, store bumplog.Store, time chrono.TimeAPI, tradeIds []string, interval time.Duration) *watcher {
	return &watcher{
		client:    client,
		store:     store,
		time:      time,
		tradeIds:  tradeIds,
		interval:  interval,
		canonical: map[string]string{},
	}
}

// canonicalId returns the id attempts for tradeId are recorded under, which
// is tradeId itself until the trade has been fetched once.
func (w *watcher) canonicalId(tradeId string) string {
	if id, ok := w.canonical[tradeId]; ok {
		return id
	}
	return tradeId
}

// round bumps the trades that are due and returns how long to sleep before
// the next round. Only an unusable bump log stops the watch, site failures
// are logged and retried next round.
func (w *watcher) round(ctx context.Context) (time.Duration, error) {
	due, err := w.due(ctx, w.time.Now())
	if err != nil {
		return 0, err
	}

	if len(due) > 0 {
		needsLogin := false
		attempts := bumpAll(ctx, w.client, w.store, w.time, due)
		for i, attempt := range attempts {
			slog.Info("bump attempt", "trade", attempt.TradeId, "outcome", attempt.Outcome, "minutes_left", attempt.MinutesLeft)
			if attempt.TradeId != "" {
				w.canonical[due[i]] = attempt.TradeId
			}
			if attempt.Outcome == steamforum.KindLogin.String() {
				needsLogin = true
			}
		}

		if needsLogin {
			_, err := w.client.Login(ctx)
			if wait, ok := steamforum.RetryAfter(err); ok {
				return wait, nil
			}
			if err != nil {
				slog.Warn("failed to login, retrying next round", "err", err)
			} else {
				// the session is fresh, bump again without waiting out the interval
				return minWatchWait, nil
			}
		}
	}

	var readyAt []time.Time
	for _, tradeId := range w.tradeIds {
		ready, err := w.store.NextReady(ctx, w.canonicalId(tradeId))
		if err != nil {
			return 0, err
		}
		readyAt = append(readyAt, ready)
	}
	return nextWake(w.time.Now(), readyAt, w.interval), nil
}

// due filters out the trades whose last bump reported a cooldown that has
// not passed yet.
func (w *watcher) due(ctx context.Context, now time.Time) ([]string, error) {
	var due []string
	for _, tradeId := range w.tradeIds {
		ready, err := w.store.NextReady(ctx, w.canonicalId(tradeId))
		if err != nil {
			return nil, err
		}
		if ready.IsZero() || !ready.After(now) {
			due = append(due, tradeId)
		}
	}
	return due, nil
}

// nextWake sleeps until the earliest known cooldown ends, but never longer
// than interval nor shorter than minWatchWait.
func nextWake(now time.Time, readyAt []time.Time, interval time.Duration) time.Duration {
	wait := interval
	for _, ready := range readyAt {
		if ready.IsZero() {
			continue
		}
		if until := ready.Sub(now); until < wait {
			wait = until
		}
	}
	if wait < minWatchWait {
		wait = minWatchWait
	}
	return wait
}

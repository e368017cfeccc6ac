package commands

import (
	"errors"
	"os"
	"steamtrades-client/lib/bumplog"
	"steamtrades-client/lib/configutil"
	"steamtrades-client/lib/scrapers/steamgifts"
	"steamtrades-client/lib/scrapers/steamtrades"
	"steamtrades-client/lib/session"
)

type Config struct {
	Session     session.Options     `json:"session"`
	Steamtrades steamtrades.Options `json:"steamtrades"`
	Steamgifts  steamgifts.Options  `json:"steamgifts"`
	Database    bumplog.Database    `json:"database"`
	// Trades are bumped when no trade ids are given on the command line.
	Trades               []string `json:"trades"`
	WatchIntervalMinutes int      `json:"watch_interval_minutes"`
}

const (
	defaultDatabaseFile  = "bumps.db"
	defaultWatchInterval = 15
	steamCommunityUrl    = "https://steamcommunity.com"
)

// LoadConfig reads path (and its .local override) and then applies the
// STEAMTRADES_* environment variables. A missing file is not an error, every
// setting has a default.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	configutil.OverrideFromEnv(&cfg.Database.File, "STEAMTRADES_DATABASE_FILE")
	configutil.OverrideFromEnv(&cfg.Database.Url, "STEAMTRADES_DATABASE_URL")
	configutil.OverrideFromEnv(&cfg.Database.AuthToken, "STEAMTRADES_DATABASE_AUTH_TOKEN")

	// the steam session cookie is a secret, it usually lives in .env
	var steamLogin string
	configutil.OverrideFromEnv(&steamLogin, "STEAMTRADES_STEAM_LOGIN_SECURE")
	if steamLogin != "" {
		cfg.Session.Cookies = append(cfg.Session.Cookies, session.Cookie{
			Url:   steamCommunityUrl,
			Name:  "steamLoginSecure",
			Value: steamLogin,
		})
	}

	if cfg.Database.File == "" && cfg.Database.Url == "" {
		cfg.Database.File = defaultDatabaseFile
	}
	if cfg.WatchIntervalMinutes <= 0 {
		cfg.WatchIntervalMinutes = defaultWatchInterval
	}
	return cfg, nil
}

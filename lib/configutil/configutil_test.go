package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server  string   `json:"server"`
	Trades  []string `json:"trades"`
	Verbose bool     `json:"verbose"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// json5 allows comments
		server: "https://www.steamtrades.com",
		trades: ["abc12"],
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		trades: ["xyz34", "qwe56"],
		verbose: true,
	}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://www.steamtrades.com", cfg.Server)
	require.Equal(t, []string{"xyz34", "qwe56"}, cfg.Trades)
	require.True(t, cfg.Verbose)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "STEAMTRADES_TEST_COOKIE=from-dotenv\n")
	t.Setenv("STEAMTRADES_TEST_COOKIE", "")
	os.Unsetenv("STEAMTRADES_TEST_COOKIE")

	require.NoError(t, LoadDotenv(envPath, filepath.Join(dir, "missing.env")))

	value := "default"
	OverrideFromEnv(&value, "STEAMTRADES_TEST_COOKIE")
	require.Equal(t, "from-dotenv", value)

	OverrideFromEnv(&value, "STEAMTRADES_TEST_UNSET_KEY")
	require.Equal(t, "from-dotenv", value)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"steamtrades-client/cmd/steamtrades/commands"
	"steamtrades-client/lib/configutil"
	"steamtrades-client/lib/serviceutil"
	"steamtrades-client/lib/telemetry"
	"time"
)

func main() {
	telemetry.InitSlog(true)

	err := configutil.LoadDotenv()
	if err != nil {
		serviceutil.Fatal("failed to load .env", err)
	}

	ctx := serviceutil.SignalContext()
	tel, err := telemetry.SetupFromEnv(ctx, "steamtrades")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	shutdownErr := tel.Shutdown(shutdownCtx)
	cancel()
	if shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		os.Exit(1)
	}
}

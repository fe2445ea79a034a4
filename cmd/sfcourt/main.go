package main

import (
	"context"
	"log/slog"

	"sfcourt-backend/cmd/sfcourt/commands"
	"sfcourt-backend/lib/osutil"
	"sfcourt-backend/lib/telemetry"
)

func main() {
	ctx := osutil.SignalContext()

	telemetry.InitSlog(true)
	tel, err := telemetry.SetupFromEnv(ctx, "sfcourt")
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without it", "err", err)
	} else {
		defer tel.Shutdown(context.Background())
	}

	commands.ExecuteContext(ctx)
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lewtip97/fives-app/internal/app"
	"github.com/lewtip97/fives-app/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	runErr := a.Run(ctx)
	if runErr != nil {
		a.Log.Error("server exited", "error", runErr)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	a.Close(closeCtx)
	cancel()

	if runErr != nil {
		os.Exit(1)
	}
}

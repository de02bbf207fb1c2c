package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := http.Run(ctx); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

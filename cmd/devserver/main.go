// Command devserver runs the in-memory reference sync server for local
// development and manual testing. State lives in process memory only.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelesk/notevault/internal/devserver"
	"github.com/avelesk/notevault/internal/logger"
)

func main() {
	log := logger.New("devserver")

	addr := os.Getenv("NOTEVAULT_DEVSERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	signKey := []byte(os.Getenv("NOTEVAULT_DEVSERVER_KEY"))
	if len(signKey) == 0 {
		signKey = []byte("devserver-local-only")
		log.Warn().Msg("NOTEVAULT_DEVSERVER_KEY not set; using the built-in development key")
	}

	srv := devserver.New(signKey, log)

	token, err := srv.IssueToken("dev")
	if err != nil {
		log.Fatal().Err(err).Msg("issue development token")
	}
	log.Info().Str("token", token).Msg("development bearer token")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", addr).Msg("devserver listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("devserver failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

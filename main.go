package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tts-relay/config"
	"tts-relay/handlers"
	"tts-relay/logging"
	"tts-relay/models"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(os.Stdout, level)

	relay := handlers.NewRelay(cfg.Target(), &http.Client{}, logger.WithModule("relay"))
	router := handlers.NewRouter(relay, cfg.Port, logger.WithModule("http"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Watch && cfg.File != "" {
		if err := watchConfig(ctx, cfg.File, relay, logger.WithModule("config")); err != nil {
			logger.Warn("config reload disabled", logging.Error(err))
		}
	}

	srv := &http.Server{Addr: cfg.Addr(), Handler: router}

	printBanner(os.Stdout, cfg.Port, cfg.Target())

	// Graceful shutdown: on SIGINT/SIGTERM stop accepting and drain in-flight requests.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", logging.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	<-drained

	printShutdown(os.Stdout)
}

func watchConfig(ctx context.Context, path string, relay *handlers.Relay, logger *logging.Logger) error {
	w, err := config.NewWatcher(path)
	if err != nil {
		return err
	}
	w.OnChange = func(c *config.Config) {
		relay.SetTarget(c.Target())
		logger.Info("upstream reloaded",
			logging.String("file", path),
			logging.String("upstream", c.Target().Origin()))
	}
	w.OnError = func(err error) {
		logger.Warn("config reload failed, keeping previous upstream", logging.Error(err))
	}
	go w.Run(ctx)
	logger.Info("watching config", logging.String("file", path))
	return nil
}

var rule = strings.Repeat("=", 60)

func printBanner(w io.Writer, port int, target models.Upstream) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "TTS relay started")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Listening: http://localhost:%d\n", port)
	fmt.Fprintf(w, "Upstream:  %s\n", target.Origin())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to stop")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

func printShutdown(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "TTS relay stopped")
	fmt.Fprintln(w, rule)
}

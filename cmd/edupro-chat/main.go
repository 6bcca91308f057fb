package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EduProChat/internal/archive"
	"EduProChat/internal/backend"
	"EduProChat/internal/chatbot"
	"EduProChat/internal/config"
	"EduProChat/internal/server"
	"EduProChat/internal/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present (ignore error if not found).
	_ = godotenv.Load()

	cfg := config.Load()

	flag.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "OpenAI-compatible chat completions URL")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Model name")
	flag.BoolVar(&cfg.ProbeOnStart, "probe", cfg.ProbeOnStart, "Test the AI connection on startup")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address (serve mode)")
	flag.StringVar(&cfg.ArchivePath, "archive", cfg.ArchivePath, "SQLite exchange archive path (empty disables)")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [serve]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Without arguments an interactive chat starts on the terminal.")
		fmt.Fprintln(flag.CommandLine.Output(), "With \"serve\" the chat API for the website widget is served over HTTP.")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	mode := flag.Arg(0)
	if mode != "" && mode != "serve" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, mode == "serve"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, serve bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, meter, shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	client := backend.NewClient(backend.Options{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Logger:      logger,
		Tracer:      tracer,
		Meter:       meter,
	})

	opts := []chatbot.Option{chatbot.WithLogger(logger), chatbot.WithMeter(meter)}
	if cfg.ArchivePath != "" {
		store, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, chatbot.WithRecorder(store))
	}

	bot := chatbot.NewChatBot(client, *cfg, opts...)

	logger.Info("starting",
		"mode", modeName(serve),
		"endpoint", cfg.Endpoint,
		"model", client.Model(),
		"archive", cfg.ArchivePath)

	if cfg.ProbeOnStart {
		bot.Probe(ctx)
	}

	if serve {
		return serveHTTP(ctx, cfg, bot, logger)
	}
	// Ctrl-C stops the loop after the current line so the deferred closers run.
	return chatbot.NewREPL(bot, cfg.WhatsAppNumber).Run(ctx, os.Stdin, os.Stdout)
}

func modeName(serve bool) string {
	if serve {
		return "serve"
	}
	return "repl"
}

// serveHTTP runs until ctx is cancelled by SIGINT or SIGTERM.
func serveHTTP(ctx context.Context, cfg *config.Config, bot *chatbot.ChatBot, logger *slog.Logger) error {
	handler := server.NewHandler(bot, cfg.WhatsAppNumber, logger)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.RequestTimeout == 0 {
		srv.WriteTimeout = 0
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		fmt.Printf("EduPro chat API listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

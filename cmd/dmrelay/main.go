package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/dmrelay/internal/activity"
	"github.com/rickgao/dmrelay/internal/bus"
	"github.com/rickgao/dmrelay/internal/config"
	"github.com/rickgao/dmrelay/internal/database"
	"github.com/rickgao/dmrelay/internal/discord"
	"github.com/rickgao/dmrelay/internal/gateway"
	"github.com/rickgao/dmrelay/internal/logging"
	"github.com/rickgao/dmrelay/internal/panel"
	"github.com/rickgao/dmrelay/internal/relay"
	"github.com/rickgao/dmrelay/internal/server"
	"github.com/rickgao/dmrelay/internal/settings"
	"github.com/rickgao/dmrelay/internal/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config is expanded")
	headless := flag.Bool("headless", false, "run without the terminal panel")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "dmrelay: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dmrelay: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := setupLogging(cfg.Logging, *headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dmrelay: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, *headless, logger); err != nil {
		logger.Error("dmrelay failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

// setupLogging writes colored console logs in headless mode. With the panel
// up, logs go to a file since the terminal belongs to the TUI.
func setupLogging(cfg config.LoggingConfig, headless bool) (*slog.Logger, func(), error) {
	level := logging.ParseLevel(cfg.Level)

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if !headless {
		f, err := logging.OpenFile(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = func() { f.Close() }
	}

	logger := slog.New(logging.NewConsoleHandler(out, level, headless))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func run(cfg *config.Config, headless bool, logger *slog.Logger) error {
	logger.Info("starting dmrelay",
		"version", version.Version,
		"commit", version.Commit,
		"headless", headless,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	store, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	client := discord.NewClient(
		cfg.API.RestURL,
		store,
		discord.WithLogger(logger),
		discord.WithTimeout(cfg.API.Timeout),
		discord.WithRetries(cfg.API.MaxRetries, time.Second),
		discord.WithProxy(cfg.API.ProxyURL),
	)

	var recorder activity.Recorder = activity.Discard
	var writer *activity.Writer
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := activity.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		writer = activity.NewWriter(activity.WriterConfig{
			BatchSize:     cfg.Writer.BatchSize,
			FlushInterval: cfg.Writer.FlushInterval,
			BufferSize:    cfg.Writer.BufferSize,
		}, pool, logger)
		if err := writer.Start(ctx); err != nil {
			return err
		}
		defer stopWithTimeout(writer.Stop)
		recorder = writer
	}

	var publisher relay.Publisher
	if cfg.NATS.Enabled() {
		pub, err := bus.Connect(bus.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
			Name:    cfg.NATS.Name,
		}, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = pub
	}

	var ui relay.UI
	var notifier *panel.Notifier
	if headless {
		ui = relay.NewLogUI(logger)
	} else {
		notifier = panel.NewNotifier(256)
		ui = notifier
	}

	handler := relay.NewHandler(relay.HandlerConfig{
		Concurrency: cfg.Relay.Concurrency,
		Reaction:    cfg.Relay.Reaction,
		Timeout:     relay.DefaultHandlerConfig().Timeout,
	}, relay.Deps{
		REST:      client,
		Responder: relay.StaticResponder{Reply: cfg.Relay.Reply},
		Allowlist: store,
		Publisher: publisher,
		UI:        ui,
		Recorder:  recorder,
		Logger:    logger,
	})
	handler.Start(ctx)
	defer stopWithTimeout(handler.Stop)

	sink := relay.NewSink(ui, handler, recorder, logger)
	conn := gateway.New(gatewayConfig(cfg.Gateway), store, sink, gateway.WithLogger(logger))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return conn.Run(gctx)
	})

	if cfg.Server.Enabled() {
		srv := server.New(conn, client, server.WithLogger(logger), server.WithTimeout(cfg.API.Timeout))
		g.Go(func() error {
			return srv.Run(gctx, cfg.Server.Addr)
		})
	}

	if !headless {
		model := panel.New(conn, store, notifier, panel.Options{
			LogLines: cfg.Panel.LogLines,
			Version:  version.Version,
		})
		g.Go(func() error {
			return panel.Run(gctx, model)
		})
	}

	if store.Token() != "" {
		if err := conn.Connect(); err != nil {
			logger.Warn("auto-connect failed", "error", err)
		}
	} else {
		logger.Info("no bot token saved, waiting for configuration", "settings", store.Path())
	}

	err = g.Wait()
	logger.Info("shutting down...")

	if errors.Is(err, panel.ErrQuit) {
		return nil
	}
	return err
}

// gatewayConfig maps the file config onto the connection config.
func gatewayConfig(c config.GatewayConfig) gateway.Config {
	gc := gateway.DefaultConfig()
	gc.URL = c.URL
	gc.Intents = c.Intents
	gc.Properties = gateway.IdentifyProperties{
		OS:      c.OS,
		Browser: c.Browser,
		Device:  c.Device,
	}
	gc.ReconnectBase = c.ReconnectBaseDelay
	gc.ReconnectMax = c.ReconnectMaxDelay
	gc.HandshakeTimeout = c.HandshakeTimeout
	gc.WriteTimeout = c.WriteTimeout
	return gc
}

func stopWithTimeout(stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		slog.Warn("component stop failed", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/likey/auth"
	"github.com/danielhkuo/likey/cliparse"
	"github.com/danielhkuo/likey/conversation"
	"github.com/danielhkuo/likey/db"
	"github.com/danielhkuo/likey/gate"
	"github.com/danielhkuo/likey/kv"
	"github.com/danielhkuo/likey/ledger"
	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/router"
	"github.com/danielhkuo/likey/session"
	"github.com/danielhkuo/likey/settings"
	"github.com/danielhkuo/likey/telegram"
	"github.com/danielhkuo/likey/telemetry"
	"github.com/danielhkuo/likey/users"
	"github.com/danielhkuo/likey/worker"
)

// pollTimeout is the getUpdates long-poll window in seconds.
const pollTimeout = 30

func main() {
	// A missing .env is fine; the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}

func run(ctx context.Context, cfg cliparse.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, "likey", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Store ready", "type", cfg.DatabaseType)

	// Long polls hold the connection open for pollTimeout
	httpClient := &http.Client{Timeout: telegram.DefaultTimeout}
	if cfg.Mode == cliparse.ModePoll {
		httpClient.Timeout = telegram.DefaultTimeout + pollTimeout*time.Second
	}
	client := telegram.NewClient(telegram.Config{Token: cfg.BotToken, APIURL: cfg.APIURL, HTTPClient: httpClient})

	var fallback *models.ChannelRef
	if cfg.ForceChannel != "" {
		ch, err := models.ParseChannelRef(cfg.ForceChannel)
		if err != nil {
			return fmt.Errorf("force channel: %w", err)
		}
		fallback = &ch
	}

	admins := auth.NewAdminList(cfg.AdminIDs)
	if admins.Len() == 0 {
		slog.Warn("No admins configured; the required channel can only be set through FORCE_CHANNEL")
	} else {
		slog.Info("Admins loaded", "count", admins.Len())
	}

	l := ledger.New(store, ledger.WithRetries(cfg.VoteRetries))
	u := users.New(store, users.WithRetries(cfg.VoteRetries))
	controller := conversation.New(conversation.Deps{
		Ledger:   l,
		Sessions: session.New(store, cfg.SessionTTL),
		Gate:     gate.NewEvaluator(client, cfg.OracleTimeout),
		Policy:   gate.Policy{FailOpen: cfg.GateFailOpen},
		Settings: settings.New(store, fallback),
		Users:    u,
		Admins:   admins,
		Poster:   client,
	})
	proc := &worker.Processor{Events: controller, Gateway: client}

	deps := router.Deps{Ledger: l, Users: u}
	if cfg.Mode == cliparse.ModeWebhook {
		deps.Processor = proc
	}

	server := &http.Server{
		Handler:           router.NewRouter(deps),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port, "mode", cfg.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(closeCtx)
	})
	if cfg.Mode == cliparse.ModePoll {
		poller := &worker.Poller{
			Source:    client,
			Processor: proc,
			Workers:   cfg.Workers,
			Timeout:   pollTimeout,
			Attempts:  3,
		}
		g.Go(func() error { return poller.Run(ctx) })
	}

	return g.Wait()
}

func openStore(cfg cliparse.Config) (kv.Store, error) {
	switch cfg.DatabaseType {
	case cliparse.DatabaseMemory:
		return kv.NewMemory(), nil
	case cliparse.DatabaseBolt:
		return kv.OpenBolt(cfg.DatabaseURL)
	}

	dialect := kv.Dialect(cfg.DatabaseType)
	conn, err := db.Open(dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(conn, dialect); err != nil {
		conn.Close()
		return nil, err
	}
	return kv.NewSQL(conn, dialect), nil
}

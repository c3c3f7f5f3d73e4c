package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"listings_dashboard/internal/archive"
	"listings_dashboard/internal/bot"
	"listings_dashboard/internal/config"
	"listings_dashboard/internal/dashboard"
	"listings_dashboard/internal/gateway"
	"listings_dashboard/internal/logger"
	"listings_dashboard/internal/metrics"
	"listings_dashboard/internal/notify"
	"listings_dashboard/internal/novelty"
	"listings_dashboard/internal/poller"
	"listings_dashboard/internal/server"
	"listings_dashboard/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, poller and alert sinks",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	log := logger.New(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tracker := novelty.NewTracker(store, log.Named("novelty"))
	if err := tracker.Load(ctx); err != nil {
		return fmt.Errorf("load seen ids: %w", err)
	}
	session := dashboard.NewSession(tracker, cfg.PageSize)

	m := metrics.New()
	gw := gateway.New(&http.Client{}, cfg)
	hub := notify.NewHub(log.Named("ws"), m, func() any { return session.View(1, 0) })

	p := poller.New(gw, session, nil, log.Named("poller"))
	p.SetTickInterval(cfg.PollInterval)
	p.SetBroadcaster(hub)
	p.SetMetrics(m)

	notifiers := []notify.Notifier{hub}
	if d := notify.NewDiscord(cfg.DiscordBotToken, cfg.DiscordChannelID, log.Named("discord")); d != nil {
		notifiers = append(notifiers, d)
	}

	var tg *bot.Bot
	if cfg.TelegramBotToken != "" {
		tg, err = bot.New(cfg.TelegramBotToken, store, session, p, cfg, log.Named("telegram"))
		if err != nil {
			return err
		}
		notifiers = append(notifiers, tg)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, Telegram bot disabled")
	}

	multi := notify.NewMulti(log.Named("notify"), m, notifiers...)
	defer func() { _ = multi.Close() }()
	p.SetNotifier(multi)

	if cfg.ArchiveDatabaseURL != "" {
		arch, err := archive.NewPostgres(ctx, cfg.ArchiveDatabaseURL, log.Named("archive"))
		if err != nil {
			return err
		}
		defer func() { _ = arch.Close() }()
		p.SetArchiver(arch)
	}

	srv := server.New(cfg.HTTPAddr, server.Deps{
		Proxy:   gw,
		Session: session,
		Poller:  p,
		Hub:     hub,
		Metrics: m,
		Log:     log.Named("http"),
	})

	log.Info("starting dashboard",
		zap.String("addr", cfg.HTTPAddr),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("sinks", multi.Count()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if tg != nil {
		g.Go(func() error {
			tg.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("dashboard stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	if cfg.RedisAddr != "" {
		store, err := storage.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		log.Info("using redis storage", zap.String("addr", cfg.RedisAddr))
		return store, nil
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	log.Info("using sqlite storage", zap.String("path", cfg.DatabasePath))
	return store, nil
}

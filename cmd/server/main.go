package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/good-news-everyone/discount-monitoring/internal/config"
	"github.com/good-news-everyone/discount-monitoring/internal/handlers"
	"github.com/good-news-everyone/discount-monitoring/internal/logger"
	"github.com/good-news-everyone/discount-monitoring/internal/messenger"
	"github.com/good-news-everyone/discount-monitoring/internal/metrics"
	"github.com/good-news-everyone/discount-monitoring/internal/middleware"
	"github.com/good-news-everyone/discount-monitoring/internal/repo"
	"github.com/good-news-everyone/discount-monitoring/internal/scheduler"
	"github.com/good-news-everyone/discount-monitoring/internal/service"
	"github.com/good-news-everyone/discount-monitoring/internal/snapshot"
)

func main() {
	cfg := config.NewConfig()

	sugar, err := logger.New(cfg.LogLevel, cfg.LogLevel == "debug")
	if err != nil {
		panic(err)
	}
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		_ = sugar.Sync()
	}()

	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("invalid configuration", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	registry, err := buildRegistry(cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to configure sites", "error", err)
	}

	var channel messenger.Channel
	if cfg.BotToken != "" {
		channel = messenger.NewTelegramChannel(cfg.BotAPIURL, cfg.BotToken, cfg.FetchTimeout)
	} else {
		sugar.Warnw("BOT_TOKEN is empty, messages are only logged")
		channel = messenger.NewLogChannel(sugar)
	}

	m := metrics.New(cfg.MetricsEnabled)

	itemRepo := repo.NewItemRepository(gormDB)
	subRepo := repo.NewSubscriptionRepository(gormDB)
	subscriberRepo := repo.NewSubscriberRepository(gormDB)
	changeRepo := repo.NewChangeLogRepository(gormDB)
	messageRepo := repo.NewMessageRepository(gormDB)

	goneQueue := service.NewGoneQueue(cfg.GoneQueueSize, cfg.GoneDedupTTL)
	dispatcher := service.NewDispatcher(subRepo, subscriberRepo, messageRepo, channel, m, sugar)
	engine := service.NewRecheckEngine(itemRepo, changeRepo, registry, dispatcher, goneQueue, m, sugar, service.EngineConfig{
		Workers:      cfg.Workers,
		FetchTimeout: cfg.FetchTimeout,
	})
	lifecycle := service.NewLifecycleService(itemRepo, subRepo, subscriberRepo, messageRepo, registry, cfg.FetchTimeout, sugar)
	reclaimer := service.NewReclaimer(itemRepo, registry, dispatcher, goneQueue, m, sugar, cfg.FetchTimeout)

	go reclaimer.Run(ctx)

	sched := scheduler.New(engine, reclaimer, scheduler.Config{
		RecheckInterval: cfg.RecheckInterval,
		ReclaimInterval: cfg.ReclaimInterval,
		ReclaimAt:       cfg.ReclaimAt,
	}, sugar)
	sched.Start(ctx)

	h := handlers.NewHandler(lifecycle, dispatcher, registry, m, sugar, cfg)
	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow("Starting server",
		"addr", cfg.BaseURL,
		"sites", registry.Hosts(),
		"workers", cfg.Workers,
		"recheck_interval", cfg.RecheckInterval,
		"metrics", cfg.MetricsEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		sugar.Errorw("Server failed", "error", err)
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown", "error", err)
	}
	sched.Stop()
	sugar.Infow("Server stopped")
}

// buildRegistry регистрирует JSON-LD адаптер на каждый сайт из SITES.
// У каждого сайта свой лимитер запросов, прокси общие.
func buildRegistry(cfg *config.Config, log *zap.SugaredLogger) (*snapshot.Registry, error) {
	hosts, err := cfg.SiteHosts()
	if err != nil {
		return nil, err
	}

	var proxies snapshot.ProxyPicker = snapshot.DirectProxy{}
	if len(cfg.Proxies) > 0 {
		rr, err := snapshot.NewRoundRobinProxy(cfg.Proxies)
		if err != nil {
			return nil, err
		}
		log.Infow("outbound proxies configured", "count", rr.Len())
		proxies = rr
	}

	gone := cfg.GoneSiteTags()
	tags := make([]string, 0, len(hosts))
	for tag := range hosts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	registry := snapshot.NewRegistry()
	for _, tag := range tags {
		src := snapshot.NewJSONLDSource(cfg.FetchTimeout, proxies, snapshot.WithLimiter(snapshot.NewLimiter(cfg.FetchRPS)))
		registry.Register(snapshot.Adapter{
			Tag:         tag,
			Source:      src,
			Hosts:       hosts[tag],
			ReportsGone: gone[tag],
		})
	}
	return registry, nil
}

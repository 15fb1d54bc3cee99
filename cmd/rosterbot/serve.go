package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/internal/core/services"
	httphandlers "rosterbot/internal/handlers/http"
	"rosterbot/internal/infrastructure/monitoring"
	"rosterbot/internal/infrastructure/repositories"
	"rosterbot/internal/infrastructure/vk"
	"rosterbot/pkg/circuitbreaker"
	"rosterbot/pkg/config"
	"rosterbot/pkg/retry"
	"rosterbot/pkg/tracing"
	"rosterbot/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: webhook server, dispatcher and session sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateTransport(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg)
	defer log.Sync()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "rosterbot",
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())

	var (
		metrics  ports.Metrics = ports.NopMetrics{}
		drops    httphandlers.QueueDropRecorder
		gatherer prometheus.Gatherer
	)
	if cfg.Monitoring.PrometheusEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector := monitoring.NewPrometheusCollector(registry)
		metrics, drops, gatherer = collector, collector, registry
	}

	factory, err := repositories.NewRepositoryFactory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer factory.Close()

	lease, err := claimInstanceLease(ctx, factory)
	if err != nil {
		return err
	}
	if lease != nil {
		defer lease.Release(context.Background())
	}

	roster := services.NewRosterService(factory.SnapshotStore(), log, services.WithRosterMetrics(metrics))
	if err := roster.Load(ctx); err != nil {
		return err
	}
	log.Infow("roster loaded",
		"driver", factory.Driver(),
		"juniors_online", len(roster.Juniors()),
		"seniors", len(roster.Seniors()),
		"management", len(roster.Management()),
	)

	vkClient := vk.NewClient(vk.Config{
		APIURL:            cfg.VK.APIURL,
		Token:             cfg.VK.Token,
		APIVersion:        cfg.VK.APIVersion,
		RequestsPerSecond: cfg.VK.RequestsPerSecond,
		Timeout:           cfg.VK.Timeout,
		Retry:             retry.DefaultConfig(),
		Breaker:           circuitbreaker.DefaultConfig(),
	}, log)
	log.Infow("vk api client ready",
		"group_id", cfg.VK.GroupID,
		"api_version", cfg.VK.APIVersion,
		"token", utils.Mask(cfg.VK.Token, 4),
	)

	profiles := services.NewProfileLookup(vkClient, cfg.Bot.ProfileCacheTTL, cfg.Bot.LookupTimeout, metrics, log)
	defer profiles.Close()
	targets := services.NewTargetResolver(vkClient, cfg.Bot.ProfileHosts, cfg.Bot.LookupTimeout, metrics, log)
	tracker := services.NewConversationTracker(cfg.Bot.PromptTTL, nil)

	sweeperCfg := services.SweeperConfig{
		SessionTTL: cfg.Bot.SessionTTL,
		Interval:   cfg.Bot.SweepInterval,
		Metrics:    metrics,
	}
	dispatcher := services.NewDispatcher(services.DispatcherDeps{
		Roster:    roster,
		Tracker:   tracker,
		Targets:   targets,
		Profiles:  profiles,
		Messenger: vkClient,
		Sweeper:   services.NewSessionSweeper(roster, tracker, sweeperCfg, log),
		Metrics:   metrics,
		Logger:    log,
	}, cfg.Bot.SweepEveryEvents)

	sweeperCfg.Lock = dispatcher.Locker()
	sweeper := services.NewSessionSweeper(roster, tracker, sweeperCfg, log)

	queue := make(chan domain.InboundEvent, cfg.Bot.QueueSize)
	callback := httphandlers.NewCallbackHandler(httphandlers.CallbackConfig{
		GroupID:      cfg.VK.GroupID,
		Confirmation: cfg.VK.Confirmation,
		Secret:       cfg.VK.Secret,
	}, queue, drops, log)

	health := monitoring.NewHealthChecker()
	health.AddCheck("storage", factory.HealthCheck, 2*time.Second)
	health.AddCheck("vk_api", vkClient.Healthy, time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httphandlers.NewRouter(cfg, callback, health, gatherer, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if cfg.Backup.Enabled {
		scheduler, err := newBackupScheduler(cfg, factory.SnapshotStore(), dispatcher.Locker(), log)
		if err != nil {
			cancelRun()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Start(runCtx)
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Start(runCtx)
	}()
	go func() {
		defer wg.Done()
		dispatcher.Run(runCtx, queue)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting webhook server", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err = <-serverErr:
		log.Errorw("server failed", "error", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case <-leaseLost(lease):
		err = errLeaseLost
		log.Errorw("instance lease lost, stopping", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Errorw("error during server shutdown", "error", shutdownErr)
		_ = srv.Close()
	}

	drainQueue(shutdownCtx, dispatcher, queue)
	cancelRun()
	sweeper.Stop()
	wg.Wait()

	log.Info("rosterbot stopped")
	return err
}

// drainQueue hands events still buffered after the server stopped to the
// dispatcher until the queue is empty or the shutdown deadline passes.
func drainQueue(ctx context.Context, handler ports.EventHandler, queue chan domain.InboundEvent) {
	for {
		select {
		case ev := <-queue:
			_ = handler.HandleEvent(ctx, ev)
		case <-ctx.Done():
			return
		default:
			return
		}
	}
}

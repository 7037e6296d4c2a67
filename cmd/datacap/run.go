package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/osa911/datacap/internal/config"
	"github.com/osa911/datacap/internal/counter"
	"github.com/osa911/datacap/internal/daemon"
	"github.com/osa911/datacap/internal/db"
	"github.com/osa911/datacap/internal/enforcer"
	"github.com/osa911/datacap/internal/metrics"
	"github.com/osa911/datacap/internal/notification"
	"github.com/osa911/datacap/internal/repository"
	"github.com/osa911/datacap/internal/server"
	"github.com/osa911/datacap/internal/service"
	"github.com/osa911/datacap/internal/sinkhole"
	"github.com/osa911/datacap/internal/tasks"
	"github.com/osa911/datacap/internal/telemetry"
	"github.com/osa911/datacap/internal/version"
)

const serviceName = "datacap"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enforcement daemon in the foreground",
	Long: `Run the daemon: collect interface counters, keep usage up to date, block
traffic through the sinkhole when the quota is exhausted or expired and serve
the local control API.

Send SIGHUP (or run 'datacap boot') to restart the enforcement engine.`,
	Run: func(cmd *cobra.Command, args []string) {
		pidFile, _ := cmd.Flags().GetString("pid-file")
		if err := runDaemon(cfg, pidFile); err != nil {
			logger.Error("Daemon failed: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().String("pid-file", daemon.DefaultPidFile, "Single-instance lock file")
}

func runDaemon(cfg *config.Config, pidFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	singleton, err := daemon.NewSingletonManager(pidFile)
	if err != nil {
		return err
	}
	if err := singleton.AcquireLock(); err != nil {
		return err
	}
	defer singleton.ReleaseLock()

	logger.Info("Starting datacap %s (sinkhole mode %s)", version.Info(), cfg.SinkholeMode)

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, serviceName, version.Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
	}()

	database, err := db.Open(ctx, db.Config{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer database.Close()

	quotas := repository.NewQuotaRepository(database.DB)
	usages := repository.NewUsageRepository(database.DB)
	traffic := repository.NewTrafficRepository(database.DB)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(serviceName, reg)

	hole, err := sinkhole.New(cfg.SinkholeMode, sinkhole.Config{
		Name:    cfg.SinkholeName,
		Address: cfg.SinkholeAddress,
		MTU:     cfg.SinkholeMTU,
	})
	if err != nil {
		return err
	}
	if err := m.RegisterDroppedPackets(hole.DroppedPackets); err != nil {
		logger.Warn("Failed to register sinkhole metrics: %v", err)
	}

	collector := tasks.NewTrafficCollector(traffic, tasks.CollectorConfig{
		Interfaces: cfg.Interfaces,
		Interval:   cfg.BucketInterval,
		Width:      cfg.BucketWidth,
	})
	collector.Start()
	defer collector.Stop()

	cleanup := tasks.NewBucketCleanup(traffic, cfg.Retention())
	cleanup.Start()
	defer cleanup.Stop()

	sinks := []notification.Sink{notification.NewLogSink()}
	telegram := service.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramChatID)
	if telegram.Enabled() {
		sinks = append(sinks, telegram)
		logger.Info("Telegram notifications enabled")
	}
	center := notification.NewCenter(sinks...)

	engine := enforcer.NewEngine(enforcer.Dependencies{
		Quotas:      quotas,
		Usages:      usages,
		Accumulator: counter.NewAccumulator(counter.NewBucketSource(traffic, cfg.BucketWidth), m),
		Controller:  enforcer.NewController(hole, m),
		Notifier:    center,
		Recorder:    m,
	}, cfg.PollInterval)
	supervisor := enforcer.NewSupervisor(engine)

	commands := service.NewCommandService(quotas, usages, m)
	purchases := service.NewPurchaseService(commands, service.NewMMCLIDialer(cfg.USSDModem), cfg.PurchaseSettleDelay)

	srv := server.NewServer(server.Config{
		Addr:        cfg.ControlAddr,
		RPS:         cfg.APIRPS,
		Burst:       cfg.APIBurst,
		ServiceName: serviceName,
		Release:     cfg.Environment == "production",
	}, server.Dependencies{
		DB:        database.DB,
		Status:    engine,
		Engine:    supervisor,
		Commands:  commands,
		Purchases: purchases,
		Observer:  m,
		Gatherer:  reg,
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gctx := errgroup.WithContext(ctx)

	supervisor.Start(gctx)
	defer supervisor.Stop()

	g.Go(func() error { return center.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info("Received SIGHUP, restarting enforcement engine")
				supervisor.Restart()
			}
		}
	})

	if daemon.IsService() {
		logger.Info("Running under the system service manager")
	}
	logger.Info("datacap is running. Press Ctrl+C to stop.")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("daemon stopped: %w", err)
	}
	logger.Info("Shutting down...")
	return nil
}

package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "arenacore/internal/adapter/http"
	"arenacore/internal/adapter/inference/hertzclient"
	metricsinmem "arenacore/internal/adapter/metrics/inmemory"
	gormrepo "arenacore/internal/adapter/repo/gorm"
	memrepo "arenacore/internal/adapter/repo/memory"
	"arenacore/internal/adapter/world/sandbox"
	"arenacore/internal/app/manager"
	"arenacore/internal/app/ports"
	"arenacore/internal/app/telemetry"
	"arenacore/internal/app/tick"
	"arenacore/internal/config"
	"arenacore/internal/platform/logger"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

const (
	shutdownTimeout    = 10 * time.Second
	memoryDecisionsCap = 1000
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "YAML configuration file",
	}
	ticksFlag = cli.IntFlag{
		Name:  "ticks",
		Usage: "Stop after this many ticks (0 runs until the match ends)",
	}
	addrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "Ops HTTP listen address, overrides http.addr",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed for spawn points and scripted agents (0 uses the clock)",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "arena"
	app.Usage = "run a combat arena match driven by scripted and inference agents"
	app.Flags = []cli.Flag{configFileFlag, ticksFlag, addrFlag, seedFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFileFlag.Name))
	if err != nil {
		return err
	}
	if addr := c.String(addrFlag.Name); addr != "" {
		cfg.HTTP.Addr = addr
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decisions, closeRepo, err := buildDecisionLog(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	sink := telemetry.NewAsyncSink(decisions, telemetry.Config{
		BufferSize:    cfg.Telemetry.BufferSize,
		BatchSize:     cfg.Telemetry.BatchSize,
		FlushInterval: cfg.Telemetry.FlushInterval,
	}, log)
	recorder := metricsinmem.NewRecorder()

	gen, err := hertzclient.New(hertzclient.Config{
		BaseURL:           cfg.Inference.ServiceURL,
		Timeout:           cfg.Inference.Timeout,
		RequestsPerSecond: cfg.Inference.RequestsPerSecond,
		MaxInFlight:       cfg.Inference.MaxInFlight,
	}, log)
	if err != nil {
		return err
	}

	seed := c.Int64(seedFlag.Name)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	agents := manager.New(log)
	m := &match{
		world:        sandbox.New(sandboxConfig(cfg), agents),
		agents:       agents,
		runner:       tick.NewRunner(agents, tick.Config{Deadline: cfg.Tick.Deadline, MaxParallel: cfg.Tick.MaxParallel}, tick.WithSink(sink), tick.WithMetrics(recorder), tick.WithLogger(log)),
		factory:      newAgentFactory(cfg, gen, log, seed),
		rng:          rand.New(rand.NewSource(seed)),
		dt:           time.Second / time.Duration(cfg.Tick.RateHz),
		respawnDelay: cfg.Arena.RespawnDelay,
		log:          log.WithField("component", "match"),
	}
	if err := m.populate(ctx, cfg.Agents); err != nil {
		return err
	}

	h := httpadapter.Handler{Agents: agents, Decisions: decisions, KPI: recorder}
	s := server.Default(server.WithHostPorts(cfg.HTTP.Addr))
	h.RegisterRoutes(s)
	go func() {
		if err := s.Run(); err != nil {
			log.WithError(err).Error("ops server stopped")
		}
	}()

	log.WithFields(logrus.Fields{"agents": agents.Count(), "addr": cfg.HTTP.Addr, "rate_hz": cfg.Tick.RateHz, "seed": seed}).Info("arena match starting")
	m.run(ctx, c.Int(ticksFlag.Name))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := agents.ShutdownAll(shutdownCtx); err != nil {
		log.WithError(err).Warn("agent shutdown incomplete")
	}
	if err := sink.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("telemetry flush incomplete")
	}
	log.WithField("telemetry", sink.Counters()).Info("telemetry closed")
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("ops server shutdown failed")
	}
	return nil
}

// buildDecisionLog selects Postgres when a DSN is configured and migrates it,
// otherwise it keeps a bounded in-memory log.
func buildDecisionLog(ctx context.Context, cfg config.TelemetryConfig, log logrus.FieldLogger) (ports.DecisionLogRepository, func(), error) {
	if cfg.DSN == "" {
		log.Info("decision log: in-memory")
		return memrepo.NewDecisionLogRepo(memrepo.NewStore(memoryDecisionsCap)), func() {}, nil
	}
	db, err := gormrepo.OpenPostgres(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := gormrepo.ApplyMigrations(ctx, db, gormrepo.Migrations()); err != nil {
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	log.Info("decision log: postgres")
	return gormrepo.NewDecisionLogRepo(db), closeFn, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairRouter/internal/config"
	"pairRouter/internal/registry"
	"pairRouter/internal/router"
	"pairRouter/internal/simulate"
	"pairRouter/internal/storage"
	"pairRouter/internal/storage/postgres"
	"pairRouter/internal/token"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	scenario, err := simulate.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jsonl := storage.NewJsonlStorage(cfg.Out)
	if err := jsonl.Reset(); err != nil {
		return err
	}
	sinks := []storage.Sink{jsonl}
	var pg *postgres.Store
	if cfg.PGDSN != "" {
		pg, err = postgres.NewStore(ctx, cfg.PGDSN, cfg.RunName)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if seq, ok, err := pg.LastSeq(ctx); err != nil {
			return fmt.Errorf("read run state: %w", err)
		} else if ok {
			logger.Warn("run already recorded, stored sequence numbers are kept",
				zap.String("run", cfg.RunName),
				zap.Uint64("last_seq", seq),
			)
		}
		sinks = append(sinks, pg)
	}

	regCfg := registry.DefaultConfig()
	regCfg.StableFeeBps = cfg.StableFeeBps
	regCfg.VolatileFeeBps = cfg.VolatileFeeBps
	routerCfg := router.DefaultConfig()
	routerCfg.StableSkimBps = cfg.StableSkimBps
	routerCfg.VolatileSkimBps = cfg.VolatileSkimBps

	var directory common.Address
	if cfg.BribeRegistry != "" {
		directory = common.HexToAddress(cfg.BribeRegistry)
	} else {
		directory = token.DeriveAddress("contract", "bribes")
	}

	runner, err := simulate.NewRunner(scenario, simulate.Options{
		StartTime:      cfg.StartTime,
		Registry:       regCfg,
		Router:         routerCfg,
		BribeDirectory: directory,
		Sinks:          sinks,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.Int("steps", len(scenario.Steps)),
		zap.Uint64("start_time", cfg.StartTime),
		zap.String("out", cfg.Out),
		zap.String("snapshot", cfg.Snapshot),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	results, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	snap := runner.Snapshot()
	if err := storage.NewSnapshotFile(cfg.Snapshot).Save(snap); err != nil {
		return err
	}
	if pg != nil {
		if err := pg.UpsertPools(ctx, snap.Pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
	}

	logger.Info("simulate done",
		zap.Int("steps", len(results)),
		zap.Int("pools", len(snap.Pools)),
		zap.Uint64("timestamp", snap.Timestamp),
	)
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

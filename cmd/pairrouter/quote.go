package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairRouter/internal/chain"
	"pairRouter/internal/config"
	"pairRouter/internal/model"
	"pairRouter/internal/report"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	amountIn, err := uint256.FromDecimal(cfg.AmountIn)
	if err != nil {
		return fmt.Errorf("invalid amount-in: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reader := chain.NewPairReader(chainClient, chain.Fees{
		StableBps:   cfg.StableFeeBps,
		VolatileBps: cfg.VolatileFeeBps,
	}, chain.ReaderOptions{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBackoff,
	}, logger)

	block := cfg.Block
	if block == 0 {
		if block, err = chainClient.LatestBlockNumber(ctx); err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
	}
	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	blockTime, err := chainClient.BlockTimestamp(ctx, block)
	if err != nil {
		return fmt.Errorf("block %d timestamp: %w", block, err)
	}
	logger.Info("quote start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("block", block),
		zap.Uint64("block_time", blockTime),
		zap.Int("pairs", len(cfg.Pairs)),
		zap.String("amount_in", amountIn.Dec()),
	)

	out := cmd.OutOrStdout()
	encoder := json.NewEncoder(out)
	symbols := make(map[common.Address]string)
	symbol := func(addr common.Address) string {
		if s, ok := symbols[addr]; ok {
			return s
		}
		s := addr.Hex()
		if meta, err := reader.ReadToken(ctx, addr); err == nil && meta.Symbol != "" {
			s = meta.Symbol
		} else if err != nil {
			logger.Debug("token metadata unavailable", zap.String("token", addr.Hex()), zap.Error(err))
		}
		symbols[addr] = s
		return s
	}

	for _, pq := range cfg.Pairs {
		pool, err := reader.ReadPool(ctx, pq.Pool, block)
		if err != nil {
			return fmt.Errorf("read pool %s: %w", pq.Pool.Hex(), err)
		}
		if pq.TokenIn != pool.Token0 && pq.TokenIn != pool.Token1 {
			return fmt.Errorf("token %s is not in pool %s", pq.TokenIn.Hex(), pq.Pool.Hex())
		}
		quote, err := report.Describe(pool, pq.TokenIn, amountIn)
		if err != nil {
			return fmt.Errorf("quote pool %s: %w", pq.Pool.Hex(), err)
		}
		quote.Block, quote.Timestamp = block, blockTime

		if cfg.JSON {
			if err := encoder.Encode(quote); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "block %d (%d) %s %s: %s %s -> %s %s (spot %s, exec %s, impact %s%%)\n",
			quote.Block, quote.Timestamp,
			quote.Pool,
			model.CurveOf(quote.Stable),
			quote.AmountIn, symbol(pq.TokenIn),
			quote.AmountOut, symbol(common.HexToAddress(quote.TokenOut)),
			quote.SpotPrice, quote.ExecutionPrice, quote.PriceImpactPct,
		)
	}
	return nil
}

package mhchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liftedinit/mhchain/internal/config"
	"github.com/liftedinit/mhchain/internal/node"
	"github.com/liftedinit/mhchain/internal/output"
	"github.com/liftedinit/mhchain/internal/pow"
)

var MineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine blocks onto the stored chain",
	Long:  `Load the stored chain (or start from genesis), mine blocks onto it and save it back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mineConfig := config.LoadMineConfigFromCLI()
		if err := mineConfig.Validate(); err != nil {
			return fmt.Errorf("invalid Mine configuration: %w", err)
		}
		storeConfig := config.LoadStoreConfigFromCLI()
		if err := storeConfig.Validate(); err != nil {
			return fmt.Errorf("invalid Store configuration: %w", err)
		}
		slog.Debug("Command-line arguments", "mineConfig", mineConfig, "store", storeConfig.Backend)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		handleInterrupt(cancel)

		return mine(ctx, cmd, mineConfig, storeConfig)
	},
}

func init() {
	MineCmd.Flags().UintP("blocks", "n", 1, "Number of blocks to mine")
	if err := viper.BindPFlags(MineCmd.Flags()); err != nil {
		slog.Error("Failed to bind MineCmd flags", "error", err)
	}
}

func mine(ctx context.Context, cmd *cobra.Command, cfg config.MineConfig, storeCfg config.StoreConfig) error {
	p, err := pow.New(cfg.Difficulty)
	if err != nil {
		return err
	}

	store, _, err := openStore(ctx, storeCfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	n, err := node.New(p, node.Options{ID: cfg.NodeID, Store: store})
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	defer n.Close()

	if tips, ok := store.(output.TipReader); ok {
		latest, err := tips.GetLatestBlock(ctx)
		if err != nil {
			return err
		}
		if latest != nil {
			slog.Info("Resuming from block", "height", latest.Index)
		}
	}

	if _, err := n.Load(ctx); err != nil {
		if !errors.Is(err, output.ErrNoChain) {
			return err
		}
		slog.Info("No stored chain, starting from genesis")
	}

	slog.Info("Mining blocks", "count", cfg.Blocks, "from", n.Ledger.Length()+1, "difficulty", p.Prefix)
	bar := progressbar.NewOptions64(
		int64(cfg.Blocks),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("Mining blocks..."),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	if err := bar.RenderBlank(); err != nil {
		return fmt.Errorf("failed to render progress bar: %w", err)
	}

	var mined uint
	for ; mined < cfg.Blocks; mined++ {
		block, err := n.Mine(ctx)
		if err != nil {
			slog.Warn("Mining stopped", "mined", mined, "error", err)
			break
		}
		slog.Debug("Block mined", "index", block.Index, "proof", block.Proof)
		if err := bar.Add(1); err != nil {
			return fmt.Errorf("failed to update progress bar: %w", err)
		}
	}
	if err := bar.Finish(); err != nil {
		return fmt.Errorf("failed to finish progress bar: %w", err)
	}

	// Blocks mined before an interrupt are kept.
	if err := n.Save(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if mined < cfg.Blocks {
		return fmt.Errorf("mined %d of %d blocks", mined, cfg.Blocks)
	}
	return nil
}

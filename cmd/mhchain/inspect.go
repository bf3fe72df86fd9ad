package mhchain

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liftedinit/mhchain/internal/config"
	"github.com/liftedinit/mhchain/internal/hasher"
	"github.com/liftedinit/mhchain/internal/ledger"
	"github.com/liftedinit/mhchain/internal/models"
	"github.com/liftedinit/mhchain/internal/pow"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print and verify the stored chain",
	Long:  `Print the stored chain as a table and check every link and proof.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		difficulty := viper.GetString("difficulty")
		p, err := pow.New(difficulty)
		if err != nil {
			return err
		}
		storeConfig := config.LoadStoreConfigFromCLI()

		store, _, err := openStore(cmd.Context(), storeConfig)
		if err != nil {
			return err
		}
		defer closeStore(store)

		chain, err := store.LoadChain(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load chain: %w", err)
		}

		table, err := chainTable(chain)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)

		if err := ledger.New(p).ValidateChain(chain); err != nil {
			return fmt.Errorf("chain verification failed: %w", err)
		}
		slog.Info("Chain verified", "length", len(chain), "tip", hasher.Hash(chain[len(chain)-1]))
		return nil
	},
}

func chainTable(chain models.Chain) (string, error) {
	data := pterm.TableData{{"Index", "Timestamp", "Transactions", "Proof", "Previous hash", "Hash"}}
	for _, block := range chain {
		data = append(data, []string{
			strconv.FormatInt(block.Index, 10),
			blockTime(block.Timestamp).UTC().Format(time.RFC3339),
			strconv.Itoa(len(block.Transactions)),
			strconv.FormatInt(block.Proof, 10),
			block.PreviousHash,
			hasher.Hash(block),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", fmt.Errorf("failed to render chain table: %w", err)
	}
	return table, nil
}

func blockTime(timestamp float64) time.Time {
	return time.Unix(0, int64(timestamp*float64(time.Second)))
}

package mhchain

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liftedinit/mhchain/internal/config"
	"github.com/liftedinit/mhchain/internal/pow"
)

var (
	validLogLevels = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	validLogLevelsStr = strings.Join(slices.Sorted(maps.Keys(validLogLevels)), "|")
)

var RootCmd = &cobra.Command{
	Use:   "mhchain",
	Short: "Run a proof-of-work ledger node",
	Long:  `mhchain runs a single-process proof-of-work ledger and reconciles it with its peers.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := viper.GetString("logLevel")
		if err := setLogLevel(logLevel); err != nil {
			return err
		}
		slog.Debug("Application started", "version", Version)
		return nil
	},
}

// setLogLevel sets the log level
func setLogLevel(logLevel string) error {
	level, exists := validLogLevels[logLevel]
	if !exists {
		return fmt.Errorf("invalid log level: %s. Valid log levels are: %s", logLevel, validLogLevelsStr)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringP("logLevel", "l", "info", fmt.Sprintf("set log level (%s)", validLogLevelsStr))
	flags.StringP("difficulty", "d", pow.DefaultPrefix, "Hex prefix a proof hash must start with")
	flags.String("node-id", "", "Recipient of mining rewards (random when empty)")
	flags.String("store", config.StoreJSON, fmt.Sprintf("Chain store backend (%s|%s|%s)", config.StoreJSON, config.StorePostgres, config.StoreTSV))
	flags.String("json-out", "file.json", "JSON chain file")
	flags.String("tsv-out", "chain.tsv", "TSV chain file")
	flags.String("postgres-conn", "", "PostgreSQL connection string")
	flags.Uint("max-conns", 4, "Maximum PostgreSQL pool connections")
	if err := viper.BindPFlags(flags); err != nil {
		slog.Error("Failed to bind rootCmd flags", "error", err)
	}

	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.mhchain")
	viper.AddConfigPath("/etc/mhchain")

	viper.SetEnvPrefix("mhchain")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(MineCmd)
	RootCmd.AddCommand(InspectCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := viper.ReadInConfig(); err == nil {
		slog.Info("Using config file", "file", viper.ConfigFileUsed())
	} else {
		slog.Info("No config file found")
	}

	if err := RootCmd.Execute(); err != nil {
		slog.Error("An error occurred", "error", err)
		os.Exit(1)
	}
}

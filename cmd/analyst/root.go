// Package analyst implements the analyst command line.
package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	engine "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/logger"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:   "analyst",
		Short: "Analyst: knowledge graph reasoning tool",
		Long: `Analyst loads a typed knowledge graph of artists, groups, labels and works
and answers multi-hop questions about it with explainable reasoning steps.

Graph data is exchanged as JSON or YAML batches of entities, relationships
and aliases. Configuration comes from a YAML file, ANALYST_* environment
variables and flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.analyst.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("data", "", "graph batch file (json or yaml) loaded at startup")

	rootCmd.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newAskCmd(),
		newExportCmd(),
		newStatsCmd(),
		newCommunitiesCmd(),
	)
	return rootCmd
}

// initConfig reads in config file and binds the global flags.
func initConfig(cmd *cobra.Command, cfgFile string) error {
	flags := cmd.Root().PersistentFlags()
	if err := viper.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
		return err
	}
	if err := viper.BindPFlag("graph.data_path", flags.Lookup("data")); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".analyst")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// app bundles what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine
}

func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(log)

	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "cli")
	e, err := engine.NewFromConfig(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return &app{cfg: cfg, logger: log, engine: e}, nil
}

func (a *app) close() {
	if err := a.engine.Close(); err != nil {
		a.logger.Error("failed to close engine", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

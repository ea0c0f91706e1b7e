// Package main provides the ella command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/config"
	"github.com/glbala87/ELLA-tool-sub001/internal/store"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries the state shared by subcommands once the root command has
// loaded the configuration.
type app struct {
	cfgFile  string
	verbose  bool
	settings *config.Settings
	logger   *zap.Logger
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := newRootCmd(a)
	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, apperr.ErrBadInput) {
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ella",
		Short:         "Clinical variant interpretation backend",
		Long:          "Ingest annotated VCFs into an analysis store and filter their alleles for interpretation.",
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ~/"+config.FileName+")")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Development logging at debug level")
	cmd.PersistentFlags().String("database", "", "DuckDB database path (overrides config)")
	_ = viper.BindPFlag("database", cmd.PersistentFlags().Lookup("database"))

	cmd.AddCommand(newIngestCmd(a))
	cmd.AddCommand(newFilterCmd(a))
	cmd.AddCommand(newFilterConfigCmd(a))
	cmd.AddCommand(newPanelCmd(a))
	cmd.AddCommand(newShadowsCmd(a))
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	if err := config.Init(viper.GetViper(), a.cfgFile); err != nil {
		return err
	}
	var err error
	if a.verbose {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// config subcommands work on raw values and must not fail validation.
	if isConfigCmd(cmd) {
		return nil
	}
	a.settings, err = config.Load(viper.GetViper())
	return err
}

func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

// openStore opens the configured database.
func (a *app) openStore() (*store.Store, error) {
	st, err := store.Open(a.settings.Database,
		store.WithFrequencyGroups(a.settings.Frequencies.FrequencyGroups()),
		store.WithGenomeReference(a.settings.GenomeReference),
		store.WithLogger(a.logger.Named("store")),
	)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opened store", zap.String("database", a.settings.Database))
	return st, nil
}

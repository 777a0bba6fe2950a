package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sitegen/internal/domain/config"
	domainerr "sitegen/internal/domain/errors"
)

// app carries what every subcommand needs; it is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfgPath string
	verbose bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sitegen",
		Short: "Build a static site from Markdown",
		Long: `sitegen renders a Markdown home page and one or more collections of
Markdown posts into a static HTML tree.

Posts are published only when their header carries a "Public" key.
Running sitegen without a subcommand performs a build.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", config.DefaultPath, "config file (JSON or YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newBuildCmd(a), newNewCmd(a), newServeCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	var err error
	if cmd.Flags().Changed("config") {
		// an explicitly named config must exist
		a.cfg, err = config.Load(a.cfgPath)
	} else {
		a.cfg, err = config.LoadOrDefault(a.cfgPath)
	}
	if errors.Is(err, domainerr.ErrInvalid) {
		// already names the file
		return err
	}
	if err != nil {
		return fmt.Errorf("load config %s: %w", a.cfgPath, err)
	}
	a.logger.Debug("config loaded", slog.String("path", a.cfgPath))
	return nil
}

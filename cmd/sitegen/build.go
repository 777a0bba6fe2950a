package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sitegen/internal/build"
)

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Render the home page, every collection and the index pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context())
		},
	}
}

func (a *app) runBuild(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := build.New(a.cfg, a.logger).Run(ctx)
	if err != nil {
		return err
	}
	if n := len(res.Failures); n > 0 {
		return fmt.Errorf("%d document(s) failed to render", n)
	}
	return nil
}

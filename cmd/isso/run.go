package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/isso"
	"github.com/dmitrymomot/isso/internal/config"
)

type configLoader func() (*config.Config, error)

func runCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the comment server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			app, err := isso.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}

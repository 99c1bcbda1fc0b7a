package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/isso"
	"github.com/dmitrymomot/isso/internal/migrate"
	"github.com/dmitrymomot/isso/internal/storage"
)

func importCmd(load configLoader) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <dump>",
		Short: "Import comments from a Disqus XML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var opts []isso.Option
			if dryRun {
				cfg = cfg.With("guard", "enabled", false)
				opts = append(opts, isso.WithStore(storage.NewMemory()))
			}

			app, err := isso.New(cmd.Context(), cfg, opts...)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			res, err := migrate.DisqusFile(cmd.Context(), app.Store(), args[0], app.Logger())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d comments in %d threads, skipped %d\n",
				res.Comments, res.Threads, res.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "parse the dump without writing to the database")

	return cmd
}

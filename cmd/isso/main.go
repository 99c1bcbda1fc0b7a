package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/isso"
	"github.com/dmitrymomot/isso/internal/config"
)

const defaultConfigPath = "/etc/isso.yaml"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "isso",
		Short:         "A commenting server similar to Disqus",
		Version:       isso.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "configuration file")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}
	cmd.AddCommand(
		runCmd(load),
		importCmd(load),
	)
	return cmd
}

package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	json       bool
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "agentflow",
		Short:         "Build and run agent graphs",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default config.toml or $AGENTFLOW_CONFIG)")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "output as JSON")

	cmd.AddCommand(projectCmd(opts))
	cmd.AddCommand(agentCmd(opts))
	cmd.AddCommand(nodeCmd(opts))
	cmd.AddCommand(checkpointCmd(opts))
	return cmd
}

package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func checkpointCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect run checkpoints",
	}
	cmd.AddCommand(checkpointListCmd(opts))
	return cmd
}

func checkpointListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <run-id>",
		Short: "List the checkpoints of a run in step order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				cps, err := a.agents.Checkpoints(ctx, args[0])
				if err != nil {
					return err
				}
				return a.render(cps, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "STEP\tVERTEX\tFRONTIER\tCREATED")
					for _, cp := range cps {
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
							cp.Step, cp.Vertex,
							strings.Join(cp.Frontier, ","),
							cp.CreatedAt.Format("2006-01-02 15:04:05"),
						)
					}
				})
			})
		},
	}
}

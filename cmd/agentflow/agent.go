package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/agentflow/internal/agents"
	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/pagination"
)

func agentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage and run agents",
	}
	cmd.AddCommand(agentCreateCmd(opts))
	cmd.AddCommand(agentListCmd(opts))
	cmd.AddCommand(agentGetCmd(opts))
	cmd.AddCommand(agentUpdateCmd(opts))
	cmd.AddCommand(agentDeleteCmd(opts))
	cmd.AddCommand(agentGraphCmd(opts))
	cmd.AddCommand(agentRunCmd(opts))
	cmd.AddCommand(agentResumeCmd(opts))
	cmd.AddCommand(agentStateCmd(opts))
	cmd.AddCommand(agentImportCmd(opts))
	cmd.AddCommand(agentExportCmd(opts))
	return cmd
}

// --- crud ---

func agentCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		c       agents.CreateCommand
		project string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent under a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(project, agents.ErrProjectNotFound)
			if err != nil {
				return err
			}
			c.ProjectID = id
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				agent, err := a.agents.Create(ctx, c)
				if err != nil {
					return err
				}
				return a.render(agent, agentTable(*agent))
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "owning project id")
	cmd.Flags().StringVar(&c.Name, "name", "", "agent name, unique within the project")
	cmd.Flags().StringVar(&c.Description, "description", "", "agent description")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("name")
	return cmd
}

func agentListCmd(opts *rootOptions) *cobra.Command {
	var (
		page    pagination.PageRequest
		search  string
		project string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filters agents.Filters
			if project != "" {
				id, err := parseID(project, agents.ErrProjectNotFound)
				if err != nil {
					return err
				}
				filters.ProjectID = &id
			}
			if search != "" {
				page.Search = &search
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.agents.List(ctx, page, filters)
				if err != nil {
					return err
				}
				return a.render(result, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "ID\tPROJECT\tNAME\tDESCRIPTION")
					for _, ag := range result.Data {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ag.ID, ag.ProjectID, ag.Name, ag.Description)
					}
				})
			})
		},
	}
	pageFlags(cmd, &page, &search)
	cmd.Flags().StringVar(&project, "project", "", "filter by project id")
	return cmd
}

func agentGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an agent and its nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], agents.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				agent, err := a.agents.Find(ctx, id)
				if err != nil {
					return err
				}
				return a.render(agent, func(w *tabwriter.Writer) {
					agentTable(*agent)(w)
					fmt.Fprintln(w)
					nodeRows(w, agent.Nodes)
				})
			})
		},
	}
}

func agentUpdateCmd(opts *rootOptions) *cobra.Command {
	var c agents.UpdateCommand
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or redescribe an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], agents.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				current, err := a.agents.Find(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					c.Name = current.Name
				}
				if !cmd.Flags().Changed("description") {
					c.Description = current.Description
				}

				agent, err := a.agents.Update(ctx, id, c)
				if err != nil {
					return err
				}
				return a.render(agent, agentTable(*agent))
			})
		},
	}
	cmd.Flags().StringVar(&c.Name, "name", "", "agent name")
	cmd.Flags().StringVar(&c.Description, "description", "", "agent description")
	return cmd
}

func agentDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent and its nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], agents.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.agents.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted agent %s\n", id)
				return nil
			})
		},
	}
}

// --- execution ---

func agentGraphCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <id>",
		Short: "Compile an agent and print its topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], agents.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				topo, err := a.agents.Graph(ctx, id)
				if err != nil {
					return err
				}
				return a.render(topo, func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "VERTICES\t%d\n", len(topo.Vertices))
					fmt.Fprintf(w, "ENTRIES\t%s\n", strings.Join(topo.Entries, ", "))
					fmt.Fprintf(w, "EXITS\t%s\n", strings.Join(topo.Exits, ", "))
					for _, e := range topo.Edges {
						fmt.Fprintf(w, "EDGE\t%s -> %s\n", e.From, e.To)
					}
					for _, field := range topo.Shape.Fields() {
						fmt.Fprintf(w, "FIELD\t%s\t%s\n", field, topo.Shape[field])
					}
					for _, c := range topo.Collisions {
						fmt.Fprintf(w, "COLLISION\t%s\t%s shadowed by %s\n", c.Field, c.Shadowed, c.Winner)
					}
				})
			})
		},
	}
}

type runOutcome struct {
	AgentID uuid.UUID        `json:"agent_id"`
	Result  *workflow.Result `json:"result,omitempty"`
	Kind    string           `json:"kind,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func agentRunCmd(opts *rootOptions) *cobra.Command {
	var (
		runID       string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "run <id> [id...]",
		Short: "Run one or more agents concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID != "" && len(args) > 1 {
				return fmt.Errorf("--run-id applies to a single agent")
			}
			ids := make([]uuid.UUID, len(args))
			for i, arg := range args {
				id, err := parseID(arg, agents.ErrNotFound)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				outcomes, err := runAgents(ctx, a.agents, ids, runID, concurrency)
				if rerr := a.render(outcomes, runTable(outcomes)); rerr != nil {
					return rerr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "checkpoint lineage (default agent id)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum agents running at once")
	return cmd
}

// runAgents runs every agent with at most limit in flight. One agent's
// failure does not cancel the others; failures are joined in input order.
func runAgents(ctx context.Context, sys agents.System, ids []uuid.UUID, runID string, limit int) ([]runOutcome, error) {
	outcomes := make([]runOutcome, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(max(limit, 1))

	for i, id := range ids {
		g.Go(func() error {
			result, err := sys.Run(ctx, id, workflow.Options{RunID: runID})

			outcomes[i] = runOutcome{AgentID: id, Result: result}
			if err != nil {
				outcomes[i].Kind = errorKind(err)
				outcomes[i].Error = err.Error()
				errs[i] = fmt.Errorf("agent %s: %w", id, err)
			}
			return nil
		})
	}
	g.Wait()

	return outcomes, errors.Join(slices.DeleteFunc(errs, func(err error) bool { return err == nil })...)
}

func runTable(outcomes []runOutcome) func(w *tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "AGENT\tRUN\tSTEPS\tLAST STEP\tSTATUS")
		for _, o := range outcomes {
			if o.Result == nil {
				fmt.Fprintf(w, "%s\t-\t-\t-\t%s: %s\n", o.AgentID, o.Kind, o.Error)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\tok\n", o.AgentID, o.Result.RunID, o.Result.Steps, o.Result.LastStep)
		}
		for _, o := range outcomes {
			if o.Result == nil {
				continue
			}
			fmt.Fprintf(w, "\n%s\n", o.AgentID)
			for _, key := range o.Result.State.Keys() {
				fmt.Fprintf(w, "  %s\t%s\n", key, o.Result.State[key].Text())
			}
		}
	}
}

func agentResumeCmd(opts *rootOptions) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "resume <id>",
		Short: "Continue a run from its latest checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], agents.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.agents.Resume(ctx, id, runID)
				if err != nil {
					return err
				}
				outcomes := []runOutcome{{AgentID: id, Result: result}}
				return a.render(result, runTable(outcomes))
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "checkpoint lineage (default agent id)")
	return cmd
}

func agentStateCmd(opts *rootOptions) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "state <id>",
		Short: "Show the latest checkpoint of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], agents.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				cp, err := a.agents.State(ctx, id, runID)
				if err != nil {
					return err
				}
				return a.render(cp, checkpointTable(*cp))
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "checkpoint lineage (default agent id)")
	return cmd
}

// --- manifests ---

func agentImportCmd(opts *rootOptions) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create an agent and its nodes from a YAML or JSON manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			m, err := decodeManifest(data)
			if err != nil {
				return err
			}
			if project != "" {
				id, err := parseID(project, agents.ErrProjectNotFound)
				if err != nil {
					return err
				}
				m.ProjectID = id
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				agent, err := a.agents.Import(ctx, *m)
				if err != nil {
					return err
				}
				return a.render(agent, func(w *tabwriter.Writer) {
					agentTable(*agent)(w)
					fmt.Fprintln(w)
					nodeRows(w, agent.Nodes)
				})
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "owning project id (overrides the manifest)")
	return cmd
}

func agentExportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write an agent manifest as YAML (or JSON with --json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], agents.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				m, err := a.agents.Export(ctx, id)
				if err != nil {
					return err
				}
				data, err := encodeManifest(m, a.json)
				if err != nil {
					return err
				}
				if out == "" {
					_, err := a.out.Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write manifest: %w", err)
				}
				fmt.Fprintf(a.out, "exported agent %s to %s\n", id, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// --- tables ---

func agentTable(ag agents.Agent) func(w *tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID\t%s\n", ag.ID)
		fmt.Fprintf(w, "PROJECT\t%s\n", ag.ProjectID)
		fmt.Fprintf(w, "NAME\t%s\n", ag.Name)
		fmt.Fprintf(w, "DESCRIPTION\t%s\n", ag.Description)
	}
}

func nodeRows(w *tabwriter.Writer, ns []nodes.Node) {
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tOUTPUT\tSTART\tEND\tSUCCESSOR")
	for _, n := range ns {
		output := "-"
		if n.Output != nil {
			output = fmt.Sprintf("%s:%s", n.Output.Name, n.Output.Type)
		}
		successor := "-"
		if n.SuccessorID != nil {
			successor = n.SuccessorID.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\t%s\n", n.ID, n.Type, n.Name, output, n.IsStart, n.IsEnd, successor)
	}
}

func checkpointTable(cp checkpoint.Checkpoint) func(w *tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "RUN\t%s\n", cp.RunID)
		fmt.Fprintf(w, "STEP\t%d\n", cp.Step)
		fmt.Fprintf(w, "VERTEX\t%s\n", cp.Vertex)
		fmt.Fprintf(w, "FRONTIER\t%s\n", strings.Join(cp.Frontier, ", "))
		fmt.Fprintf(w, "COMPLETED\t%s\n", strings.Join(cp.Completed, ", "))
		fmt.Fprintf(w, "CREATED\t%s\n", cp.CreatedAt.Format("2006-01-02 15:04:05"))
		for _, k := range slices.Sorted(maps.Keys(cp.State)) {
			fmt.Fprintf(w, "  %s\t%s\n", k, string(cp.State[k].Value))
		}
	}
}

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/agentflow/internal/projects"
	"github.com/JaimeStill/agentflow/pkg/pagination"
)

func projectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(projectCreateCmd(opts))
	cmd.AddCommand(projectListCmd(opts))
	cmd.AddCommand(projectGetCmd(opts))
	cmd.AddCommand(projectUpdateCmd(opts))
	cmd.AddCommand(projectDeleteCmd(opts))
	return cmd
}

func projectCreateCmd(opts *rootOptions) *cobra.Command {
	var c projects.CreateCommand
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				p, err := a.projects.Create(ctx, c)
				if err != nil {
					return err
				}
				return a.render(p, projectTable(*p))
			})
		},
	}
	cmd.Flags().StringVar(&c.Name, "name", "", "project name")
	cmd.Flags().StringVar(&c.Description, "description", "", "project description")
	cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd(opts *rootOptions) *cobra.Command {
	var (
		page   pagination.PageRequest
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if search != "" {
				page.Search = &search
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.projects.List(ctx, page, projects.Filters{})
				if err != nil {
					return err
				}
				return a.render(result, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "ID\tNAME\tAGENTS\tDESCRIPTION")
					for _, p := range result.Data {
						fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Name, len(p.Agents), p.Description)
					}
				})
			})
		},
	}
	pageFlags(cmd, &page, &search)
	return cmd
}

func projectGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], projects.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				p, err := a.projects.Find(ctx, id)
				if err != nil {
					return err
				}
				return a.render(p, projectTable(*p))
			})
		},
	}
}

func projectUpdateCmd(opts *rootOptions) *cobra.Command {
	var c projects.UpdateCommand
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or redescribe a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], projects.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				current, err := a.projects.Find(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					c.Name = current.Name
				}
				if !cmd.Flags().Changed("description") {
					c.Description = current.Description
				}

				p, err := a.projects.Update(ctx, id, c)
				if err != nil {
					return err
				}
				return a.render(p, projectTable(*p))
			})
		},
	}
	cmd.Flags().StringVar(&c.Name, "name", "", "project name")
	cmd.Flags().StringVar(&c.Description, "description", "", "project description")
	return cmd
}

func projectDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project with its agents and nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], projects.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.projects.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted project %s\n", id)
				return nil
			})
		},
	}
}

func projectTable(p projects.Project) func(w *tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID\t%s\n", p.ID)
		fmt.Fprintf(w, "NAME\t%s\n", p.Name)
		fmt.Fprintf(w, "DESCRIPTION\t%s\n", p.Description)
		fmt.Fprintf(w, "AGENTS\t%d\n", len(p.Agents))
		for _, id := range p.Agents {
			fmt.Fprintf(w, "\t%s\n", id)
		}
	}
}

func pageFlags(cmd *cobra.Command, page *pagination.PageRequest, search *string) {
	cmd.Flags().IntVar(&page.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&page.PageSize, "page-size", 0, "results per page (default from config)")
	cmd.Flags().StringVar(search, "search", "", "search text")
}

// parseID parses a uuid argument; a malformed id reports notFound.
func parseID(s string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not a valid id", notFound, s)
	}
	return id, nil
}

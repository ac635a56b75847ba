package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JaimeStill/agentflow/internal/agents"
	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/pkg/pagination"
	"github.com/JaimeStill/agentflow/pkg/state"
)

func nodeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage agent nodes",
	}
	cmd.AddCommand(nodeCreateCmd(opts))
	cmd.AddCommand(nodeListCmd(opts))
	cmd.AddCommand(nodeGetCmd(opts))
	cmd.AddCommand(nodeUpdateCmd(opts))
	cmd.AddCommand(nodeDeleteCmd(opts))
	return cmd
}

// definitionFlags binds the flags shared by node create and update.
type definitionFlags struct {
	name         string
	description  string
	start        bool
	end          bool
	successor    string
	output       string
	value        string
	template     string
	version      string
	inputs       []string
	model        string
	temperature  float64
	input        string
	conditionals []string
}

func (f *definitionFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "node name, unique within the agent")
	fs.StringVar(&f.description, "description", "", "node description")
	fs.BoolVar(&f.start, "start", false, "mark as an entry point")
	fs.BoolVar(&f.end, "end", false, "mark as an exit point")
	fs.StringVar(&f.successor, "successor", "", "successor node id (empty clears it)")
	fs.StringVar(&f.output, "output", "", "output field as name:kind (kind is string, int, float or json)")
	fs.StringVar(&f.value, "value", "", "input: literal value")
	fs.StringVar(&f.template, "template", "", "prompt: template with {field} placeholders")
	fs.StringVar(&f.version, "version", "", "prompt: template version")
	fs.StringSliceVar(&f.inputs, "inputs", nil, "prompt: state fields the template reads")
	fs.StringVar(&f.model, "model", "", "llm: model name")
	fs.Float64Var(&f.temperature, "temperature", 0, "llm: sampling temperature")
	fs.StringVar(&f.input, "input", "", "llm or conditional: state field to read")
	fs.StringArrayVar(&f.conditionals, "when", nil, "conditional: key=operator:value, repeatable")
}

// apply writes every changed flag onto d. Variant blocks are created on
// demand for d.Type.
func (f *definitionFlags) apply(fs *pflag.FlagSet, d *nodes.Definition) error {
	changed := fs.Changed

	if changed("name") {
		d.Name = f.name
	}
	if changed("description") {
		d.Description = f.description
	}
	if changed("start") {
		d.IsStart = f.start
	}
	if changed("end") {
		d.IsEnd = f.end
	}
	if changed("successor") {
		if f.successor == "" {
			d.SuccessorID = nil
		} else {
			id, err := uuid.Parse(f.successor)
			if err != nil {
				return fmt.Errorf("%w: successor %q is not a valid id", nodes.ErrInvalidNode, f.successor)
			}
			d.SuccessorID = &id
		}
	}
	if changed("output") {
		out, err := parseOutput(f.output)
		if err != nil {
			return err
		}
		d.Output = out
	}

	switch d.Type {
	case nodes.TypeInput:
		if d.Input == nil {
			d.Input = &nodes.InputConfig{}
		}
		if changed("value") {
			d.Input.Value = f.value
		}
	case nodes.TypePrompt:
		if d.Prompt == nil {
			d.Prompt = &nodes.PromptConfig{}
		}
		if changed("template") {
			d.Prompt.Template = f.template
		}
		if changed("version") {
			d.Prompt.Version = f.version
		}
		if changed("inputs") {
			d.Prompt.Inputs = f.inputs
		}
	case nodes.TypeLLM:
		if d.LLM == nil {
			d.LLM = &nodes.LLMConfig{}
		}
		if changed("model") {
			d.LLM.Model.Name = f.model
		}
		if changed("temperature") {
			d.LLM.Model.Temperature = f.temperature
		}
		if changed("input") {
			d.LLM.Input = f.input
		}
	case nodes.TypeConditional:
		if d.Conditional == nil {
			d.Conditional = &nodes.ConditionalConfig{}
		}
		if changed("input") {
			d.Conditional.Input = f.input
		}
		if changed("when") {
			conds, err := parseConditionals(f.conditionals)
			if err != nil {
				return err
			}
			d.Conditional.Conditionals = conds
		}
	}
	return nil
}

func parseOutput(s string) (*nodes.Output, error) {
	if s == "" {
		return nil, nil
	}
	name, kind, ok := strings.Cut(s, ":")
	if !ok {
		kind = string(state.KindString)
	}
	k, err := state.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: output %q: %w", nodes.ErrInvalidNode, s, err)
	}
	return &nodes.Output{Name: name, Type: k}, nil
}

func parseConditionals(exprs []string) (map[string]nodes.Condition, error) {
	conds := make(map[string]nodes.Condition, len(exprs))
	for _, expr := range exprs {
		key, rest, ok := strings.Cut(expr, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: condition %q must be key=operator:value", nodes.ErrInvalidNode, expr)
		}
		op, value, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("%w: condition %q must be key=operator:value", nodes.ErrInvalidNode, expr)
		}
		conds[key] = nodes.Condition{Operator: op, Value: value}
	}
	return conds, nil
}

func nodeCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		flags definitionFlags
		agent string
	)
	cmd := &cobra.Command{
		Use:       "create <input|prompt|llm|conditional>",
		Short:     "Create a node under an agent",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(nodes.TypeInput), string(nodes.TypePrompt), string(nodes.TypeLLM), string(nodes.TypeConditional)},
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseID(agent, nodes.ErrAgentNotFound)
			if err != nil {
				return err
			}

			c := nodes.CreateCommand{
				AgentID:    agentID,
				Definition: nodes.Definition{Type: nodes.Type(args[0])},
			}
			if err := flags.apply(cmd.Flags(), &c.Definition); err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.nodes.Create(ctx, c)
				if err != nil {
					return err
				}
				return a.render(n, func(w *tabwriter.Writer) { nodeRows(w, []nodes.Node{*n}) })
			})
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&agent, "agent", "", "owning agent id")
	cmd.MarkFlagRequired("agent")
	cmd.MarkFlagRequired("name")
	return cmd
}

func nodeListCmd(opts *rootOptions) *cobra.Command {
	var (
		page     pagination.PageRequest
		search   string
		agent    string
		nodeType string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filters nodes.Filters
			if agent != "" {
				id, err := parseID(agent, agents.ErrNotFound)
				if err != nil {
					return err
				}
				filters.AgentID = &id
			}
			if nodeType != "" {
				filters.Type = &nodeType
			}
			if search != "" {
				page.Search = &search
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.nodes.List(ctx, page, filters)
				if err != nil {
					return err
				}
				return a.render(result, func(w *tabwriter.Writer) { nodeRows(w, result.Data) })
			})
		},
	}
	pageFlags(cmd, &page, &search)
	cmd.Flags().StringVar(&agent, "agent", "", "filter by agent id")
	cmd.Flags().StringVar(&nodeType, "type", "", "filter by node type")
	return cmd
}

func nodeGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], nodes.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.nodes.Find(ctx, id)
				if err != nil {
					return err
				}
				return a.render(n, func(w *tabwriter.Writer) {
					nodeRows(w, []nodes.Node{*n})
					nodeDetail(w, n.Definition)
				})
			})
		},
	}
}

func nodeUpdateCmd(opts *rootOptions) *cobra.Command {
	var flags definitionFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a node's fields; unset flags keep their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], nodes.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				current, err := a.nodes.Find(ctx, id)
				if err != nil {
					return err
				}

				d := current.Definition
				if err := flags.apply(cmd.Flags(), &d); err != nil {
					return err
				}

				n, err := a.nodes.Update(ctx, id, nodes.UpdateCommand{Definition: d})
				if err != nil {
					return err
				}
				return a.render(n, func(w *tabwriter.Writer) { nodeRows(w, []nodes.Node{*n}) })
			})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func nodeDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], nodes.ErrNotFound)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.nodes.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted node %s\n", id)
				return nil
			})
		},
	}
}

func nodeDetail(w *tabwriter.Writer, d nodes.Definition) {
	fmt.Fprintln(w)
	switch {
	case d.Input != nil:
		fmt.Fprintf(w, "VALUE\t%s\n", d.Input.Value)
	case d.Prompt != nil:
		fmt.Fprintf(w, "TEMPLATE\t%s\n", d.Prompt.Template)
		fmt.Fprintf(w, "VERSION\t%s\n", d.Prompt.Version)
		fmt.Fprintf(w, "INPUTS\t%s\n", strings.Join(d.Prompt.Inputs, ", "))
	case d.LLM != nil:
		fmt.Fprintf(w, "MODEL\t%s\n", d.LLM.Model.Name)
		fmt.Fprintf(w, "TEMPERATURE\t%g\n", d.LLM.Model.Temperature)
		fmt.Fprintf(w, "INPUT\t%s\n", d.LLM.Input)
	case d.Conditional != nil:
		fmt.Fprintf(w, "INPUT\t%s\n", d.Conditional.Input)
		for key, c := range d.Conditional.Conditionals {
			fmt.Fprintf(w, "WHEN\t%s\t%s %s\n", key, c.Operator, c.Value)
		}
	}
}

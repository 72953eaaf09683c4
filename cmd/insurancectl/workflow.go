package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/spf13/cobra"
)

func workflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect quote workflow tables",
	}

	check := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a workflow table file and print its transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := domain.LoadQuoteWorkflowFile(args[0])
			if err != nil {
				return fmt.Errorf("workflow %s: %w", args[0], err)
			}
			printWorkflow(cmd.OutOrStdout(), wf)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "default",
		Short: "Print the built-in workflow table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printWorkflow(cmd.OutOrStdout(), domain.DefaultQuoteWorkflow())
			return nil
		},
	}

	cmd.AddCommand(check, show)
	return cmd
}

func printWorkflow(w io.Writer, wf *domain.QuoteWorkflow) {
	for _, op := range wf.Operations {
		from := "any"
		if len(op.RequiredStates) > 0 {
			states := make([]string, len(op.RequiredStates))
			for i, s := range op.RequiredStates {
				states[i] = string(s)
			}
			from = strings.Join(states, ",")
		}
		to := string(op.ResultingState)
		if to == "" {
			to = "(unchanged)"
		}
		fmt.Fprintf(w, "%-22s %-40s -> %s\n", op.Action, from, to)
	}
}

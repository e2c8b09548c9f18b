package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sourcescope/internal/analyzer"
	"github.com/JakeFAU/sourcescope/internal/osint"
)

func newAnalyzeCmd() *cobra.Command {
	var policyName string
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Classify a single URL and print the report as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			a, err := buildAnalyzer(e.cfg, e.logger)
			if err != nil {
				return err
			}
			var policy osint.Policy
			if policyName != "" {
				if policy, err = osint.ParsePolicy(policyName); err != nil {
					return fmt.Errorf("--policy: %w", err)
				}
			}

			report, err := a.Analyze(cmd.Context(), args[0], policy)
			if errors.Is(err, analyzer.ErrEmptyURL) {
				return fmt.Errorf("analyze: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return fmt.Errorf("encode report: %w", encErr)
			}
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policyName, "policy", "", "classification policy (full or simple); defaults to classifier.policy")
	return cmd
}

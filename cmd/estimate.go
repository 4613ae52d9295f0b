package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/narration-leads/internal/lead"
)

func newEstimateCmd() *cobra.Command {
	var (
		words   int
		service string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Price an audiobook from its word count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := lead.Estimate(words, service)
			if err != nil {
				return fmt.Errorf("estimate: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(q)
			}
			fmt.Fprintf(out, "Service:         %s\n", q.Service.Label)
			fmt.Fprintf(out, "Word count:      %d\n", q.WordCount)
			fmt.Fprintf(out, "Estimated hours: %s\n", q.FormattedHours())
			fmt.Fprintf(out, "Estimated cost:  %s\n", q.FormattedCost())
			return nil
		},
	}
	cmd.Flags().IntVar(&words, "words", 0, "manuscript word count")
	cmd.Flags().StringVar(&service, "service", lead.TierNarrationOnly, "service tier: narrationOnly, fullCast or immersiveAudio")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the quote as JSON")
	_ = cmd.MarkFlagRequired("words")
	return cmd
}

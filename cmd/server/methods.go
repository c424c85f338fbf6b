package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List translation methods and whether each is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, _, err := newTranslationService(ctx)
		if err != nil {
			return fmt.Errorf("failed to create translator: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "METHOD\tAVAILABLE\tLABEL")
		for _, m := range svc.Methods() {
			fmt.Fprintf(w, "%s\t%t\t%s\n", m.Value, m.Available, m.Label)
		}
		return w.Flush()
	},
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dasmlab/vakya/pkg/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate English text to Sanskrit once and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTranslate,
}

func init() {
	translateCmd.Flags().StringP("method", "m", string(translate.MethodAPI), `Translation method: "api", "local" or "modelv3"`)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rawMethod, err := cmd.Flags().GetString("method")
	if err != nil {
		return err
	}
	method, err := translate.ParseMethod(rawMethod)
	if err != nil {
		return err
	}

	svc, _, err := newTranslationService(ctx)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	result, err := svc.Translate(ctx, strings.Join(args, " "), method)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

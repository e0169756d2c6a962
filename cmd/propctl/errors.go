package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/prop/internal/errors"
)

func errorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "errors [CODE]",
		Short: "List error codes or explain one",
		Long: `Without arguments, list every error code propctl and the prop
adapters can report. With a code, print its full explanation.

Examples:
  propctl errors
  propctl errors E030`,
		Args: cobra.MaximumNArgs(1),
		// Explaining errors needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, code := range errors.GetAllCodes() {
					t, _ := errors.GetTemplate(code)
					fmt.Fprintf(out, "%s  %-8s %s\n", code, t.Category, t.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			if _, ok := errors.GetTemplate(code); !ok {
				return errors.New("E204").
					WithDetail("There is no error " + code + ".").
					WithSuggestion("Run propctl errors to list the codes")
			}
			a.setColors()
			fmt.Fprint(out, errors.New(code).Format())
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func configCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration propctl would run with, after
propctl.yaml, PROPCTL_* overrides and defaults are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path := a.cfg.Path(); path != "" {
				fmt.Fprintf(out, "# %s\n", path)
			}
			_, err = out.Write(data)
			return err
		},
	}
}

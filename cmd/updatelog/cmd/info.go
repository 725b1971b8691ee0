package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Shows the repository settings without the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok := a.adapter(cmd).ConfigInfo()
			if !ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "github is not configured")
				return err
			}
			return printJSON(cmd, info)
		},
	}
}

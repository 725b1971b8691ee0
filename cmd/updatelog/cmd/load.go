package cmd

import (
	"github.com/spf13/cobra"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Prints the update log collection",
		Long: `Prints the update log collection read from the repository, or from the
local cache when the repository is not configured or cannot be read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, a.adapter(cmd).Load(cmd.Context()))
		},
	}
}

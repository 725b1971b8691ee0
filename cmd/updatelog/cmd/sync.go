package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "sync",
		Short: "Synchronizes the local cache with the repository",
	}

	c.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Loads the collection from the repository into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.adapter(cmd).SyncFromGitHub(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pulled %d logs\n", len(logs))
			return err
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Saves the cached collection to the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.adapter(cmd).SyncToGitHub(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errNotSaved
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "pushed")
			return err
		},
	})

	return c
}

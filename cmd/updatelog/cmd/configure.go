package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapp-incubator/updatelog/internal/config"
	"github.com/snapp-incubator/updatelog/internal/updatelog"
)

func newConfigureCmd(a *app) *cobra.Command {
	var g config.GitHub

	c := &cobra.Command{
		Use:   "configure",
		Short: "Stores the repository settings in the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !g.Configured() {
				return errors.New("username, repo and token are required")
			}
			b, err := json.Marshal(g)
			if err != nil {
				return err
			}
			if err := a.store.Set(cmd.Context(), updatelog.ConfigKey, string(b)); err != nil {
				return fmt.Errorf("error in storing the github config: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "configured", g.RepoURL())
			return err
		},
	}

	c.Flags().StringVar(&g.Username, "username", "", "Owner of the repository")
	c.Flags().StringVar(&g.Repo, "repo", "", "Name of the repository")
	c.Flags().StringVar(&g.Token, "token", "", "Access token with contents write permission")
	c.Flags().StringVar(&g.Branch, "branch", "", "Branch holding the log file (default \"main\")")
	return c
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var errNotSaved = errors.New("the update logs were kept in the local cache only")

func newSaveCmd(a *app) *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "save",
		Short: "Replaces the update log collection with a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := readLogs(cmd, file)
			if err != nil {
				return err
			}
			if !a.adapter(cmd).Save(cmd.Context(), logs) {
				return errNotSaved
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %d logs\n", len(logs))
			return err
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "-", "JSON file holding the collection, - for stdin")
	return c
}

func readLogs(cmd *cobra.Command, file string) ([]json.RawMessage, error) {
	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var logs []json.RawMessage
	if err := json.Unmarshal(b, &logs); err != nil {
		return nil, fmt.Errorf("error in decoding the logs, a JSON array is expected: %w", err)
	}
	return logs, nil
}

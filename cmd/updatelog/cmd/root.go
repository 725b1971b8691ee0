package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/snapp-incubator/updatelog/internal/config"
	"github.com/snapp-incubator/updatelog/internal/logging"
	"github.com/snapp-incubator/updatelog/internal/metrics"
	"github.com/snapp-incubator/updatelog/internal/storage"
	"github.com/snapp-incubator/updatelog/internal/updatelog"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	store      storage.Store
}

// NewRootCmd builds the updatelog command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "updatelog",
		Short: "Keeps the update log in a GitHub repository file",
		Long: `updatelog loads and saves the update log collection.

The collection lives in a JSON file of a GitHub repository and is mirrored into a
local cache store, which is used whenever the repository is not configured or
cannot be reached.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return nil
			}
			return a.store.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("UPDATELOG_CONFIG"), "The path of config file")

	root.AddCommand(
		newConfigureCmd(a),
		newInfoCmd(a),
		newLoadCmd(a),
		newSaveCmd(a),
		newSyncCmd(a),
	)
	return root
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := logging.Configure(cfg.Logging.Level); err != nil {
		return fmt.Errorf("error in configuring the logger: %w", err)
	}
	a.cfg = cfg

	if cfg.Metrics.Enabled {
		go metrics.InitializeHTTP(cfg.Metrics.Bind)
	}

	a.store, err = storage.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("error in opening the cache store: %w", err)
	}
	logging.L.Debug("cache store opened", zap.String("driver", cfg.Cache.Driver))
	return nil
}

func (a *app) adapter(cmd *cobra.Command) *updatelog.Adapter[json.RawMessage] {
	return updatelog.New[json.RawMessage](cmd.Context(), a.store,
		updatelog.WithBaseURL(a.cfg.GitHub.APIURL),
		updatelog.WithPath(a.cfg.GitHub.Path),
		updatelog.WithNotifier(updatelog.WriterNotifier{W: cmd.ErrOrStderr()}),
	)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	internalApp "github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dao"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const na = "-"

// openApp loads the config and builds an App container for one-shot
// commands. The caller must Shutdown the returned app.
func openApp(ctx context.Context, configPath string) (*internalApp.App, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	cfg, _, err := internalApp.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := initStorageWithConfig(cfg); err != nil {
		return nil, err
	}
	db, err := dao.NewDBEngineWithConfig(cfg.GetDatabaseConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("initDatabase: %w", err)
	}
	return internalApp.NewApp(ctx, cfg, bootstrapLogger.WithOptions(zap.IncreaseLevel(zap.WarnLevel)), db)
}

// withApp runs fn against a freshly opened App and shuts it down afterwards.
func withApp(cmd *cobra.Command, configPath string, fn func(ctx context.Context, a *internalApp.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		_ = a.Shutdown(sctx)
	}()
	return fn(ctx, a)
}

func newTableWriter(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	table.Header(row...)
	return table
}

func itoa(n int) string { return strconv.Itoa(n) }

// addConfigFlag registers -c on a one-shot command.
func addConfigFlag(cmd *cobra.Command) *string {
	var path string
	cmd.Flags().StringVarP(&path, "config", "c", "", "config file")
	return &path
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/world"
	"dreamui/backend/pkg/config"
	"dreamui/backend/pkg/di"
	"dreamui/backend/pkg/logger"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the conversation and story archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive entries, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runArchiveList,
}

var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "Inspect world-info entries",
}

var worldListCmd = &cobra.Command{
	Use:   "list",
	Short: "List world-info entries, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runWorldList,
}

func init() {
	for _, cmd := range []*cobra.Command{archiveListCmd, worldListCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	}
	archiveCmd.AddCommand(archiveListCmd)
	worldCmd.AddCommand(worldListCmd)
}

// quietLogger keeps operator output free of info logs
func quietLogger(cfg *config.Config) *logger.Logger {
	lc := logger.DefaultConfig()
	lc.Level = "warn"
	lc.JSON = cfg.Logging.Format != "text"
	return logger.New(lc)
}

func openArchive(cfg *config.Config, log *logger.Logger) (*archive.Reconciler, func(), error) {
	repo, db, err := di.OpenArchive(cfg, log)
	closeDB := func() {
		if db == nil {
			return
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return archive.NewReconciler(repo, nil, log), closeDB, nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reconciler, closeFn, err := openArchive(cfg, quietLogger(cfg))
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := reconciler.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, entries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tMODEL\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Type, e.Name, e.Model, formatMillis(e.UpdatedAt))
	}
	return tw.Flush()
}

func runWorldList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := world.NewStore(cfg.Storage.WorldDir, time.Minute, quietLogger(cfg))
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, entries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tENABLED\tTOKENS\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n", e.Slug, e.Name, e.Enabled, e.Tokens, formatMillis(e.CreatedAt))
	}
	return tw.Flush()
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format(time.RFC3339)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command healthimport loads an Apple Health export archive into a user's
// sleep logs without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/bootstrap"
	"github.com/sh1zzle/activetime-project/internal/config"
	"github.com/sh1zzle/activetime-project/internal/healthimport"
	"github.com/sh1zzle/activetime-project/internal/storage"
	"github.com/spf13/cobra"
)

var (
	importUser   string
	importFile   string
	importDryRun bool
)

var rootCmd = &cobra.Command{
	Use:   "healthimport",
	Short: "Import sleep sessions from an Apple Health export",
	Long: `healthimport rebuilds sleep sessions from an Apple Health export.zip and
stores the ones the user does not have yet in the configured backend.`,
	SilenceUsage: true,
	RunE:         runImport,
}

func init() {
	rootCmd.Flags().StringVar(&importUser, "user", "", "id of the user the sessions belong to")
	rootCmd.Flags().StringVar(&importFile, "file", "", "path to the export.zip archive")
	rootCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "print the reconstructed sessions without saving them")
	_ = rootCmd.MarkFlagRequired("file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, _ []string) error {
	if importUser == "" && !importDryRun {
		return fmt.Errorf("--user is required unless --dry-run is set")
	}

	cfg, err := config.LoadFrom(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	logger, err := internal.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if importDryRun {
		plan, err := healthimport.New(nil, logger, healthimport.WithScratchDir(cfg.ScratchDir)).
			Prepare(ctx, importUser, importFile, f)
		if err != nil {
			return err
		}
		printPlan(out, plan)
		return nil
	}

	repos, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repos.Close(closeCtx); err != nil {
			logger.Errorf("storage close: %v", err)
		}
	}()

	importer, closeArchive, err := bootstrap.NewImporter(ctx, cfg, repos, logger)
	if err != nil {
		return err
	}
	defer closeArchive()

	res, err := importer.Import(ctx, importUser, importFile, f)
	if err != nil {
		if res != nil {
			fmt.Fprintf(out, "imported %d sessions before failing\n", res.Imported)
		}
		return err
	}
	fmt.Fprintf(out, "imported %d new sessions (%d already present)\n", res.Imported, res.Existing)
	return nil
}

func printPlan(w io.Writer, plan *healthimport.Plan) {
	fmt.Fprintf(w, "%d segments, %d skipped, %d sessions\n", plan.Segments, plan.Skipped, len(plan.Sessions))
	for _, s := range plan.Sessions {
		fmt.Fprintf(w, "%s  %s  %5.2fh  quality=%d  stage=%s\n",
			s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339), s.Hours(), s.Quality, s.Stage)
	}
}

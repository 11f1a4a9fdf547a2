package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintel/internal/export"
	"github.com/joseph-ayodele/docintel/internal/ingest"
)

func newBatchCmd(g *globals) *cobra.Command {
	var (
		out        string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Analyze every supported file under DIR and write an XLSX report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if out == "" {
				out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "docintel-report.xlsx")
			}

			a, err := g.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			var store ingest.DocumentStore
			if a.Docs != nil {
				store = a.Docs
			}
			ing := ingest.NewFSIngestor(a.Processor, store, g.logger)
			results, stats, err := ing.IngestDirectory(cmd.Context(), g.scope(), dir, skipHidden)
			if err != nil {
				return err
			}

			xlsx, err := export.NewService(nil, g.logger).IngestReportXLSX(results, stats)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, xlsx, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"analyzed %d files: %d accepted, %d warned, %d rejected, %d failed; report %s\n",
				stats.Matched, stats.Accepted, stats.Warned, stats.Rejected, stats.Failed, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "report path (default: next to DIR)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dotfiles and dot-directories")
	return cmd
}

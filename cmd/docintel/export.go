package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(g *globals) *cobra.Command {
	var (
		out   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the company's recent catalog entries to an XLSX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.companyID == "" {
				return fmt.Errorf("--company is required")
			}
			if g.noCatalog {
				return fmt.Errorf("export reads the catalog; drop --no-catalog")
			}
			a, err := g.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			xlsx, err := a.Exporter.DocumentsXLSX(cmd.Context(), g.companyID, limit)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, xlsx, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "documents.xlsx", "output path")
	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum rows")
	return cmd
}

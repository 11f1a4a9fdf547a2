package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintel/internal/app"
	"github.com/joseph-ayodele/docintel/internal/common"
	"github.com/joseph-ayodele/docintel/internal/ingest"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	companyID string
	userID    string
	context   string
	noCatalog bool
	verbose   bool

	cfg    *common.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "docintel",
		Short:         "Duplicate detection and relevance scoring for uploaded business documents.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			g.cfg = common.LoadConfig()
			if g.verbose {
				g.cfg.Logging.Level = "debug"
			}
			g.logger = common.NewLogger(g.cfg.Logging)
			slog.SetDefault(g.logger)
			return g.cfg.Validate(false)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.companyID, "company", os.Getenv("DOCINTEL_COMPANY_ID"), "company the uploads belong to")
	pf.StringVar(&g.userID, "user", os.Getenv("DOCINTEL_USER_ID"), "uploader id")
	pf.StringVar(&g.context, "context", "generic_business", "upload context (expense_receipt, vendor_invoice, ...)")
	pf.BoolVar(&g.noCatalog, "no-catalog", false, "skip the document catalog; duplicate detection sees no history")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newAnalyzeCmd(g),
		newBatchCmd(g),
		newWatchCmd(g),
		newExportCmd(g),
		newMigrateCmd(g),
		newDBHealthCmd(g),
	)
	return root
}

func (g *globals) scope() ingest.Scope {
	return ingest.Scope{CompanyID: g.companyID, UserID: g.userID, Context: g.context}
}

// build wires the processor; the catalog is opened unless --no-catalog was given.
func (g *globals) build(ctx context.Context, migrate bool) (*app.App, error) {
	useCatalog := !g.noCatalog
	if useCatalog && g.cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DB_URL is required (or pass --no-catalog)")
	}
	return app.Build(ctx, g.cfg, app.Options{UseCatalog: useCatalog, Migrate: migrate, Publish: true}, g.logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/core"
	"github.com/joseph-ayodele/docintel/internal/server"
)

func newAnalyzeCmd(g *globals) *cobra.Command {
	var (
		strict    bool
		exactOnly bool
		store     bool
		remote    string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze one file and print the decision as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			req := core.AnalyzeRequest{
				Filename:  filepath.Base(path),
				MimeType:  constants.MimeTypeForExt(filepath.Ext(path)),
				Content:   content,
				Context:   g.context,
				CompanyID: g.companyID,
				UserID:    g.userID,
				Options:   core.AnalyzeOptions{StrictMode: strict, ExactOnly: exactOnly},
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if remote != "" {
				return analyzeRemote(ctx, cmd, remote, req, store)
			}

			a, err := g.build(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Processor.Analyze(ctx, req)
			if err != nil {
				g.logger.Warn("analysis returned the safe default", "error", err)
			}
			if err == nil && store && a.Docs != nil && res.Catalogable() {
				if _, _, err := a.Docs.UpsertByChecksum(ctx, res.Document(g.companyID, g.userID, int64(len(content)), time.Now())); err != nil {
					return fmt.Errorf("store document: %w", err)
				}
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&strict, "strict", false, "strict relevance scoring")
	f.BoolVar(&exactOnly, "exact-only", false, "stop duplicate detection after the checksum stage")
	f.BoolVar(&store, "store", false, "add the document to the catalog unless rejected")
	f.StringVar(&remote, "remote", "", "analyze through a docinteld gRPC address instead of locally")
	f.DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	return cmd
}

func analyzeRemote(ctx context.Context, cmd *cobra.Command, addr string, req core.AnalyzeRequest, store bool) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	ctx = metadata.AppendToOutgoingContext(ctx, server.MetadataCompanyID, req.CompanyID, server.MetadataUserID, req.UserID)
	resp, err := server.NewIntelligenceClient(conn).Analyze(ctx, &server.AnalyzeRequest{AnalyzeRequest: req, Store: store})
	if err != nil {
		return fmt.Errorf("remote analyze: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

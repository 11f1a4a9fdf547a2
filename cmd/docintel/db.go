package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	repo "github.com/joseph-ayodele/docintel/internal/repository"
	"github.com/joseph-ayodele/docintel/internal/server"
)

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending catalog migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := g.cfg.Validate(true); err != nil {
				return err
			}
			db, err := server.ConnectDB(cmd.Context(), g.cfg.Database, true, g.logger)
			if err != nil {
				return err
			}
			defer repo.Close(db, g.logger)
			v, err := repo.MigrationVersion(cmd.Context(), db)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "catalog at version %d\n", v)
			return nil
		},
	}
}

func newDBHealthCmd(g *globals) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "dbhealth",
		Short: "Check the catalog database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := g.cfg.Validate(true); err != nil {
				return err
			}
			db, err := server.ConnectDB(cmd.Context(), g.cfg.Database, false, g.logger)
			if err != nil {
				return err
			}
			defer repo.Close(db, g.logger)
			if err := server.PingDB(cmd.Context(), db, g.logger, timeout); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "DB health OK")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "ping timeout")
	return cmd
}

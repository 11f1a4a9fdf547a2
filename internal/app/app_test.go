package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/common"
	"github.com/joseph-ayodele/docintel/internal/core"
)

func sqliteConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.LoadConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "catalog.db")
	cfg.Events.NATSURL = ""
	cfg.OCR.RemoteURL = ""
	cfg.Relevance.RulesPath = ""
	return cfg
}

func TestBuild_WithCatalogDetectsResubmission(t *testing.T) {
	cfg := sqliteConfig(t)
	a, err := Build(context.Background(), cfg, Options{UseCatalog: true, Migrate: true, Publish: true}, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.Docs)
	require.NoError(t, a.Health(context.Background()))

	text := "ACME SUPPLIES LLC\nInvoice #INV-2024-001\nDate: 2024-03-01\nTotal: $125.00\nThank you for your business"
	req := core.AnalyzeRequest{
		Filename:  "invoice.txt",
		Content:   []byte(text),
		Context:   "vendor_invoice",
		CompanyID: "acme",
		UserID:    "u1",
	}
	first, err := a.Processor.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, first.Duplicates.Exact)

	_, existed, err := a.Docs.UpsertByChecksum(context.Background(), first.Document("acme", "u1", int64(len(text)), time.Now()))
	require.NoError(t, err)
	assert.False(t, existed)

	again, err := a.Processor.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, again.Duplicates.Exact, 1)
	assert.Equal(t, constants.RecommendationReject, again.Decision.Recommendation)

	w := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "docintel_analysis_total")
}

func TestBuild_WithoutCatalog(t *testing.T) {
	cfg := sqliteConfig(t)
	a, err := Build(context.Background(), cfg, Options{}, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.DB)
	assert.NoError(t, a.Health(context.Background()))
}

func TestBuild_BadRulesPath(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Relevance.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Build(context.Background(), cfg, Options{}, nil)
	assert.ErrorContains(t, err, "relevance rules")
}

func TestBuild_CustomRules(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "relevance", "rules.yaml"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, src, 0o644))

	cfg := sqliteConfig(t)
	cfg.Relevance.RulesPath = path
	a, err := Build(context.Background(), cfg, Options{}, nil)
	require.NoError(t, err)
	a.Close()
}

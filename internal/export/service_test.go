package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docintel/internal/entity"
	"github.com/joseph-ayodele/docintel/internal/ingest"
)

type fakeLister struct {
	docs []*entity.Document
	err  error
	got  struct {
		company string
		limit   int
	}
}

func (f *fakeLister) ListRecent(_ context.Context, companyID string, limit int) ([]*entity.Document, error) {
	f.got.company, f.got.limit = companyID, limit
	return f.docs, f.err
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestIngestReportXLSX(t *testing.T) {
	results := []ingest.IngestionResult{
		{SourcePath: "/in/a.pdf", Recommendation: "accept", Action: "proceed", OverallScore: 0.9, Stored: true, DocumentID: "d1"},
		{SourcePath: "/in/b.jpg", Recommendation: "reject", Action: "block", ExactDuplicates: 1, Warnings: []string{"dup", "blurry"}},
		{SourcePath: "/in/c.txt", Err: "read: permission denied"},
	}
	stats := ingest.DirStats{Scanned: 4, Matched: 3, Succeeded: 2, Accepted: 1, Rejected: 1, Stored: 1, Failed: 1}

	b, err := NewService(nil, nil).IngestReportXLSX(results, stats)
	require.NoError(t, err)

	f := open(t, b)
	assert.Equal(t, []string{ResultsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, "/in/b.jpg", rows[2][0])
	assert.Equal(t, "reject", rows[2][1])
	assert.Equal(t, "dup; blurry", rows[2][10])
	assert.Equal(t, "read: permission denied", rows[3][11])

	v, err := f.GetCellValue(SummarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestDocumentsXLSX(t *testing.T) {
	lister := &fakeLister{docs: []*entity.Document{{
		ID:               "d1",
		OriginalFilename: "receipt.pdf",
		Category:         "expense_receipt",
		UploadedBy:       "u1",
		FileSize:         2048,
		CreatedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Fingerprint:      entity.DocumentFingerprint{Checksum: "abc"},
		Entities: entity.BusinessEntities{
			Amounts: []entity.Amount{{Value: decimal.RequireFromString("12.5"), Currency: "USD"}},
			Vendors: []entity.Vendor{{Name: "Acme Corp"}},
		},
	}}}

	b, err := NewService(lister, nil).DocumentsXLSX(context.Background(), "acme", 50)
	require.NoError(t, err)
	assert.Equal(t, "acme", lister.got.company)
	assert.Equal(t, 50, lister.got.limit)

	rows, err := open(t, b).GetRows(DocumentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "2026-01-02T03:04:05Z", row[0])
	assert.Equal(t, "receipt.pdf", row[1])
	assert.Equal(t, "2.0 kB", row[4])
	assert.Equal(t, "USD 12.50", row[5])
	assert.Equal(t, "Acme Corp", row[7])
	assert.Equal(t, "abc", row[8])
}

func TestDocumentsXLSX_QueryError(t *testing.T) {
	_, err := NewService(&fakeLister{err: errors.New("db down")}, nil).DocumentsXLSX(context.Background(), "acme", 10)
	assert.ErrorContains(t, err, "db down")
}

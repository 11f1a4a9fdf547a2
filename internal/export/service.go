package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docintel/internal/entity"
	"github.com/joseph-ayodele/docintel/internal/ingest"
)

const (
	ResultsSheet   = "Results"
	SummarySheet   = "Summary"
	DocumentsSheet = "Documents"
)

// DocumentLister is the slice of the catalog the exporter reads.
type DocumentLister interface {
	ListRecent(ctx context.Context, companyID string, limit int) ([]*entity.Document, error)
}

// Service produces XLSX bytes for ingest reports and catalog dumps.
type Service struct {
	docs   DocumentLister
	logger *slog.Logger
}

func NewService(docs DocumentLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// IngestReportXLSX writes one row per ingested file plus a summary sheet built from stats.
func (s *Service) IngestReportXLSX(results []ingest.IngestionResult, stats ingest.DirStats) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := useSheet(f, ResultsSheet); err != nil {
		return nil, err
	}
	headers := []string{
		"File", "Recommendation", "Action", "Overall Score", "Warning Level",
		"Exact Duplicates", "Potential Duplicates", "Stored", "Document ID",
		"Checksum", "Warnings", "Error",
	}
	writeRow(f, ResultsSheet, 1, toAny(headers))
	for i, r := range results {
		writeRow(f, ResultsSheet, i+2, []any{
			r.SourcePath,
			r.Recommendation,
			r.Action,
			r.OverallScore,
			r.WarningLevel,
			r.ExactDuplicates,
			r.PotentialDuplicates,
			r.Stored,
			r.DocumentID,
			r.Checksum,
			truncate(strings.Join(r.Warnings, "; "), 240),
			r.Err,
		})
	}
	_ = f.SetColWidth(ResultsSheet, "A", "A", 60)
	_ = f.SetColWidth(ResultsSheet, "B", "E", 16)
	_ = f.SetColWidth(ResultsSheet, "I", "J", 38)
	_ = f.SetColWidth(ResultsSheet, "K", "L", 60)

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Scanned", stats.Scanned},
		{"Matched", stats.Matched},
		{"Succeeded", stats.Succeeded},
		{"Accepted", stats.Accepted},
		{"Warned", stats.Warned},
		{"Rejected", stats.Rejected},
		{"Stored", stats.Stored},
		{"Failed", stats.Failed},
	}
	for i, row := range summary {
		writeRow(f, SummarySheet, i+1, row)
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "report", "ingest", "rows", len(results),
		"size", humanize.Bytes(uint64(buf.Len())), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// DocumentsXLSX dumps up to limit of the company's most recent catalog entries.
func (s *Service) DocumentsXLSX(ctx context.Context, companyID string, limit int) ([]byte, error) {
	start := time.Now()
	docs, err := s.docs.ListRecent(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := useSheet(f, DocumentsSheet); err != nil {
		return nil, err
	}
	headers := []string{
		"Uploaded At", "Filename", "Category", "Uploaded By", "Size",
		"Amounts", "Dates", "Vendors", "Checksum", "Perceptual Hash", "Document ID",
	}
	writeRow(f, DocumentsSheet, 1, toAny(headers))
	for i, d := range docs {
		writeRow(f, DocumentsSheet, i+2, []any{
			d.CreatedAt.UTC().Format(time.RFC3339),
			d.OriginalFilename,
			d.Category,
			d.UploadedBy,
			humanize.Bytes(uint64(d.FileSize)),
			amounts(d.Entities.Amounts),
			dates(d.Entities.Dates),
			vendors(d.Entities.Vendors),
			d.Fingerprint.Checksum,
			d.Fingerprint.PerceptualHash,
			d.ID,
		})
	}
	_ = f.SetColWidth(DocumentsSheet, "A", "A", 22)
	_ = f.SetColWidth(DocumentsSheet, "B", "B", 40)
	_ = f.SetColWidth(DocumentsSheet, "F", "H", 30)
	_ = f.SetColWidth(DocumentsSheet, "I", "K", 38)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "report", "documents", "company_id", companyID,
		"rows", len(docs), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// useSheet renames the default sheet so the workbook has no empty Sheet1.
func useSheet(f *excelize.File, name string) error {
	def := f.GetSheetName(0)
	if def != name {
		if err := f.SetSheetName(def, name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func amounts(as []entity.Amount) string {
	vals := make([]string, 0, len(as))
	for _, a := range as {
		v := a.Value.StringFixed(2)
		if a.Currency != "" {
			v = a.Currency + " " + v
		}
		vals = append(vals, v)
	}
	return strings.Join(vals, ", ")
}

func dates(ds []entity.Date) string {
	vals := make([]string, 0, len(ds))
	for _, d := range ds {
		vals = append(vals, d.Value)
	}
	return strings.Join(vals, ", ")
}

func vendors(vs []entity.Vendor) string {
	vals := make([]string, 0, len(vs))
	for _, v := range vs {
		vals = append(vals, v.Name)
	}
	return strings.Join(vals, ", ")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

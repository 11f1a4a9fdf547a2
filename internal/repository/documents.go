package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

const (
	documentsTable        = "documents"
	defaultCandidateLimit = 200
)

// ErrNotFound is returned when no document matches.
var ErrNotFound = errors.New("document not found")

var documentColumns = []string{
	"id", "company_id", "uploaded_by", "filename", "original_filename", "category",
	"checksum", "perceptual_hash", "entities", "text_length", "file_size", "created_at_ms",
}

// CandidateQuery scopes a duplicate-candidate lookup. A document is visible when it was
// uploaded by UserID or belongs to CompanyID.
type CandidateQuery struct {
	CompanyID string
	UserID    string
	Since     time.Time
	Limit     int
	ExcludeID string
}

type DocumentRepository interface {
	FindCandidates(ctx context.Context, q CandidateQuery) ([]entity.DuplicateCandidate, error)
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByChecksum(ctx context.Context, companyID, checksum string) (*entity.Document, error)
	Create(ctx context.Context, doc *entity.Document) (*entity.Document, error)
	UpsertByChecksum(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error)
	ListRecent(ctx context.Context, companyID string, limit int) ([]*entity.Document, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger, now: time.Now}
}

func (r *documentRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect())
}

func (r *documentRepo) FindCandidates(ctx context.Context, q CandidateQuery) ([]entity.DuplicateCandidate, error) {
	if q.CompanyID == "" && q.UserID == "" {
		return []entity.DuplicateCandidate{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	visible := make([]*entsql.Predicate, 0, 2)
	if q.UserID != "" {
		visible = append(visible, entsql.EQ("uploaded_by", q.UserID))
	}
	if q.CompanyID != "" {
		visible = append(visible, entsql.EQ("company_id", q.CompanyID))
	}
	preds := []*entsql.Predicate{entsql.Or(visible...)}
	if !q.Since.IsZero() {
		preds = append(preds, entsql.GTE("created_at_ms", q.Since.UnixMilli()))
	}
	if q.ExcludeID != "" {
		preds = append(preds, entsql.NEQ("id", q.ExcludeID))
	}

	query, args := r.builder().
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("created_at_ms")).
		Limit(limit).
		Query()

	docs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to find duplicate candidates", "company_id", q.CompanyID, "user_id", q.UserID, "error", err)
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	out := make([]entity.DuplicateCandidate, len(docs))
	for i, d := range docs {
		out[i] = d.ToCandidate()
	}
	r.logger.Debug("duplicate candidates loaded", "company_id", q.CompanyID, "user_id", q.UserID, "count", len(out))
	return out, nil
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query, args := r.builder().
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	return r.one(ctx, query, args)
}

func (r *documentRepo) GetByChecksum(ctx context.Context, companyID, checksum string) (*entity.Document, error) {
	query, args := r.builder().
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.And(entsql.EQ("company_id", companyID), entsql.EQ("checksum", checksum))).
		Query()
	return r.one(ctx, query, args)
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	row := *doc
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.now()
	}
	entities, err := json.Marshal(row.Entities)
	if err != nil {
		return nil, fmt.Errorf("encode entities: %w", err)
	}

	query, args := r.builder().
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(row.ID, row.CompanyID, row.UploadedBy, row.Filename, row.OriginalFilename, row.Category,
			row.Fingerprint.Checksum, row.Fingerprint.PerceptualHash, string(entities), row.TextLength, row.FileSize,
			row.CreatedAt.UnixMilli()).
		Query()
	if _, err := r.db.SQL().ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to create document", "company_id", row.CompanyID, "filename", row.Filename, "error", err)
		return nil, fmt.Errorf("create document: %w", err)
	}
	row.CreatedAt = time.UnixMilli(row.CreatedAt.UnixMilli())
	return &row, nil
}

// UpsertByChecksum returns the existing document for the company's checksum, or creates one.
// The bool reports whether the document already existed.
func (r *documentRepo) UpsertByChecksum(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	existing, err := r.GetByChecksum(ctx, doc.CompanyID, doc.Fingerprint.Checksum)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	row, err := r.Create(ctx, doc)
	if err != nil {
		r.logger.Error("failed to upsert document by checksum", "company_id", doc.CompanyID, "filename", doc.Filename, "error", err)
		return nil, false, err
	}
	return row, false, nil
}

func (r *documentRepo) ListRecent(ctx context.Context, companyID string, limit int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	query, args := r.builder().
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.EQ("company_id", companyID)).
		OrderBy(entsql.Desc("created_at_ms")).
		Limit(limit).
		Query()
	docs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) one(ctx context.Context, query string, args []any) (*entity.Document, error) {
	docs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (r *documentRepo) query(ctx context.Context, query string, args []any) ([]*entity.Document, error) {
	rows, err := r.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDocument(rows *sql.Rows) (*entity.Document, error) {
	var (
		d         entity.Document
		entities  string
		createdMS int64
	)
	if err := rows.Scan(&d.ID, &d.CompanyID, &d.UploadedBy, &d.Filename, &d.OriginalFilename, &d.Category,
		&d.Fingerprint.Checksum, &d.Fingerprint.PerceptualHash, &entities, &d.TextLength, &d.FileSize, &createdMS); err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.CreatedAt = time.UnixMilli(createdMS)
	d.Entities = decodeEntities(entities)
	return &d, nil
}

// decodeEntities tolerates malformed rows; the detector skips candidates with no entities.
func decodeEntities(raw string) entity.BusinessEntities {
	var e entity.BusinessEntities
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &e)
	}
	return e.Normalized()
}

package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

func openTestCatalog(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "catalog.db")
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, Migrate(ctx, db, nil))
	return db
}

func TestSQLiteCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestCatalog(t)
	repo := NewDocumentRepository(db, nil)

	v, err := MigrationVersion(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	require.NoError(t, HealthCheck(ctx, db, time.Second, nil))

	now := time.Now()
	ents := entity.BusinessEntities{
		Amounts: []entity.Amount{{Value: decimal.RequireFromString("42.50"), Raw: "$42.50", Confidence: 0.9}},
		Vendors: []entity.Vendor{{Name: "Acme LLC", Normalized: "acme", Confidence: 0.8}},
	}.Normalized()

	docs := []*entity.Document{
		{CompanyID: "c1", UploadedBy: "u1", Filename: "old.pdf", Fingerprint: entity.DocumentFingerprint{Checksum: "old"}, CreatedAt: now.AddDate(0, 0, -200)},
		{CompanyID: "c1", UploadedBy: "u2", Filename: "team.pdf", Fingerprint: entity.DocumentFingerprint{Checksum: "team", PerceptualHash: "ffff0000ffff0000"}, Entities: ents, CreatedAt: now.AddDate(0, 0, -10)},
		{CompanyID: "c2", UploadedBy: "u1", Filename: "mine.pdf", Fingerprint: entity.DocumentFingerprint{Checksum: "mine"}, CreatedAt: now.AddDate(0, 0, -5)},
		{CompanyID: "c3", UploadedBy: "u3", Filename: "other.pdf", Fingerprint: entity.DocumentFingerprint{Checksum: "other"}, CreatedAt: now.AddDate(0, 0, -1)},
	}
	for _, d := range docs {
		_, existed, err := repo.UpsertByChecksum(ctx, d)
		require.NoError(t, err)
		assert.False(t, existed)
	}

	_, existed, err := repo.UpsertByChecksum(ctx, &entity.Document{CompanyID: "c1", UploadedBy: "u9", Filename: "again.pdf", Fingerprint: entity.DocumentFingerprint{Checksum: "team"}})
	require.NoError(t, err)
	assert.True(t, existed)

	got, err := repo.FindCandidates(ctx, CandidateQuery{CompanyID: "c1", UserID: "u1", Since: now.AddDate(0, 0, -90)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mine.pdf", got[0].Filename)
	assert.Equal(t, "team.pdf", got[1].Filename)
	assert.Equal(t, "ffff0000ffff0000", got[1].Fingerprint.PerceptualHash)
	require.Len(t, got[1].Entities.Amounts, 1)
	assert.True(t, got[1].Entities.Amounts[0].Value.Equal(decimal.RequireFromString("42.5")))

	limited, err := repo.FindCandidates(ctx, CandidateQuery{CompanyID: "c1", UserID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "mine.pdf", limited[0].Filename)

	excluded, err := repo.FindCandidates(ctx, CandidateQuery{CompanyID: "c1", ExcludeID: got[1].ID})
	require.NoError(t, err)
	require.Len(t, excluded, 1)
	assert.Equal(t, "old.pdf", excluded[0].Filename)

	recent, err := repo.ListRecent(ctx, "c1", 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	byID, err := repo.GetByID(ctx, got[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "c2", byID.CompanyID)
}

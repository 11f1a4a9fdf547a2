package duplicate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

func TestContentSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    entity.BusinessEntities
		want    float64
		factors int
		vendor  bool
		amt     bool
		email   bool
	}{
		{
			name:    "vendor and exact amount",
			a:       entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}, Amounts: []entity.Amount{amount("100.00")}},
			b:       entity.BusinessEntities{Vendors: []entity.Vendor{vendor("ACME LLC")}, Amounts: []entity.Amount{amount("100.00")}},
			want:    0.35,
			factors: 2,
			vendor:  true,
			amt:     true,
		},
		{
			name:    "near amount gives partial credit without flag",
			a:       entity.BusinessEntities{Amounts: []entity.Amount{amount("100.00")}},
			b:       entity.BusinessEntities{Amounts: []entity.Amount{amount("103.00")}},
			want:    0.2,
			factors: 1,
		},
		{
			name:    "exact amount wins over near amount",
			a:       entity.BusinessEntities{Amounts: []entity.Amount{amount("100.00"), amount("50.00")}},
			b:       entity.BusinessEntities{Amounts: []entity.Amount{amount("102.00"), amount("50.01")}},
			want:    0.3,
			factors: 1,
			amt:     true,
		},
		{
			name:    "amounts too far apart",
			a:       entity.BusinessEntities{Amounts: []entity.Amount{amount("100.00")}},
			b:       entity.BusinessEntities{Amounts: []entity.Amount{amount("200.00")}},
			want:    0,
			factors: 1,
		},
		{
			name:    "email case-insensitive",
			a:       entity.BusinessEntities{Emails: []entity.Email{{Value: "Billing@Acme.com"}}},
			b:       entity.BusinessEntities{Emails: []entity.Email{{Value: "billing@acme.com"}}},
			want:    0.3,
			factors: 1,
			email:   true,
		},
		{
			name:    "dissimilar vendors",
			a:       entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}},
			b:       entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Globex Corporation")}},
			want:    0,
			factors: 1,
		},
		{
			name:    "one side empty",
			a:       entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}},
			b:       entity.BusinessEntities{Amounts: []entity.Amount{amount("1.00")}},
			want:    0,
			factors: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContentSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got.Similarity, 1e-12)
			assert.Equal(t, tt.factors, got.FactorsCompared)
			assert.Equal(t, tt.vendor, got.VendorMatch)
			assert.Equal(t, tt.amt, got.AmountMatch)
			assert.Equal(t, tt.email, got.EmailMatch)
			assert.GreaterOrEqual(t, got.Similarity, 0.0)
			assert.LessOrEqual(t, got.Similarity, 1.0)
		})
	}
}

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("Acme LLC", "ACME LLC"))
	assert.Equal(t, 1.0, StringSimilarity("", ""))
	assert.InDelta(t, 0.75, StringSimilarity("acme llc", "acme inc"), 1e-12)
}

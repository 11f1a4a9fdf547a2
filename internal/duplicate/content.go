package duplicate

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

const (
	vendorSimilarityCutoff = 0.8
	vendorWeight           = 0.4
	amountExactWeight      = 0.3
	amountNearWeight       = 0.2
	emailWeight            = 0.3
)

var (
	amountExactTolerance = decimal.RequireFromString("0.01")
	amountNearRatio      = decimal.RequireFromString("0.05")
)

// ContentSimilarity compares two entity bags. Only categories present on both sides are
// compared, each contributes at most its own weight, and the sum is divided by the
// number of categories compared.
func ContentSimilarity(a, b entity.BusinessEntities) entity.ContentSimilarity {
	var (
		out   entity.ContentSimilarity
		score float64
	)

	if len(a.Vendors) > 0 && len(b.Vendors) > 0 {
		out.FactorsCompared++
		if vendorsMatch(a.Vendors, b.Vendors) {
			out.VendorMatch = true
			score += vendorWeight
		}
	}

	if len(a.Amounts) > 0 && len(b.Amounts) > 0 {
		out.FactorsCompared++
		exact, near := amountsMatch(a.Amounts, b.Amounts)
		switch {
		case exact:
			out.AmountMatch = true
			score += amountExactWeight
		case near:
			score += amountNearWeight
		}
	}

	if len(a.Emails) > 0 && len(b.Emails) > 0 {
		out.FactorsCompared++
		if emailsMatch(a.Emails, b.Emails) {
			out.EmailMatch = true
			score += emailWeight
		}
	}

	if out.FactorsCompared > 0 {
		out.Similarity = clamp01(score / float64(out.FactorsCompared))
	}
	return out
}

// StringSimilarity is 1 - levenshtein/maxLen over lower-cased runes.
func StringSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	la, lb := len([]rune(a)), len([]rune(b))
	n := max(la, lb)
	if n == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(n)
}

func vendorKey(v entity.Vendor) string {
	if v.Normalized != "" {
		return v.Normalized
	}
	return strings.Join(strings.Fields(strings.ToLower(v.Name)), " ")
}

func vendorsMatch(a, b []entity.Vendor) bool {
	for _, x := range a {
		for _, y := range b {
			if StringSimilarity(vendorKey(x), vendorKey(y)) > vendorSimilarityCutoff {
				return true
			}
		}
	}
	return false
}

func amountsMatch(a, b []entity.Amount) (exact, near bool) {
	for _, x := range a {
		for _, y := range b {
			diff := x.Value.Sub(y.Value).Abs()
			if diff.LessThanOrEqual(amountExactTolerance) {
				return true, false
			}
			base := decimal.Max(x.Value.Abs(), y.Value.Abs())
			if base.IsPositive() && diff.Div(base).LessThanOrEqual(amountNearRatio) {
				near = true
			}
		}
	}
	return false, near
}

func emailsMatch(a, b []entity.Email) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(strings.TrimSpace(x.Value), strings.TrimSpace(y.Value)) {
				return true
			}
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

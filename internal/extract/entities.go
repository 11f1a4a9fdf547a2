package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

const (
	vendorSuffixConfidence = 0.8
	vendorLabelConfidence  = 0.7
)

// EntityExtractor pulls business entities out of raw text by pattern matching.
// It is safe for concurrent use; the pattern table is never mutated.
type EntityExtractor struct {
	patterns Patterns
}

func NewEntityExtractor(p Patterns) *EntityExtractor {
	if p.VendorScanLines <= 0 {
		p.VendorScanLines = 5
	}
	return &EntityExtractor{patterns: p}
}

// Extract never fails: no matches produce empty lists. Overlapping matches from
// different patterns are all kept.
func (x *EntityExtractor) Extract(text string) entity.BusinessEntities {
	out := entity.BusinessEntities{
		Amounts:      []entity.Amount{},
		Dates:        []entity.Date{},
		Vendors:      []entity.Vendor{},
		Addresses:    []entity.Address{},
		PhoneNumbers: []entity.Phone{},
		Emails:       []entity.Email{},
	}
	if strings.TrimSpace(text) == "" {
		return out
	}

	out.Amounts = x.amounts(text)
	for _, p := range x.patterns.Dates {
		for _, loc := range p.Re.FindAllStringIndex(text, -1) {
			out.Dates = append(out.Dates, entity.Date{
				Value:      text[loc[0]:loc[1]],
				Format:     p.Name,
				Confidence: p.Confidence,
				Position:   loc[0],
			})
		}
	}
	for _, p := range x.patterns.Emails {
		for _, loc := range p.Re.FindAllStringIndex(text, -1) {
			out.Emails = append(out.Emails, entity.Email{
				Value:      strings.ToLower(text[loc[0]:loc[1]]),
				Confidence: p.Confidence,
				Position:   loc[0],
			})
		}
	}
	for _, p := range x.patterns.Phones {
		for _, loc := range p.Re.FindAllStringIndex(text, -1) {
			raw := strings.TrimSpace(text[loc[0]:loc[1]])
			out.PhoneNumbers = append(out.PhoneNumbers, entity.Phone{
				Value:      raw,
				Digits:     digitsOnly(raw),
				Confidence: p.Confidence,
				Position:   loc[0],
			})
		}
	}
	for _, p := range x.patterns.Addresses {
		for _, loc := range p.Re.FindAllStringIndex(text, -1) {
			out.Addresses = append(out.Addresses, entity.Address{
				Value:      strings.TrimSpace(text[loc[0]:loc[1]]),
				Confidence: p.Confidence,
				Position:   loc[0],
			})
		}
	}
	out.Vendors = x.vendors(text)
	return out
}

func (x *EntityExtractor) amounts(text string) []entity.Amount {
	out := []entity.Amount{}
	for _, p := range x.patterns.Amounts {
		for _, m := range p.Re.FindAllStringSubmatchIndex(text, -1) {
			var numRaw, cur string
			switch p.Name {
			case "symbol":
				cur = currencySymbols[text[m[2]:m[3]]]
				numRaw = text[m[4]:m[5]]
			case "iso_prefix":
				cur = strings.ToUpper(text[m[2]:m[3]])
				numRaw = text[m[4]:m[5]]
			case "iso_suffix":
				numRaw = text[m[2]:m[3]]
				cur = strings.ToUpper(text[m[4]:m[5]])
			default:
				numRaw = text[m[2]:m[3]]
			}
			v, err := decimal.NewFromString(strings.ReplaceAll(numRaw, ",", ""))
			if err != nil {
				continue
			}
			out = append(out, entity.Amount{
				Value:      v,
				Currency:   cur,
				Raw:        text[m[0]:m[1]],
				Confidence: p.Confidence,
				Position:   m[0],
			})
		}
	}
	return out
}

// vendors scans the leading lines for legal-entity suffixes, then labelled lines.
func (x *EntityExtractor) vendors(text string) []entity.Vendor {
	out := []entity.Vendor{}
	offset, seen := 0, 0
	for _, line := range strings.SplitAfter(text, "\n") {
		start := offset
		offset += len(line)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		seen++
		if seen > x.patterns.VendorScanLines {
			break
		}
		locs := x.patterns.VendorSuffix.FindAllStringIndex(line, -1)
		if len(locs) == 0 {
			continue
		}
		// "Acme Services LLC" ends at the last suffix
		end := locs[len(locs)-1][1]
		name := strings.TrimSpace(strings.TrimLeft(line[:end], " \t-*#"))
		if name == "" {
			continue
		}
		out = append(out, entity.Vendor{
			Name:       name,
			Normalized: NormalizeVendor(name),
			Confidence: vendorSuffixConfidence,
			Position:   start + strings.Index(line, name),
		})
	}
	if x.patterns.VendorLabel != nil {
		for _, m := range x.patterns.VendorLabel.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			out = append(out, entity.Vendor{
				Name:       name,
				Normalized: NormalizeVendor(name),
				Confidence: vendorLabelConfidence,
				Position:   m[2],
			})
		}
	}
	return out
}

// NormalizeVendor lower-cases and collapses whitespace for comparison.
func NormalizeVendor(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

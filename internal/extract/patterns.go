package extract

import (
	"regexp"
)

// Pattern is one compiled matcher with the confidence assigned to every hit.
type Pattern struct {
	Name       string
	Re         *regexp.Regexp
	Confidence float64
}

// Patterns is the immutable pattern table used by EntityExtractor.
// Order matters: entities are reported in pattern order, then text order.
type Patterns struct {
	Amounts   []Pattern
	Dates     []Pattern
	Emails    []Pattern
	Phones    []Pattern
	Addresses []Pattern

	// VendorSuffix matches legal-entity suffixes in letterhead lines.
	VendorSuffix *regexp.Regexp
	// VendorLabel matches "Vendor: X" style lines anywhere in the text.
	VendorLabel *regexp.Regexp
	// VendorScanLines bounds how many leading non-empty lines are searched for suffixes.
	VendorScanLines int
}

const number = `(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`

const currencyCodes = `USD|EUR|GBP|CAD|AUD|JPY|INR|CHF|NZD|MXN`

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

// DefaultPatterns returns the built-in pattern table.
func DefaultPatterns() Patterns {
	return Patterns{
		Amounts: []Pattern{
			{Name: "symbol", Re: regexp.MustCompile(`([$€£¥])\s?` + number), Confidence: 0.9},
			{Name: "iso_prefix", Re: regexp.MustCompile(`(?i)\b(` + currencyCodes + `)\s?` + number), Confidence: 0.85},
			{Name: "iso_suffix", Re: regexp.MustCompile(`(?i)\b` + number + `\s?(` + currencyCodes + `)\b`), Confidence: 0.85},
			{Name: "labelled", Re: regexp.MustCompile(`(?i)\b(?:total|amount due|balance due|subtotal|amount)\s*:?\s*` + number), Confidence: 0.7},
		},
		Dates: []Pattern{
			{Name: "YYYY-MM-DD", Re: regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`), Confidence: 0.9},
			{Name: "MM/DD/YYYY", Re: regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), Confidence: 0.8},
			{Name: "MM-DD-YYYY", Re: regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`), Confidence: 0.75},
			{Name: "DD.MM.YYYY", Re: regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`), Confidence: 0.7},
			{Name: "Month DD, YYYY", Re: regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\.?\s+\d{1,2},?\s+\d{4}\b`), Confidence: 0.85},
			{Name: "DD Month YYYY", Re: regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:` + monthNames + `)\.?\s+\d{4}\b`), Confidence: 0.85},
		},
		Emails: []Pattern{
			{Name: "email", Re: regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), Confidence: 0.95},
		},
		Phones: []Pattern{
			{Name: "nanp", Re: regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\b\d{3}\)?[\s.\-]?\d{3}[\s.\-]\d{4}\b`), Confidence: 0.8},
			{Name: "international", Re: regexp.MustCompile(`\+\d{2,3}[\s.\-]?\d{2,4}[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}\b`), Confidence: 0.7},
		},
		Addresses: []Pattern{
			{Name: "street", Re: regexp.MustCompile(`(?i)\b\d{1,6}\s+(?:[a-z0-9.'\-]+\s+){0,4}(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|way|place|pl|parkway|pkwy|highway|hwy)\b\.?`), Confidence: 0.75},
			{Name: "po_box", Re: regexp.MustCompile(`(?i)\bp\.?\s?o\.?\s+box\s+\d+\b`), Confidence: 0.7},
			{Name: "city_state_zip", Re: regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)?, *[A-Z]{2} +\d{5}(?:-\d{4})?\b`), Confidence: 0.7},
		},
		VendorSuffix:    regexp.MustCompile(`(?i)\b(?:llc|inc|incorporated|corp|corporation|ltd|limited|company|services)\b\.?|\bl\.l\.c\.`),
		VendorLabel:     regexp.MustCompile(`(?im)^\s*(?:from|vendor|merchant|sold by|billed by|supplier)\s*:\s*(.+?)\s*$`),
		VendorScanLines: 5,
	}
}

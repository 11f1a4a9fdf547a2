package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiptText = `ACME SERVICES LLC
123 Main Street
Springfield, IL 62704
Phone: (555) 123-4567
billing@Acme.example.com

Invoice Date: 2024-03-15
Monthly service period March 1, 2024 - March 31, 2024

Description     Qty     Price
Hosting          1      $1,250.00
Support          1      $99.99
Total: 1349.99 USD
Thank you for your business`

func TestExtract_EmptyTextReturnsEmptyLists(t *testing.T) {
	x := NewEntityExtractor(DefaultPatterns())
	got := x.Extract("   \n ")
	assert.True(t, got.IsEmpty())
	assert.NotNil(t, got.Amounts)
	assert.NotNil(t, got.Vendors)
	assert.Equal(t, 0.0, got.MeanConfidence())
}

func TestExtract_Amounts(t *testing.T) {
	x := NewEntityExtractor(DefaultPatterns())
	got := x.Extract(receiptText)

	var values []string
	for _, a := range got.Amounts {
		values = append(values, a.Value.StringFixed(2))
	}
	assert.Contains(t, values, "1250.00")
	assert.Contains(t, values, "99.99")
	assert.Contains(t, values, "1349.99")

	first := got.Amounts[0]
	assert.True(t, first.Value.Equal(decimal.RequireFromString("1250")))
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, 0.9, first.Confidence)
}

func TestExtract_OverlappingMatchesAreKept(t *testing.T) {
	x := NewEntityExtractor(DefaultPatterns())
	got := x.Extract("Total: 1349.99 USD")
	// iso_suffix and labelled both hit the same number
	require.Len(t, got.Amounts, 2)
	assert.True(t, got.Amounts[0].Value.Equal(got.Amounts[1].Value))
	assert.Equal(t, got.Amounts[0].Position, got.Amounts[1].Position+len("Total: "))
}

func TestExtract_Dates(t *testing.T) {
	x := NewEntityExtractor(DefaultPatterns())
	got := x.Extract(receiptText)

	formats := map[string]string{}
	for _, d := range got.Dates {
		formats[d.Value] = d.Format
	}
	assert.Equal(t, "YYYY-MM-DD", formats["2024-03-15"])
	assert.Equal(t, "Month DD, YYYY", formats["March 1, 2024"])
	assert.Equal(t, "Month DD, YYYY", formats["March 31, 2024"])

	got = x.Extract("paid 03/04/2024 and 15 Jan 2023 and 01.02.2022")
	require.Len(t, got.Dates, 3)
	assert.Equal(t, "MM/DD/YYYY", got.Dates[0].Format)
	assert.Equal(t, "DD.MM.YYYY", got.Dates[1].Format)
	assert.Equal(t, "DD Month YYYY", got.Dates[2].Format)
}

func TestExtract_ContactDetails(t *testing.T) {
	x := NewEntityExtractor(DefaultPatterns())
	got := x.Extract(receiptText)

	require.Len(t, got.Emails, 1)
	assert.Equal(t, "billing@acme.example.com", got.Emails[0].Value)

	require.NotEmpty(t, got.PhoneNumbers)
	assert.Equal(t, "5551234567", got.PhoneNumbers[0].Digits)

	var addrs []string
	for _, a := range got.Addresses {
		addrs = append(addrs, a.Value)
	}
	assert.Contains(t, addrs, "123 Main Street")
	assert.Contains(t, addrs, "Springfield, IL 62704")
}

func TestExtract_VendorsFromLetterheadAndLabels(t *testing.T) {
	x := NewEntityExtractor(DefaultPatterns())
	got := x.Extract(receiptText)
	require.NotEmpty(t, got.Vendors)
	assert.Equal(t, "ACME SERVICES LLC", got.Vendors[0].Name)
	assert.Equal(t, "acme services llc", got.Vendors[0].Normalized)
	assert.Equal(t, 0, got.Vendors[0].Position)

	got = x.Extract("Receipt\nVendor: Blue Bottle Coffee\nTotal: 4.50")
	require.Len(t, got.Vendors, 1)
	assert.Equal(t, "Blue Bottle Coffee", got.Vendors[0].Name)
	assert.Equal(t, "blue bottle coffee", got.Vendors[0].Normalized)
	assert.Equal(t, vendorLabelConfidence, got.Vendors[0].Confidence)
}

func TestExtract_VendorScanIsBoundedToLeadingLines(t *testing.T) {
	p := DefaultPatterns()
	p.VendorScanLines = 2
	x := NewEntityExtractor(p)
	got := x.Extract("line one\nline two\nline three\nGlobex Corp")
	assert.Empty(t, got.Vendors)
}

func TestNormalizeVendor(t *testing.T) {
	assert.Equal(t, "acme llc", NormalizeVendor("  ACME   LLC "))
}

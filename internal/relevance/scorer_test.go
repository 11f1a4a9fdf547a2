package relevance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/entity"
)

func emptyEntities() entity.BusinessEntities {
	return entity.BusinessEntities{
		Amounts:      []entity.Amount{},
		Dates:        []entity.Date{},
		Vendors:      []entity.Vendor{},
		Addresses:    []entity.Address{},
		PhoneNumbers: []entity.Phone{},
		Emails:       []entity.Email{},
	}
}

func receiptEntities() entity.BusinessEntities {
	e := emptyEntities()
	e.Amounts = []entity.Amount{{Value: decimal.RequireFromString("10.80"), Currency: "USD", Raw: "$10.80", Confidence: 0.9}}
	e.Dates = []entity.Date{{Value: "2024-03-01", Format: "YYYY-MM-DD", Confidence: 0.9}}
	e.Vendors = []entity.Vendor{{Name: "ACME SERVICES LLC", Normalized: "acme services", Confidence: 0.9}}
	return e
}

func newTestScorer() *Scorer {
	return NewScorer(MustDefaultRules(), nil)
}

func TestScoreRichReceipt(t *testing.T) {
	res := newTestScorer().Score(Input{
		Entities:  receiptEntities(),
		Text:      "RECEIPT\nSubtotal 10.00\nTax 0.80\nTotal 10.80\nPayment: VISA",
		Structure: entity.StructureFlags{HasTable: true},
		File:      entity.FileInfo{Filename: "receipt_acme.jpg", MimeType: "image/jpeg", Size: 200 << 10},
		Context:   constants.ExpenseReceipt,
	}, Options{})

	assert.True(t, res.ContextMatch)
	assert.Empty(t, res.MissingElements)
	assert.Empty(t, res.ForbiddenDetected)
	assert.InDelta(t, 0.9, res.TechnicalQuality, 1e-9)
	assert.GreaterOrEqual(t, res.BusinessRelevance, 0.6)
	assert.InDelta(t, 1.0, res.OverallScore, 1e-9)
	assert.Equal(t, constants.WarningNone, res.WarningLevel)
	assert.Empty(t, res.Suggestions)
}

func TestScoreEmptyGenericDocument(t *testing.T) {
	res := newTestScorer().Score(Input{
		Entities: emptyEntities(),
		File:     entity.FileInfo{Filename: "scan.pdf", MimeType: "application/pdf", Size: 200 << 10},
		Context:  constants.GenericBusiness,
	}, Options{})

	assert.Zero(t, res.BusinessRelevance)
	assert.True(t, res.ContextMatch)
	assert.InDelta(t, 0.38, res.OverallScore, 1e-9)
	assert.Equal(t, constants.WarningError, res.WarningLevel)
	require.NotEmpty(t, res.Suggestions)
	assert.Equal(t, MustDefaultRules().For(constants.GenericBusiness).Suggestion, res.Suggestions[len(res.Suggestions)-1])
}

func TestScoreReceiptMissingAmountAndDate(t *testing.T) {
	e := emptyEntities()
	e.Vendors = []entity.Vendor{{Name: "ACME SERVICES LLC", Normalized: "acme services", Confidence: 0.8}}

	res := newTestScorer().Score(Input{
		Entities: e,
		Text:     "ACME SERVICES LLC\nThank you",
		File:     entity.FileInfo{Filename: "notes.txt", MimeType: "text/plain", Size: 20 << 10},
		Context:  constants.ExpenseReceipt,
	}, Options{})

	assert.False(t, res.ContextMatch)
	assert.Equal(t, []string{TagAmount, TagDate}, res.MissingElements)
	assert.Contains(t, []constants.WarningLevel{constants.WarningWarning, constants.WarningError}, res.WarningLevel)
	require.NotEmpty(t, res.Suggestions)
	assert.Contains(t, res.Suggestions[0], "amount, date")
	assert.Contains(t, res.Suggestions, "This document does not look like a typical expense receipt; check the selected upload type.")
}

func TestScoreStrictModePenalises(t *testing.T) {
	e := emptyEntities()
	e.Amounts = []entity.Amount{{Value: decimal.RequireFromString("99.00"), Confidence: 0.9}}
	in := Input{
		Entities: e,
		Text:     "Invoice total payment due",
		File:     entity.FileInfo{Filename: "doc.pdf", MimeType: "application/pdf", Size: 200 << 10},
		Context:  constants.Invoice,
	}
	s := newTestScorer()

	lenient := s.Score(in, Options{})
	strict := s.Score(in, Options{StrictMode: true})

	assert.False(t, lenient.ContextMatch)
	assert.InDelta(t, 0.3125, lenient.OverallScore, 1e-9)
	assert.Less(t, strict.OverallScore, lenient.OverallScore)
	assert.Zero(t, strict.OverallScore)
}

func TestScoreDetectsPersonalContent(t *testing.T) {
	res := newTestScorer().Score(Input{
		Entities: emptyEntities(),
		Text:     "",
		File:     entity.FileInfo{Filename: "beach_selfie.jpg", MimeType: "image/jpeg", Size: 2 << 20},
		Context:  constants.ExpenseReceipt,
	}, Options{})

	assert.ElementsMatch(t, []string{TagPersonalPhoto, TagPersonalContent}, res.ForbiddenDetected)
	assert.False(t, res.ContextMatch)
	assert.Equal(t, constants.WarningError, res.WarningLevel)
	assert.Contains(t, res.Suggestions, "This looks like personal content; please upload business documents only.")
}

func TestScoreBusinessCardSocialMedia(t *testing.T) {
	e := emptyEntities()
	e.Vendors = []entity.Vendor{{Name: "Bright Design Co", Normalized: "bright design", Confidence: 0.8}}
	e.Emails = []entity.Email{{Value: "hi@bright.example", Confidence: 0.95}}

	res := newTestScorer().Score(Input{
		Entities: e,
		Text:     "Follow us on Instagram and Facebook",
		File:     entity.FileInfo{Filename: "card.png", MimeType: "image/png", Size: 300 << 10},
		Context:  constants.BusinessCard,
	}, Options{})

	assert.Equal(t, []string{TagSocialMedia}, res.ForbiddenDetected)
	assert.False(t, res.ContextMatch)
}

func TestScoreUndersizedFile(t *testing.T) {
	res := newTestScorer().Score(Input{
		Entities: receiptEntities(),
		File:     entity.FileInfo{Filename: "r.pdf", MimeType: "application/pdf", Size: 900},
		Context:  constants.ExpenseReceipt,
	}, Options{})

	require.True(t, hasIndicator(res.Indicators, entity.IndicatorFileSize, tooSmallWeight))
	assert.Contains(t, res.Suggestions, "The file is very small; upload a higher-resolution scan or the original PDF.")
}

func TestScoreCustomRulesFailClosed(t *testing.T) {
	rules := []CustomRule{
		{Name: "has_po", Weight: 0.2, Message: "Purchase order referenced", Evaluate: func(in Input) (bool, error) {
			return true, nil
		}},
		{Name: "lookup", Weight: 1, Message: "never", Evaluate: func(Input) (bool, error) {
			return false, errors.New("backend unavailable")
		}},
		{Name: "explodes", Weight: 1, Message: "never", Evaluate: func(Input) (bool, error) {
			panic("boom")
		}},
		{Name: "no_predicate", Weight: 1},
	}
	res := newTestScorer().Score(Input{
		Entities: receiptEntities(),
		File:     entity.FileInfo{Filename: "r.pdf", MimeType: "application/pdf", Size: 100 << 10},
		Context:  constants.ExpenseReceipt,
	}, Options{CustomRules: rules})

	assert.Equal(t, []string{"lookup", "explodes", "no_predicate"}, res.SkippedRules)
	var custom []entity.Indicator
	for _, ind := range res.Indicators {
		if ind.Category == entity.IndicatorCustom {
			custom = append(custom, ind)
		}
	}
	require.Len(t, custom, 1)
	assert.Equal(t, "Purchase order referenced", custom[0].Message)
	assert.InDelta(t, 0.2, custom[0].Weight, 1e-9)
}

func TestScoreAlwaysInRange(t *testing.T) {
	s := newTestScorer()
	files := []entity.FileInfo{
		{},
		{Filename: "selfie.heic", MimeType: "image/heic", Size: 1},
		{Filename: "invoice_receipt_bill.pdf", MimeType: "application/pdf", Size: 60 << 20},
	}
	texts := []string{"", "selfie vacation pet birthday wedding beach", "Invoice INV-2024-001 total tax payment receipt agreement hereby whereas"}
	for _, ctx := range MustDefaultRules().Contexts() {
		for _, f := range files {
			for _, text := range texts {
				for _, strict := range []bool{false, true} {
					for _, e := range []entity.BusinessEntities{emptyEntities(), receiptEntities()} {
						res := s.Score(Input{Entities: e, Text: text, File: f, Context: ctx}, Options{StrictMode: strict})
						assert.GreaterOrEqual(t, res.OverallScore, 0.0)
						assert.LessOrEqual(t, res.OverallScore, 1.0)
						assert.GreaterOrEqual(t, res.BusinessRelevance, 0.0)
						assert.LessOrEqual(t, res.TechnicalQuality, 1.0)
						assert.Equal(t, WarningLevelFor(res.OverallScore), res.WarningLevel)
					}
				}
			}
		}
	}
}

func TestRequiredTagPredicates(t *testing.T) {
	s := newTestScorer()
	assert.True(t, s.hasRequired(TagInvoiceNumber, Input{Text: "Invoice No. 2024-0117"}))
	assert.True(t, s.hasRequired(TagInvoiceNumber, Input{Text: "INV# A-88213"}))
	assert.False(t, s.hasRequired(TagInvoiceNumber, Input{Text: "Please find the invoice attached"}))
	assert.True(t, s.hasRequired(TagLegalTerms, Input{Text: "The parties hereby agree"}))
	assert.False(t, s.hasRequired(TagLegalTerms, Input{Text: "hereby"}))
	assert.True(t, s.hasRequired(TagSignature, Input{Structure: entity.StructureFlags{HasSignature: true}}))
	assert.True(t, s.hasRequired(TagSignature, Input{Text: "/s/ Jane Doe"}))
	assert.False(t, s.hasRequired("unknown", Input{}))
}

func TestWarningLevelFor(t *testing.T) {
	assert.Equal(t, constants.WarningNone, WarningLevelFor(0.8))
	assert.Equal(t, constants.WarningInfo, WarningLevelFor(0.6))
	assert.Equal(t, constants.WarningWarning, WarningLevelFor(0.4))
	assert.Equal(t, constants.WarningError, WarningLevelFor(0.39))
}

package constants

import (
	"strings"
)

// UploadContext is the declared business purpose of an upload.
type UploadContext string

const (
	ExpenseReceipt  UploadContext = "expense_receipt"
	VendorDocument  UploadContext = "vendor_document"
	BusinessCard    UploadContext = "business_card"
	Invoice         UploadContext = "invoice"
	Contract        UploadContext = "contract"
	GenericBusiness UploadContext = "generic_business"
)

var allContexts = []UploadContext{
	ExpenseReceipt,
	VendorDocument,
	BusinessCard,
	Invoice,
	Contract,
	GenericBusiness,
}

func ContextsAsStringSlice() []string {
	result := make([]string, len(allContexts))
	for i, c := range allContexts {
		result[i] = string(c)
	}
	return result
}

// CanonicalizeContext maps a free-form label onto a known upload context.
// Unknown or empty labels fall back to GenericBusiness with ok=false.
func CanonicalizeContext(input string) (UploadContext, bool) {
	if strings.TrimSpace(input) == "" {
		return GenericBusiness, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	// synonyms map
	synonyms := map[string]UploadContext{
		"receipt":      ExpenseReceipt,
		"expense":      ExpenseReceipt,
		"receipts":     ExpenseReceipt,
		"bill":         Invoice,
		"invoices":     Invoice,
		"card":         BusinessCard,
		"contact_card": BusinessCard,
		"vendor":       VendorDocument,
		"supplier":     VendorDocument,
		"agreement":    Contract,
		"nda":          Contract,
		"generic":      GenericBusiness,
		"business":     GenericBusiness,
		"general":      GenericBusiness,
		"other":        GenericBusiness,
	}

	if c, ok := synonyms[normalized]; ok {
		return c, true
	}

	for _, c := range allContexts {
		if normalized == string(c) {
			return c, true
		}
	}

	return GenericBusiness, false
}

// Label is the human-readable form used in messages ("expense receipt").
func (c UploadContext) Label() string {
	return strings.ReplaceAll(string(c), "_", " ")
}

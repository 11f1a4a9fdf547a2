package entity

import (
	"github.com/shopspring/decimal"
)

// Amount is a currency amount found in document text.
type Amount struct {
	Value      decimal.Decimal `json:"value"`
	Currency   string          `json:"currency,omitempty"`
	Raw        string          `json:"raw"`
	Confidence float64         `json:"confidence"`
	Position   int             `json:"position"`
}

// Date is a date string found in document text, tagged with the layout it matched.
type Date struct {
	Value      string  `json:"value"`
	Format     string  `json:"format"`
	Confidence float64 `json:"confidence"`
	Position   int     `json:"position"`
}

// Vendor is a legal-entity name taken from the letterhead lines.
type Vendor struct {
	Name       string  `json:"name"`
	Normalized string  `json:"normalized"`
	Confidence float64 `json:"confidence"`
	Position   int     `json:"position"`
}

type Address struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Position   int     `json:"position"`
}

type Phone struct {
	Value      string  `json:"value"`
	Digits     string  `json:"digits"`
	Confidence float64 `json:"confidence"`
	Position   int     `json:"position"`
}

type Email struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Position   int     `json:"position"`
}

// BusinessEntities is the bag of signals extracted from one document.
// Absent categories are empty lists; values are never mutated after extraction.
type BusinessEntities struct {
	Amounts      []Amount  `json:"amounts"`
	Dates        []Date    `json:"dates"`
	Vendors      []Vendor  `json:"vendors"`
	Addresses    []Address `json:"addresses"`
	PhoneNumbers []Phone   `json:"phone_numbers"`
	Emails       []Email   `json:"emails"`
}

// Count is the total number of extracted values across all kinds.
func (e BusinessEntities) Count() int {
	return len(e.Amounts) + len(e.Dates) + len(e.Vendors) + len(e.Addresses) + len(e.PhoneNumbers) + len(e.Emails)
}

func (e BusinessEntities) IsEmpty() bool { return e.Count() == 0 }

// MeanConfidence averages the confidence of every extracted value; 0 when empty.
func (e BusinessEntities) MeanConfidence() float64 {
	n := e.Count()
	if n == 0 {
		return 0
	}
	var sum float64
	for _, a := range e.Amounts {
		sum += a.Confidence
	}
	for _, d := range e.Dates {
		sum += d.Confidence
	}
	for _, v := range e.Vendors {
		sum += v.Confidence
	}
	for _, a := range e.Addresses {
		sum += a.Confidence
	}
	for _, p := range e.PhoneNumbers {
		sum += p.Confidence
	}
	for _, m := range e.Emails {
		sum += m.Confidence
	}
	return sum / float64(n)
}

// Normalized replaces nil categories with empty lists.
func (e BusinessEntities) Normalized() BusinessEntities {
	if e.Amounts == nil {
		e.Amounts = []Amount{}
	}
	if e.Dates == nil {
		e.Dates = []Date{}
	}
	if e.Vendors == nil {
		e.Vendors = []Vendor{}
	}
	if e.Addresses == nil {
		e.Addresses = []Address{}
	}
	if e.PhoneNumbers == nil {
		e.PhoneNumbers = []Phone{}
	}
	if e.Emails == nil {
		e.Emails = []Email{}
	}
	return e
}

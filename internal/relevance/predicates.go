package relevance

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docintel/constants"
)

var (
	reInvoiceNumber = regexp.MustCompile(`(?i)\b(?:invoice|inv)\s*(?:no\.?|number|num|#)?\s*[:#]?\s*[a-z]{0,4}[-/]?\d[a-z0-9\-/]{2,}\b`)
	reSignatureLine = regexp.MustCompile(`(?i)\b(?:signature|signed by|authorized signatory)\b|/s/|_{5,}`)
)

// minPhotoTextChars below which an image is treated as a picture rather than a scan.
const minPhotoTextChars = 20

func (s *Scorer) hasRequired(tag string, in Input) bool {
	e := in.Entities
	switch tag {
	case TagAmount:
		return len(e.Amounts) > 0
	case TagDate:
		return len(e.Dates) > 0
	case TagVendor, TagBusinessName:
		return len(e.Vendors) > 0
	case TagContactInfo:
		return len(e.PhoneNumbers) > 0 || len(e.Emails) > 0
	case TagAddress:
		return len(e.Addresses) > 0
	case TagInvoiceNumber:
		return reInvoiceNumber.MatchString(in.Text)
	case TagLegalTerms:
		return len(matchKeywords(in.Text, s.legal)) >= 2
	case TagSignature:
		return in.Structure.HasSignature || reSignatureLine.MatchString(in.Text)
	}
	return false
}

func (s *Scorer) hasForbidden(tag string, in Input) bool {
	switch tag {
	case TagPersonalPhoto:
		if !constants.IsImageMime(in.File.MimeType) {
			return false
		}
		if countTokenHits(filenameTokens(in.File.Filename), s.personal) > 0 {
			return true
		}
		return in.Entities.IsEmpty() && len(strings.TrimSpace(in.Text)) < minPhotoTextChars
	case TagSocialMedia:
		return countTokenHits(filenameTokens(in.File.Filename), s.socialMedia) > 0 ||
			len(matchKeywords(in.Text, s.socialMedia)) >= 2
	case TagPersonalContent:
		return countTokenHits(filenameTokens(in.File.Filename), s.personal) > 0 ||
			len(matchKeywords(in.Text, s.personal)) >= 2
	}
	return false
}

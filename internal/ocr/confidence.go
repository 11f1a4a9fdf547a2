package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b(?:20\d{2}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]20\d{2})\b`)
	reCurr   = regexp.MustCompile(`\b(?:usd|eur|gbp|cad|aud|inr|jpy)\b|[$£€]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
)

// heuristicConfidence scores OCR output by the business artifacts it contains.
func heuristicConfidence(txt string) float64 {
	l := strings.ToLower(txt)
	score := 0.2
	if reDate.MatchString(l) {
		score += 0.2
	}
	if reCurr.MatchString(l) {
		score += 0.15
	}
	if reAmount.MatchString(l) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	return clamp01(score)
}

// textLayerConfidence is used for embedded PDF text, which is not subject to
// recognition error.
func textLayerConfidence(txt string) float64 {
	return clamp01(0.5 + heuristicConfidence(txt))
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

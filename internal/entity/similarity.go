package entity

import (
	"time"
)

// How a potential duplicate was admitted.
const (
	MatchedByChecksum = "checksum"
	MatchedByVisual   = "visual"
	MatchedByContent  = "content"
)

// ContentSimilarity is the entity-level comparison of two documents.
type ContentSimilarity struct {
	Similarity      float64 `json:"similarity"`
	VendorMatch     bool    `json:"vendor_match"`
	AmountMatch     bool    `json:"amount_match"`
	EmailMatch      bool    `json:"email_match"`
	FactorsCompared int     `json:"factors_compared"`
}

type TemporalAnalysis struct {
	DaysSinceCandidate    int    `json:"days_since_candidate"`
	IsRecurringBillLikely bool   `json:"is_recurring_bill_likely"`
	HumanReadableDelta    string `json:"human_readable_delta"`
}

// SimilarityResult is the per-candidate breakdown. Computed fresh on every call.
type SimilarityResult struct {
	Overall            float64           `json:"overall"`
	ChecksumMatch      bool              `json:"checksum_match"`
	PerceptualDistance int               `json:"perceptual_distance"`
	VisualScore        float64           `json:"visual_score"`
	Content            ContentSimilarity `json:"content"`
	Temporal           TemporalAnalysis  `json:"temporal"`
	MatchedBy          string            `json:"matched_by"`
}

// DuplicateMatch pairs a candidate summary with its similarity breakdown.
type DuplicateMatch struct {
	DocumentID       string           `json:"document_id"`
	Filename         string           `json:"filename"`
	OriginalFilename string           `json:"original_filename"`
	UploadedBy       string           `json:"uploaded_by"`
	CreatedAt        time.Time        `json:"created_at"`
	Category         string           `json:"category,omitempty"`
	FileSize         int64            `json:"file_size"`
	Similarity       SimilarityResult `json:"similarity"`
}

// DuplicateDetectionResult is the detector output.
type DuplicateDetectionResult struct {
	Exact             []DuplicateMatch `json:"exact"`
	Potential         []DuplicateMatch `json:"potential"`
	ShouldBlock       bool             `json:"should_block"`
	CandidatesScanned int              `json:"candidates_scanned"`
}

func (r DuplicateDetectionResult) HasExact() bool { return len(r.Exact) > 0 }

// HighestPotential returns the best-scoring potential match, if any.
// Potential matches are sorted by descending overall score.
func (r DuplicateDetectionResult) HighestPotential() (DuplicateMatch, bool) {
	if len(r.Potential) == 0 {
		return DuplicateMatch{}, false
	}
	return r.Potential[0], true
}

// HasHighConfidencePotential reports a potential match scoring at least threshold
// that does not look like a recurring bill.
func (r DuplicateDetectionResult) HasHighConfidencePotential(threshold float64) bool {
	for _, m := range r.Potential {
		if m.Similarity.Overall >= threshold && !m.Similarity.Temporal.IsRecurringBillLikely {
			return true
		}
	}
	return false
}

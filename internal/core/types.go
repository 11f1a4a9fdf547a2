package core

import (
	"time"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/entity"
	"github.com/joseph-ayodele/docintel/internal/relevance"
)

// AnalyzeRequest is one uploaded document plus whatever the caller already knows about it.
// Checksum, PerceptualHash, Entities, Text and Structure are optional; missing values are
// computed from Content.
type AnalyzeRequest struct {
	DocumentID       string                   `json:"document_id,omitempty"`
	Filename         string                   `json:"filename"`
	// OriginalFilename is the name the uploader or source system used, when the
	// caller renamed the file before analysis. Defaults to Filename.
	OriginalFilename string                   `json:"original_filename,omitempty"`
	MimeType         string                   `json:"mime_type,omitempty"`
	Content          []byte                   `json:"content"`
	Checksum         string                   `json:"checksum,omitempty"`
	PerceptualHash   string                   `json:"perceptual_hash,omitempty"`
	Entities         *entity.BusinessEntities `json:"entities,omitempty"`
	Text             *string                  `json:"text,omitempty"`
	Structure        *entity.StructureFlags   `json:"structure,omitempty"`
	Context          string                   `json:"context"`
	CompanyID        string                   `json:"company_id,omitempty"`
	UserID           string                   `json:"user_id,omitempty"`
	SecurityFlags    []entity.SecurityFlag    `json:"security_flags,omitempty"`
	Options          AnalyzeOptions           `json:"options"`

	// CustomRules are evaluated by the relevance scorer; they are not serialisable.
	CustomRules []relevance.CustomRule `json:"-"`
}

type AnalyzeOptions struct {
	ExactOnly  bool `json:"exact_only,omitempty"`
	StrictMode bool `json:"strict_mode,omitempty"`
	// SkipCatalog disables the candidate lookup.
	SkipCatalog bool `json:"skip_catalog,omitempty"`
}

// Analysis is the decision plus the intermediate results shown to the uploader.
type Analysis struct {
	DocumentID         string                          `json:"document_id"`
	Filename           string                          `json:"filename"`
	OriginalFilename   string                          `json:"original_filename"`
	MimeType           string                          `json:"mime_type"`
	Context            constants.UploadContext         `json:"context"`
	Fingerprint        entity.DocumentFingerprint      `json:"fingerprint"`
	Entities           entity.BusinessEntities         `json:"entities"`
	Structure          entity.StructureFlags           `json:"structure"`
	TextLength         int                             `json:"text_length"`
	ExtractionMethod   string                          `json:"extraction_method,omitempty"`
	ExtractionWarnings []string                        `json:"extraction_warnings,omitempty"`
	ContentConfidence  float64                         `json:"content_confidence"`
	SecurityFlags      []entity.SecurityFlag           `json:"security_flags"`
	Duplicates         entity.DuplicateDetectionResult `json:"duplicates"`
	Relevance          entity.RelevanceResult          `json:"relevance"`
	Decision           entity.IntelligenceDecision     `json:"decision"`
	Duration           time.Duration                   `json:"duration_ns"`
}

// Similarities flattens exact and potential matches for display.
func (a Analysis) Similarities() []entity.SimilarityResult {
	out := make([]entity.SimilarityResult, 0, len(a.Duplicates.Exact)+len(a.Duplicates.Potential))
	for _, m := range a.Duplicates.Exact {
		out = append(out, m.Similarity)
	}
	for _, m := range a.Duplicates.Potential {
		out = append(out, m.Similarity)
	}
	return out
}

// Document is the catalog row for an analyzed upload, so later uploads can be compared against it.
func (a Analysis) Document(companyID, userID string, size int64, at time.Time) *entity.Document {
	return &entity.Document{
		ID:               a.DocumentID,
		CompanyID:        companyID,
		UploadedBy:       userID,
		Filename:         a.Filename,
		OriginalFilename: a.OriginalFilename,
		Category:         string(a.Context),
		Fingerprint:      a.Fingerprint,
		Entities:         a.Entities,
		TextLength:       a.TextLength,
		FileSize:         size,
		CreatedAt:        at,
	}
}

// Catalogable reports whether the upload should be stored as a duplicate candidate.
func (a Analysis) Catalogable() bool {
	return a.Decision.Recommendation != "" && a.Decision.Recommendation != constants.RecommendationReject
}

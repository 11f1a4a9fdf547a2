package entity

import (
	"github.com/joseph-ayodele/docintel/constants"
)

// Indicator categories.
const (
	IndicatorFileType    = "file_type"
	IndicatorFileSize    = "file_size"
	IndicatorFilename    = "filename"
	IndicatorEntities    = "entities"
	IndicatorKeywords    = "keywords"
	IndicatorPersonal    = "personal_content"
	IndicatorStructure   = "structure"
	IndicatorRequirement = "context_requirement"
	IndicatorForbidden   = "forbidden_element"
	IndicatorBusiness    = "business_minimum"
	IndicatorCustom      = "custom_rule"
)

// Indicator is one signed, weighted, explained scoring factor.
type Indicator struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
	Message  string  `json:"message"`
}

func (i Indicator) Positive() bool { return i.Weight > 0 }

// StructureFlags describe the layout detected by the text-extraction provider.
type StructureFlags struct {
	HasTable     bool `json:"has_table"`
	HasHeader    bool `json:"has_header"`
	HasFooter    bool `json:"has_footer"`
	HasSignature bool `json:"has_signature"`
}

type FileInfo struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// RelevanceResult is computed fresh per call.
type RelevanceResult struct {
	OverallScore      float64                 `json:"overall_score"`
	Indicators        []Indicator             `json:"indicators"`
	ContextMatch      bool                    `json:"context_match"`
	BusinessRelevance float64                 `json:"business_relevance"`
	TechnicalQuality  float64                 `json:"technical_quality"`
	WarningLevel      constants.WarningLevel  `json:"warning_level"`
	Suggestions       []string                `json:"suggestions"`
	Context           constants.UploadContext `json:"context"`
	MissingElements   []string                `json:"missing_elements,omitempty"`
	ForbiddenDetected []string                `json:"forbidden_detected,omitempty"`
	SkippedRules      []string                `json:"skipped_rules,omitempty"`
}

package entity

import (
	"github.com/joseph-ayodele/docintel/constants"
)

// SecurityFlag is an auxiliary signal from the security/validation layer.
type SecurityFlag struct {
	Code     string             `json:"code"`
	Severity constants.Severity `json:"severity"`
	Message  string             `json:"message"`
}

// IntelligenceDecision is the final, never-persisted outcome of an analysis.
type IntelligenceDecision struct {
	OverallScore   float64                  `json:"overall_score"`
	Recommendation constants.Recommendation `json:"recommendation"`
	Action         string                   `json:"action"`
	Reason         string                   `json:"reason"`
	Warnings       []string                 `json:"warnings"`
	Suggestions    []string                 `json:"suggestions"`
}

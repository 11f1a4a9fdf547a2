package constants

// Recommendation is the ternary outcome of an analysis.
type Recommendation string

// Stable values (returned to callers verbatim).
const (
	RecommendationAccept Recommendation = "accept"
	RecommendationWarn   Recommendation = "warn"
	RecommendationReject Recommendation = "reject"
)

// Action is the upload-flow vocabulary for a recommendation: proceed, warn or block.
func (r Recommendation) Action() string {
	switch r {
	case RecommendationAccept:
		return "proceed"
	case RecommendationReject:
		return "block"
	default:
		return "warn"
	}
}

// WarningLevel grades a relevance result.
type WarningLevel string

const (
	WarningNone    WarningLevel = "none"
	WarningInfo    WarningLevel = "info"
	WarningWarning WarningLevel = "warning"
	WarningError   WarningLevel = "error"
)

// Severity of a security/validation flag.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

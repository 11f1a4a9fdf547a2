// Package decision folds duplicate, relevance and security signals into one upload recommendation.
package decision

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/entity"
)

const (
	baseScore              = 0.5
	contentConfidenceScale = 0.3
	relevanceScale         = 0.4
	exactPenalty           = -0.6
	highPotentialPenalty   = -0.3
	lowPotentialPenalty    = -0.1

	// HighConfidenceThreshold marks a potential duplicate worth warning about.
	HighConfidenceThreshold = 0.9
	lowScoreThreshold       = 0.4
	maxWarningFlags         = 1
)

// SafeDefaultWarning is shown when analysis could not complete.
const SafeDefaultWarning = "Analysis failed; please retry the upload."

// Input bundles the sub-analysis results for one document.
type Input struct {
	Duplicates        entity.DuplicateDetectionResult
	Relevance         entity.RelevanceResult
	SecurityFlags     []entity.SecurityFlag
	ContentConfidence float64
}

type Orchestrator struct {
	logger *slog.Logger
}

func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger}
}

// Decide applies the ordered rules; the first that fires sets the recommendation.
func (o *Orchestrator) Decide(in Input) entity.IntelligenceDecision {
	score := OverallScore(in)
	errorFlags, warningFlags := splitFlags(in.SecurityFlags)

	rec, reason := o.recommend(in, score, errorFlags, warningFlags)
	d := entity.IntelligenceDecision{
		OverallScore:   score,
		Recommendation: rec,
		Action:         rec.Action(),
		Reason:         reason,
		Warnings:       warnings(in, errorFlags, warningFlags),
		Suggestions:    suggestions(in),
	}
	o.logger.Debug("decision made",
		"recommendation", d.Recommendation,
		"overall_score", d.OverallScore,
		"exact_duplicates", len(in.Duplicates.Exact),
		"potential_duplicates", len(in.Duplicates.Potential),
		"warning_level", in.Relevance.WarningLevel,
		"security_flags", len(in.SecurityFlags))
	return d
}

func (o *Orchestrator) recommend(in Input, score float64, errorFlags, warningFlags []entity.SecurityFlag) (constants.Recommendation, string) {
	dup := in.Duplicates
	switch {
	case dup.HasExact():
		n := len(dup.Exact)
		return constants.RecommendationReject, fmt.Sprintf("Exact duplicate of %d existing %s", n, pluralDocs(n))
	case in.Relevance.WarningLevel == constants.WarningError:
		return constants.RecommendationReject, fmt.Sprintf("Document is not relevant to a %s (score %.2f)", in.Relevance.Context.Label(), in.Relevance.OverallScore)
	case len(errorFlags) > 0:
		return constants.RecommendationReject, "Security check failed: " + errorFlags[0].Message
	case len(warningFlags) > maxWarningFlags:
		return constants.RecommendationWarn, fmt.Sprintf("%d security warnings raised", len(warningFlags))
	case score < lowScoreThreshold:
		return constants.RecommendationWarn, fmt.Sprintf("Low overall confidence (%.2f)", score)
	case dup.HasHighConfidencePotential(HighConfidenceThreshold):
		top, _ := dup.HighestPotential()
		return constants.RecommendationWarn, fmt.Sprintf("Likely duplicate of %s (%.0f%% similar)", displayName(top), top.Similarity.Overall*100)
	case in.Relevance.WarningLevel == constants.WarningWarning:
		return constants.RecommendationWarn, fmt.Sprintf("Document may not be a %s", in.Relevance.Context.Label())
	default:
		return constants.RecommendationAccept, "Document passed all checks"
	}
}

// OverallScore combines content confidence and relevance, less a duplicate penalty.
func OverallScore(in Input) float64 {
	s := baseScore + clamp01(in.ContentConfidence)*contentConfidenceScale + clamp01(in.Relevance.OverallScore)*relevanceScale
	switch {
	case in.Duplicates.HasExact():
		s += exactPenalty
	case in.Duplicates.HasHighConfidencePotential(HighConfidenceThreshold):
		s += highPotentialPenalty
	case len(in.Duplicates.Potential) > 0:
		s += lowPotentialPenalty
	}
	return clamp01(s)
}

// SafeDefault is the decision returned when the analysis itself failed.
func SafeDefault(err error) entity.IntelligenceDecision {
	reason := "Analysis failed"
	if err != nil {
		reason = "Analysis failed: " + err.Error()
	}
	return entity.IntelligenceDecision{
		OverallScore:   0,
		Recommendation: constants.RecommendationReject,
		Action:         constants.RecommendationReject.Action(),
		Reason:         reason,
		Warnings:       []string{SafeDefaultWarning},
		Suggestions:    []string{},
	}
}

func splitFlags(flags []entity.SecurityFlag) (errs, warns []entity.SecurityFlag) {
	for _, f := range flags {
		switch f.Severity {
		case constants.SeverityError:
			errs = append(errs, f)
		case constants.SeverityWarning:
			warns = append(warns, f)
		}
	}
	return errs, warns
}

func warnings(in Input, errorFlags, warningFlags []entity.SecurityFlag) []string {
	out := []string{}
	for _, m := range in.Duplicates.Exact {
		out = append(out, fmt.Sprintf("Already uploaded as %s %s", displayName(m), humanize.Time(m.CreatedAt)))
	}
	for _, m := range in.Duplicates.Potential {
		if m.Similarity.Temporal.IsRecurringBillLikely {
			out = append(out, fmt.Sprintf("Similar to %s, which looks like an earlier bill in the same series", displayName(m)))
			continue
		}
		out = append(out, fmt.Sprintf("Similar to %s (%.0f%% match by %s)", displayName(m), m.Similarity.Overall*100, m.Similarity.MatchedBy))
	}
	for _, f := range errorFlags {
		out = append(out, f.Message)
	}
	for _, f := range warningFlags {
		out = append(out, f.Message)
	}
	if in.Relevance.WarningLevel == constants.WarningWarning || in.Relevance.WarningLevel == constants.WarningError {
		out = append(out, fmt.Sprintf("Relevance to %s is %s (%.2f)", in.Relevance.Context.Label(), in.Relevance.WarningLevel, in.Relevance.OverallScore))
	}
	return dedupe(out)
}

func suggestions(in Input) []string {
	var out []string
	if in.Duplicates.HasExact() {
		out = append(out, "Open the existing document instead of uploading it again.")
	} else if len(in.Duplicates.Potential) > 0 {
		out = append(out, "Compare with the similar documents before saving.")
	}
	out = append(out, in.Relevance.Suggestions...)
	return dedupe(out)
}

// dedupe keeps the first occurrence of each string.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func displayName(m entity.DuplicateMatch) string {
	switch {
	case m.OriginalFilename != "":
		return m.OriginalFilename
	case m.Filename != "":
		return m.Filename
	default:
		return m.DocumentID
	}
}

func pluralDocs(n int) string {
	if n == 1 {
		return "document"
	}
	return "documents"
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

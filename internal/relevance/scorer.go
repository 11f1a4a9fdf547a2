// Package relevance scores how well a document fits its declared upload context.
package relevance

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/entity"
)

// Scoring weights.
const (
	preferredMimeWeight    = 0.3
	otherMimeWeight        = -0.2
	tooSmallWeight         = -0.3
	tooLargeWeight         = -0.1
	filenameTokenWeight    = 0.1
	filenameCap            = 0.3
	amountWeight           = 0.25
	dateWeight             = 0.2
	vendorWeight           = 0.15
	contactWeight          = 0.1
	businessKeywordWeight  = 0.05
	businessKeywordCap     = 0.3
	personalKeywordWeight  = 0.1
	personalKeywordCap     = 0.4
	tableWeight            = 0.1
	headerFooterWeight     = 0.05
	missingRequiredWeight  = -0.1
	forbiddenWeight        = -0.3
	belowMinBusinessWeight = -0.1

	contextMatchBonus     = 0.2
	contextMissStrict     = -0.3
	contextMissLenient    = -0.1
	strictNegativePenalty = -0.2
	strictNegativeLimit   = 2

	minMeaningfulBytes = 10 << 10
	maxComfortBytes    = 50 << 20
)

// Input is everything the scorer looks at for one document.
type Input struct {
	Entities  entity.BusinessEntities
	Text      string
	Structure entity.StructureFlags
	File      entity.FileInfo
	Context   constants.UploadContext
}

// CustomRule is a caller-supplied predicate. When Evaluate reports true the rule
// contributes Weight with Message. An error or panic skips the rule.
type CustomRule struct {
	Name     string
	Weight   float64
	Message  string
	Evaluate func(Input) (bool, error)
}

type Options struct {
	StrictMode  bool
	CustomRules []CustomRule
}

type keywordMatcher struct {
	word string
	re   *regexp.Regexp
}

// Scorer is safe for concurrent use.
type Scorer struct {
	rules       *RuleSet
	logger      *slog.Logger
	business    []keywordMatcher
	personal    []keywordMatcher
	legal       []keywordMatcher
	socialMedia []keywordMatcher
}

func NewScorer(rules *RuleSet, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = MustDefaultRules()
	}
	kw := rules.Keywords()
	return &Scorer{
		rules:       rules,
		logger:      logger,
		business:    compileKeywords(kw.Business),
		personal:    compileKeywords(kw.Personal),
		legal:       compileKeywords(kw.Legal),
		socialMedia: compileKeywords(kw.SocialMedia),
	}
}

// Score never fails. Indicators are reported in sub-scorer order: file, business,
// context requirements, custom rules.
func (s *Scorer) Score(in Input, opts Options) entity.RelevanceResult {
	rule := s.rules.For(in.Context)
	res := entity.RelevanceResult{
		Context:     rule.Context,
		Indicators:  []entity.Indicator{},
		Suggestions: []string{},
	}

	fileInd := s.fileIndicators(in, rule)
	res.TechnicalQuality = clamp01(0.5 + sumWeights(fileInd))

	bizInd := s.businessIndicators(in)
	res.BusinessRelevance = clamp01(sumWeights(bizInd))
	if res.BusinessRelevance < rule.MinBusinessScore {
		bizInd = append(bizInd, entity.Indicator{
			Category: entity.IndicatorBusiness,
			Weight:   belowMinBusinessWeight,
			Message:  fmt.Sprintf("Business relevance %.2f is below the %.2f expected for a %s", res.BusinessRelevance, rule.MinBusinessScore, rule.Context.Label()),
		})
	}

	reqInd, missing, forbidden, match := s.contextIndicators(in, rule)
	res.MissingElements = missing
	res.ForbiddenDetected = forbidden
	res.ContextMatch = match

	customInd, skipped := s.customIndicators(in, opts.CustomRules)
	res.SkippedRules = skipped

	res.Indicators = append(res.Indicators, fileInd...)
	res.Indicators = append(res.Indicators, bizInd...)
	res.Indicators = append(res.Indicators, reqInd...)
	res.Indicators = append(res.Indicators, customInd...)

	contextBonus := contextMatchBonus
	if !res.ContextMatch {
		contextBonus = contextMissLenient
		if opts.StrictMode {
			contextBonus = contextMissStrict
		}
	}
	score := res.BusinessRelevance*0.6 + res.TechnicalQuality*0.2 + contextBonus + sumWeights(res.Indicators)*0.1
	if opts.StrictMode && countNegative(res.Indicators) > strictNegativeLimit {
		score += strictNegativePenalty
	}
	res.OverallScore = clamp01(score)
	res.WarningLevel = WarningLevelFor(res.OverallScore)
	res.Suggestions = s.suggestions(res, rule)
	return res
}

// WarningLevelFor maps an overall score onto a warning level.
func WarningLevelFor(score float64) constants.WarningLevel {
	switch {
	case score >= 0.8:
		return constants.WarningNone
	case score >= 0.6:
		return constants.WarningInfo
	case score >= 0.4:
		return constants.WarningWarning
	default:
		return constants.WarningError
	}
}

func (s *Scorer) fileIndicators(in Input, rule ContextRule) []entity.Indicator {
	var out []entity.Indicator
	mt := normalizeMime(in.File.MimeType)
	if slices.Contains(rule.PreferredMimeTypes, mt) {
		out = append(out, entity.Indicator{
			Category: entity.IndicatorFileType,
			Weight:   preferredMimeWeight,
			Message:  fmt.Sprintf("File type %s is preferred for a %s", mt, rule.Context.Label()),
		})
	} else {
		out = append(out, entity.Indicator{
			Category: entity.IndicatorFileType,
			Weight:   otherMimeWeight,
			Message:  fmt.Sprintf("File type %s is unusual for a %s", displayMime(mt), rule.Context.Label()),
		})
	}

	switch {
	case in.File.Size < minMeaningfulBytes:
		out = append(out, entity.Indicator{
			Category: entity.IndicatorFileSize,
			Weight:   tooSmallWeight,
			Message:  fmt.Sprintf("File is too small to be meaningful (%s)", humanize.Bytes(uint64(max(in.File.Size, 0)))),
		})
	case in.File.Size > maxComfortBytes:
		out = append(out, entity.Indicator{
			Category: entity.IndicatorFileSize,
			Weight:   tooLargeWeight,
			Message:  fmt.Sprintf("File is unusually large (%s)", humanize.Bytes(uint64(in.File.Size))),
		})
	}

	tokens := filenameTokens(in.File.Filename)
	if n := countTokenHits(tokens, s.business); n > 0 {
		out = append(out, entity.Indicator{
			Category: entity.IndicatorFilename,
			Weight:   min(filenameCap, filenameTokenWeight*float64(n)),
			Message:  "Filename suggests a business document",
		})
	}
	if n := countTokenHits(tokens, s.personal); n > 0 {
		out = append(out, entity.Indicator{
			Category: entity.IndicatorPersonal,
			Weight:   -min(filenameCap, filenameTokenWeight*float64(n)),
			Message:  "Filename suggests personal content",
		})
	}
	return out
}

func (s *Scorer) businessIndicators(in Input) []entity.Indicator {
	var out []entity.Indicator
	e := in.Entities
	add := func(n int, maxConf, weight float64, what string) {
		if n == 0 {
			return
		}
		out = append(out, entity.Indicator{
			Category: entity.IndicatorEntities,
			Weight:   weight * maxConf,
			Message:  fmt.Sprintf("Found %d %s", n, plural(n, what)),
		})
	}
	add(len(e.Amounts), maxConfidence(e.Amounts, func(a entity.Amount) float64 { return a.Confidence }), amountWeight, "amount")
	add(len(e.Dates), maxConfidence(e.Dates, func(d entity.Date) float64 { return d.Confidence }), dateWeight, "date")
	add(len(e.Vendors), maxConfidence(e.Vendors, func(v entity.Vendor) float64 { return v.Confidence }), vendorWeight, "vendor name")
	add(len(e.Addresses), maxConfidence(e.Addresses, func(a entity.Address) float64 { return a.Confidence }), contactWeight, "address")
	add(len(e.PhoneNumbers), maxConfidence(e.PhoneNumbers, func(p entity.Phone) float64 { return p.Confidence }), contactWeight, "phone number")
	add(len(e.Emails), maxConfidence(e.Emails, func(m entity.Email) float64 { return m.Confidence }), contactWeight, "email address")

	if hits := matchKeywords(in.Text, s.business); len(hits) > 0 {
		out = append(out, entity.Indicator{
			Category: entity.IndicatorKeywords,
			Weight:   min(businessKeywordCap, businessKeywordWeight*float64(len(hits))),
			Message:  "Business terms found: " + strings.Join(hits, ", "),
		})
	}
	if hits := matchKeywords(in.Text, s.personal); len(hits) > 0 {
		out = append(out, entity.Indicator{
			Category: entity.IndicatorPersonal,
			Weight:   -min(personalKeywordCap, personalKeywordWeight*float64(len(hits))),
			Message:  "Personal terms found: " + strings.Join(hits, ", "),
		})
	}

	if in.Structure.HasTable {
		out = append(out, entity.Indicator{Category: entity.IndicatorStructure, Weight: tableWeight, Message: "Document contains a table"})
	}
	if in.Structure.HasHeader && in.Structure.HasFooter {
		out = append(out, entity.Indicator{Category: entity.IndicatorStructure, Weight: headerFooterWeight, Message: "Document has a header and footer"})
	}
	return out
}

func (s *Scorer) contextIndicators(in Input, rule ContextRule) (out []entity.Indicator, missing, forbidden []string, match bool) {
	present := 0
	for _, tag := range rule.Required {
		if s.hasRequired(tag, in) {
			present++
			continue
		}
		missing = append(missing, tag)
		out = append(out, entity.Indicator{
			Category: entity.IndicatorRequirement,
			Weight:   missingRequiredWeight,
			Message:  fmt.Sprintf("Missing required element for a %s: %s", rule.Context.Label(), tagLabel(tag)),
		})
	}
	for _, tag := range rule.Forbidden {
		if !s.hasForbidden(tag, in) {
			continue
		}
		forbidden = append(forbidden, tag)
		out = append(out, entity.Indicator{
			Category: entity.IndicatorForbidden,
			Weight:   forbiddenWeight,
			Message:  fmt.Sprintf("Detected %s, which is not expected in a %s", tagLabel(tag), rule.Context.Label()),
		})
	}
	match = present*2 >= len(rule.Required) && len(forbidden) == 0
	return out, missing, forbidden, match
}

func (s *Scorer) customIndicators(in Input, rules []CustomRule) (out []entity.Indicator, skipped []string) {
	for i, r := range rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule_%d", i)
		}
		ok, err := evaluate(r, in)
		if err != nil {
			s.logger.Warn("custom relevance rule skipped", "rule", name, "error", err)
			skipped = append(skipped, name)
			continue
		}
		if ok {
			out = append(out, entity.Indicator{Category: entity.IndicatorCustom, Weight: r.Weight, Message: r.Message})
		}
	}
	return out, skipped
}

// evaluate folds a panicking predicate into an error.
func evaluate(r CustomRule, in Input) (ok bool, err error) {
	if r.Evaluate == nil {
		return false, fmt.Errorf("rule has no predicate")
	}
	defer func() {
		if p := recover(); p != nil {
			ok, err = false, fmt.Errorf("rule panicked: %v", p)
		}
	}()
	return r.Evaluate(in)
}

func (s *Scorer) suggestions(res entity.RelevanceResult, rule ContextRule) []string {
	out := []string{}
	if len(res.MissingElements) > 0 {
		labels := make([]string, len(res.MissingElements))
		for i, t := range res.MissingElements {
			labels[i] = tagLabel(t)
		}
		out = append(out, fmt.Sprintf("Make sure the document clearly shows: %s.", strings.Join(labels, ", ")))
	}
	if hasCategory(res.Indicators, entity.IndicatorPersonal) || slices.Contains(res.ForbiddenDetected, TagPersonalPhoto) || slices.Contains(res.ForbiddenDetected, TagPersonalContent) {
		out = append(out, "This looks like personal content; please upload business documents only.")
	}
	if slices.Contains(res.ForbiddenDetected, TagSocialMedia) {
		out = append(out, "Remove social media screenshots or profiles; upload the original business document instead.")
	}
	if hasIndicator(res.Indicators, entity.IndicatorFileSize, tooSmallWeight) {
		out = append(out, "The file is very small; upload a higher-resolution scan or the original PDF.")
	}
	if !res.ContextMatch {
		out = append(out, fmt.Sprintf("This document does not look like a typical %s; check the selected upload type.", rule.Context.Label()))
	}
	if res.WarningLevel != constants.WarningNone && rule.Suggestion != "" {
		out = append(out, rule.Suggestion)
	}
	return out
}

var reFilenameSplit = regexp.MustCompile(`[^a-z0-9]+`)

func filenameTokens(name string) []string {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	var out []string
	for _, t := range reFilenameSplit.Split(base, -1) {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// countTokenHits counts distinct single-word keywords present among tokens.
func countTokenHits(tokens []string, kws []keywordMatcher) int {
	n := 0
	for _, k := range kws {
		if slices.Contains(tokens, k.word) {
			n++
		}
	}
	return n
}

func compileKeywords(words []string) []keywordMatcher {
	out := make([]keywordMatcher, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		pat := regexp.QuoteMeta(w)
		if isWordByte(w[0]) {
			pat = `\b` + pat
		}
		if isWordByte(w[len(w)-1]) {
			pat += `\b`
		}
		out = append(out, keywordMatcher{word: w, re: regexp.MustCompile(`(?i)` + pat)})
	}
	return out
}

// matchKeywords returns the distinct keywords found in text, in table order.
func matchKeywords(text string, kws []keywordMatcher) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var hits []string
	for _, k := range kws {
		if k.re.MatchString(text) {
			hits = append(hits, k.word)
		}
	}
	return hits
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func maxConfidence[T any](items []T, conf func(T) float64) float64 {
	var m float64
	for _, it := range items {
		m = max(m, conf(it))
	}
	return m
}

func normalizeMime(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

func displayMime(mt string) string {
	if mt == "" {
		return "(unknown)"
	}
	return mt
}

func tagLabel(tag string) string {
	if tag == TagVendor {
		return "vendor or merchant"
	}
	return strings.ReplaceAll(tag, "_", " ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	if strings.HasSuffix(word, "s") {
		return word + "es"
	}
	return word + "s"
}

func sumWeights(ind []entity.Indicator) float64 {
	var s float64
	for _, i := range ind {
		s += i.Weight
	}
	return s
}

func countNegative(ind []entity.Indicator) int {
	n := 0
	for _, i := range ind {
		if i.Weight < 0 {
			n++
		}
	}
	return n
}

func hasCategory(ind []entity.Indicator, category string) bool {
	return slices.ContainsFunc(ind, func(i entity.Indicator) bool { return i.Category == category })
}

func hasIndicator(ind []entity.Indicator, category string, weight float64) bool {
	return slices.ContainsFunc(ind, func(i entity.Indicator) bool { return i.Category == category && i.Weight == weight })
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

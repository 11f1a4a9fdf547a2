// Package duplicate scores an incoming document against catalog candidates.
package duplicate

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docintel/internal/entity"
	"github.com/joseph-ayodele/docintel/internal/fingerprint"
)

// Input is the new document as the detector sees it.
type Input struct {
	Fingerprint entity.DocumentFingerprint
	Entities    entity.BusinessEntities
	// Text is only scanned for recurring-billing keywords.
	Text       string
	Candidates []entity.DuplicateCandidate
}

// Detector is stateless apart from its configuration and safe for concurrent use.
type Detector struct {
	now      func() time.Time
	logger   *slog.Logger
	workers  int
	keywords []string
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{}
	for _, o := range opts {
		o(d)
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.workers <= 0 {
		d.workers = defaultWorkers()
	}
	if d.keywords == nil {
		d.keywords = DefaultRecurringKeywords
	}
	return d
}

type scored struct {
	sim       entity.SimilarityResult
	exact     bool
	visualOK  bool
	contentOK bool
}

// Detect runs the checksum, visual, content and temporal stages. It never fails;
// malformed candidate data only disables the stage that needs it.
func (d *Detector) Detect(in Input, opts Options) entity.DuplicateDetectionResult {
	opts = opts.normalize()
	now := d.now()
	res := entity.DuplicateDetectionResult{
		Exact:             []entity.DuplicateMatch{},
		Potential:         []entity.DuplicateMatch{},
		CandidatesScanned: len(in.Candidates),
	}
	if len(in.Candidates) == 0 {
		return res
	}
	recurringText := containsAny(in.Text, d.keywords)

	if opts.ExactOnly {
		for _, c := range in.Candidates {
			if isExact(in.Fingerprint, c) {
				s := d.score(in, c, now, recurringText, opts)
				res.Exact = append(res.Exact, toMatch(c, s.sim))
			}
		}
		if len(res.Exact) > 0 {
			res.ShouldBlock = true
			d.logger.Debug("exact duplicate short-circuit", "exact", len(res.Exact), "candidates", len(in.Candidates))
			return res
		}
	}

	results := make([]scored, len(in.Candidates))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i := range in.Candidates {
		g.Go(func() error {
			results[i] = d.score(in, in.Candidates[i], now, recurringText, opts)
			return nil
		})
	}
	_ = g.Wait()

	exactIDs := make(map[string]struct{})
	for i, c := range in.Candidates {
		if results[i].exact {
			if _, dup := exactIDs[c.ID]; dup {
				continue
			}
			exactIDs[c.ID] = struct{}{}
			res.Exact = append(res.Exact, toMatch(c, results[i].sim))
		}
	}
	res.ShouldBlock = len(res.Exact) > 0

	// visual matches first, then content; the first stage to admit a candidate sets its score
	type admitted struct {
		idx int
		by  string
	}
	var union []admitted
	seen := make(map[string]struct{})
	admit := func(i int, by string) {
		id := in.Candidates[i].ID
		if _, ok := exactIDs[id]; ok {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		union = append(union, admitted{idx: i, by: by})
	}
	for i := range results {
		if results[i].visualOK {
			admit(i, entity.MatchedByVisual)
		}
	}
	for i := range results {
		if results[i].contentOK {
			admit(i, entity.MatchedByContent)
		}
	}

	for _, a := range union {
		sim := results[a.idx].sim
		sim.MatchedBy = a.by
		if a.by == entity.MatchedByVisual {
			sim.Overall = sim.VisualScore
		} else {
			sim.Overall = sim.Content.Similarity
		}
		if sim.Temporal.IsRecurringBillLikely && sim.Content.VendorMatch {
			sim.Overall *= opts.RecurringWeight
		}
		if sim.Overall < opts.MinOverall {
			continue
		}
		res.Potential = append(res.Potential, toMatch(in.Candidates[a.idx], sim))
	}
	sort.SliceStable(res.Potential, func(i, j int) bool {
		return res.Potential[i].Similarity.Overall > res.Potential[j].Similarity.Overall
	})

	d.logger.Debug("duplicate detection complete",
		"candidates", len(in.Candidates),
		"exact", len(res.Exact),
		"potential", len(res.Potential),
	)
	return res
}

// score computes all four factors for one candidate.
func (d *Detector) score(in Input, c entity.DuplicateCandidate, now time.Time, recurringText bool, opts Options) scored {
	var s scored
	s.sim.ChecksumMatch = isExact(in.Fingerprint, c)
	s.exact = s.sim.ChecksumMatch

	dist, n := fingerprint.HammingDistance(in.Fingerprint.PerceptualHash, c.Fingerprint.PerceptualHash)
	s.sim.PerceptualDistance = dist
	s.sim.VisualScore = 1 - float64(dist)/float64(n)
	if c.Fingerprint.PerceptualHash != "" && !strings.EqualFold(c.Fingerprint.PerceptualHash, in.Fingerprint.PerceptualHash) {
		s.visualOK = s.sim.VisualScore >= opts.VisualThreshold
	}

	if !c.Entities.IsEmpty() {
		s.sim.Content = ContentSimilarity(in.Entities, c.Entities)
		s.contentOK = s.sim.Content.FactorsCompared > 0 && s.sim.Content.Similarity >= opts.ContentThreshold
	}

	s.sim.Temporal = temporalAnalysis(now, c.CreatedAt, recurringText, opts)

	if s.exact {
		s.sim.Overall = 1
		s.sim.MatchedBy = entity.MatchedByChecksum
	}
	return s
}

func isExact(fp entity.DocumentFingerprint, c entity.DuplicateCandidate) bool {
	return fp.Checksum != "" && c.Fingerprint.Checksum == fp.Checksum
}

func toMatch(c entity.DuplicateCandidate, sim entity.SimilarityResult) entity.DuplicateMatch {
	return entity.DuplicateMatch{
		DocumentID:       c.ID,
		Filename:         c.Filename,
		OriginalFilename: c.OriginalFilename,
		UploadedBy:       c.UploadedBy,
		CreatedAt:        c.CreatedAt,
		Category:         c.Category,
		FileSize:         c.FileSize,
		Similarity:       sim,
	}
}

package duplicate

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

var now = time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)

const baseHash = "0000000000000000"

// hashWithBits returns a 64-bit hash differing from baseHash in the lowest n bits.
func hashWithBits(n int) string {
	return fmt.Sprintf("%016x", uint64(1)<<n-1)
}

func amount(v string) entity.Amount {
	return entity.Amount{Value: decimal.RequireFromString(v), Confidence: 0.9}
}

func vendor(name string) entity.Vendor {
	return entity.Vendor{Name: name, Confidence: 0.8}
}

func candidate(id string, daysAgo int, fp entity.DocumentFingerprint, ents entity.BusinessEntities) entity.DuplicateCandidate {
	return entity.DuplicateCandidate{
		ID:          id,
		Filename:    id + ".png",
		CreatedAt:   now.AddDate(0, 0, -daysAgo),
		Fingerprint: fp,
		Entities:    ents,
	}
}

func newDetector() *Detector {
	return NewDetector(WithClock(func() time.Time { return now }), WithWorkers(4))
}

func TestDetect_NoCandidates(t *testing.T) {
	res := newDetector().Detect(Input{Fingerprint: entity.DocumentFingerprint{Checksum: "abc123"}}, DefaultOptions())
	assert.Empty(t, res.Exact)
	assert.Empty(t, res.Potential)
	assert.False(t, res.ShouldBlock)
}

func TestDetect_ExactDuplicate(t *testing.T) {
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "abc123", PerceptualHash: baseHash},
		Candidates: []entity.DuplicateCandidate{
			candidate("a", 3, entity.DocumentFingerprint{Checksum: "abc123", PerceptualHash: hashWithBits(40)}, entity.BusinessEntities{}),
			candidate("b", 3, entity.DocumentFingerprint{Checksum: "zzz"}, entity.BusinessEntities{}),
		},
	}
	res := newDetector().Detect(in, DefaultOptions())
	require.Len(t, res.Exact, 1)
	assert.Equal(t, "a", res.Exact[0].DocumentID)
	assert.Equal(t, 1.0, res.Exact[0].Similarity.Overall)
	assert.True(t, res.Exact[0].Similarity.ChecksumMatch)
	assert.Equal(t, entity.MatchedByChecksum, res.Exact[0].Similarity.MatchedBy)
	assert.Equal(t, 40, res.Exact[0].Similarity.PerceptualDistance)
	assert.True(t, res.ShouldBlock)
	assert.Empty(t, res.Potential)
}

func TestDetect_ExactOnlyShortCircuits(t *testing.T) {
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "abc123", PerceptualHash: baseHash},
		Candidates: []entity.DuplicateCandidate{
			candidate("visual", 3, entity.DocumentFingerprint{Checksum: "x", PerceptualHash: hashWithBits(1)}, entity.BusinessEntities{}),
			candidate("exact", 3, entity.DocumentFingerprint{Checksum: "abc123"}, entity.BusinessEntities{}),
		},
	}
	opts := DefaultOptions()
	opts.ExactOnly = true
	res := newDetector().Detect(in, opts)
	require.Len(t, res.Exact, 1)
	assert.True(t, res.ShouldBlock)
	assert.Empty(t, res.Potential)

	// without exact matches the remaining stages still run
	in.Candidates = in.Candidates[:1]
	res = newDetector().Detect(in, opts)
	assert.Empty(t, res.Exact)
	require.Len(t, res.Potential, 1)
	assert.False(t, res.ShouldBlock)
}

func TestDetect_VisualMatch(t *testing.T) {
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: baseHash},
		Candidates: []entity.DuplicateCandidate{
			candidate("near", 100, entity.DocumentFingerprint{Checksum: "c1", PerceptualHash: hashWithBits(2)}, entity.BusinessEntities{}),
			candidate("far", 100, entity.DocumentFingerprint{Checksum: "c2", PerceptualHash: hashWithBits(20)}, entity.BusinessEntities{}),
			candidate("short", 100, entity.DocumentFingerprint{Checksum: "c3", PerceptualHash: "0000"}, entity.BusinessEntities{}),
			candidate("nohash", 100, entity.DocumentFingerprint{Checksum: "c4"}, entity.BusinessEntities{}),
		},
	}
	res := newDetector().Detect(in, DefaultOptions())
	require.Len(t, res.Potential, 1)
	m := res.Potential[0]
	assert.Equal(t, "near", m.DocumentID)
	assert.Equal(t, 2, m.Similarity.PerceptualDistance)
	assert.InDelta(t, 0.96875, m.Similarity.Overall, 1e-12)
	assert.Equal(t, entity.MatchedByVisual, m.Similarity.MatchedBy)
	assert.False(t, m.Similarity.Temporal.IsRecurringBillLikely)
	assert.Equal(t, 4, res.CandidatesScanned)
}

func TestDetect_ContentMatchNeedsLoweredThresholds(t *testing.T) {
	ents := entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}}
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new"},
		Entities:    ents,
		Candidates: []entity.DuplicateCandidate{
			candidate("c", 100, entity.DocumentFingerprint{Checksum: "old"}, entity.BusinessEntities{Vendors: []entity.Vendor{vendor("ACME LLC")}}),
		},
	}
	// a single compared category tops out at its own weight (0.4)
	res := newDetector().Detect(in, DefaultOptions())
	assert.Empty(t, res.Potential)

	res = newDetector().Detect(in, Options{ContentThreshold: 0.4, MinOverall: 0.4})
	require.Len(t, res.Potential, 1)
	assert.Equal(t, entity.MatchedByContent, res.Potential[0].Similarity.MatchedBy)
	assert.InDelta(t, 0.4, res.Potential[0].Similarity.Overall, 1e-12)
	assert.True(t, res.Potential[0].Similarity.Content.VendorMatch)
}

func TestDetect_RecurringBillDownWeight(t *testing.T) {
	ents := entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}, Amounts: []entity.Amount{amount("100.00")}}
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: baseHash},
		Entities:    ents,
		Text:        "Your MONTHLY service statement",
		Candidates: []entity.DuplicateCandidate{
			candidate("last-month", 32, entity.DocumentFingerprint{Checksum: "old", PerceptualHash: hashWithBits(2)}, ents),
		},
	}
	res := newDetector().Detect(in, DefaultOptions())
	require.Len(t, res.Potential, 1)
	sim := res.Potential[0].Similarity
	assert.True(t, sim.Temporal.IsRecurringBillLikely)
	assert.Equal(t, 32, sim.Temporal.DaysSinceCandidate)
	assert.Contains(t, sim.Temporal.HumanReadableDelta, "ago")
	assert.True(t, sim.Content.VendorMatch)
	assert.True(t, sim.Content.AmountMatch)
	assert.InDelta(t, 0.96875*0.7, sim.Overall, 1e-12)
	assert.LessOrEqual(t, sim.Overall, sim.VisualScore)
}

func TestDetect_RecurringNeedsKeywordWindowAndVendor(t *testing.T) {
	ents := entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}}
	other := entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Globex Corp")}}
	fp := entity.DocumentFingerprint{Checksum: "old", PerceptualHash: hashWithBits(2)}

	tests := []struct {
		name      string
		text      string
		daysAgo   int
		cand      entity.BusinessEntities
		recurring bool
		weighted  bool
	}{
		{"all conditions", "monthly bill", 30, ents, true, true},
		{"no keyword", "one-off purchase", 30, ents, false, false},
		{"outside window", "monthly bill", 90, ents, false, false},
		{"lower window edge", "subscription", 13, ents, true, true},
		{"below window", "subscription", 12, ents, false, false},
		{"different vendor", "monthly bill", 30, other, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: baseHash},
				Entities:    ents,
				Text:        tt.text,
				Candidates:  []entity.DuplicateCandidate{candidate("c", tt.daysAgo, fp, tt.cand)},
			}
			res := newDetector().Detect(in, DefaultOptions())
			require.Len(t, res.Potential, 1)
			sim := res.Potential[0].Similarity
			assert.Equal(t, tt.recurring, sim.Temporal.IsRecurringBillLikely)
			if tt.weighted {
				assert.InDelta(t, 0.96875*0.7, sim.Overall, 1e-12)
			} else {
				assert.InDelta(t, 0.96875, sim.Overall, 1e-12)
			}
		})
	}
}

func TestDetect_DownWeightCanDropBelowMinimum(t *testing.T) {
	ents := entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}}
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: baseHash},
		Entities:    ents,
		Text:        "monthly statement",
		Candidates: []entity.DuplicateCandidate{
			candidate("c", 30, entity.DocumentFingerprint{Checksum: "old", PerceptualHash: hashWithBits(12)}, ents),
		},
	}
	res := newDetector().Detect(in, Options{VisualThreshold: 0.8})
	assert.Empty(t, res.Potential)
}

func TestDetect_UnionDedupAndOrdering(t *testing.T) {
	ents := entity.BusinessEntities{
		Vendors: []entity.Vendor{vendor("Acme LLC")},
	}
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: baseHash},
		Entities:    ents,
		Candidates: []entity.DuplicateCandidate{
			candidate("both", 200, entity.DocumentFingerprint{Checksum: "1", PerceptualHash: hashWithBits(8)}, ents),
			candidate("content-only", 200, entity.DocumentFingerprint{Checksum: "2"}, ents),
			candidate("best-visual", 200, entity.DocumentFingerprint{Checksum: "3", PerceptualHash: hashWithBits(1)}, entity.BusinessEntities{}),
			candidate("both", 200, entity.DocumentFingerprint{Checksum: "1", PerceptualHash: hashWithBits(8)}, ents),
		},
	}
	opts := Options{ContentThreshold: 0.4, MinOverall: 0.4}
	res := newDetector().Detect(in, opts)
	require.Len(t, res.Potential, 3)
	assert.Equal(t, "best-visual", res.Potential[0].DocumentID)
	assert.Equal(t, "both", res.Potential[1].DocumentID)
	assert.Equal(t, entity.MatchedByVisual, res.Potential[1].Similarity.MatchedBy)
	assert.InDelta(t, 0.875, res.Potential[1].Similarity.Overall, 1e-12)
	assert.True(t, res.Potential[1].Similarity.Content.VendorMatch)
	assert.Equal(t, "content-only", res.Potential[2].DocumentID)

	// identical input, identical output
	assert.Equal(t, res, newDetector().Detect(in, opts))
}

func TestDetect_IdenticalPerceptualHashIsNotAVisualMatch(t *testing.T) {
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: baseHash},
		Candidates: []entity.DuplicateCandidate{
			candidate("same-hash", 10, entity.DocumentFingerprint{Checksum: "old", PerceptualHash: baseHash}, entity.BusinessEntities{}),
		},
	}
	res := newDetector().Detect(in, DefaultOptions())
	assert.Empty(t, res.Potential)
}

func TestDetect_PerceptualHashCaseIsIgnored(t *testing.T) {
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: "abcdef0123456789"},
		Candidates: []entity.DuplicateCandidate{
			candidate("upper", 10, entity.DocumentFingerprint{Checksum: "old", PerceptualHash: "ABCDEF0123456789"}, entity.BusinessEntities{}),
		},
	}
	res := newDetector().Detect(in, DefaultOptions())
	assert.Empty(t, res.Potential)
}

func TestDetect_RecurringKeywordsAreConfigurable(t *testing.T) {
	ents := entity.BusinessEntities{Vendors: []entity.Vendor{vendor("Acme LLC")}}
	in := Input{
		Fingerprint: entity.DocumentFingerprint{Checksum: "new", PerceptualHash: baseHash},
		Entities:    ents,
		Text:        "Quarterly retainer",
		Candidates: []entity.DuplicateCandidate{
			candidate("c", 30, entity.DocumentFingerprint{Checksum: "old", PerceptualHash: hashWithBits(2)}, ents),
		},
	}

	res := newDetector().Detect(in, DefaultOptions())
	require.Len(t, res.Potential, 1)
	assert.False(t, res.Potential[0].Similarity.Temporal.IsRecurringBillLikely)

	d := NewDetector(WithClock(func() time.Time { return now }), WithRecurringKeywords([]string{"quarterly"}))
	res = d.Detect(in, DefaultOptions())
	require.Len(t, res.Potential, 1)
	assert.True(t, res.Potential[0].Similarity.Temporal.IsRecurringBillLikely)
	assert.InDelta(t, 0.96875*0.7, res.Potential[0].Similarity.Overall, 1e-12)

	d = NewDetector(WithClock(func() time.Time { return now }), WithRecurringKeywords(nil))
	res = d.Detect(Input{
		Fingerprint: in.Fingerprint,
		Entities:    ents,
		Text:        "monthly statement",
		Candidates:  in.Candidates,
	}, DefaultOptions())
	require.Len(t, res.Potential, 1)
	assert.True(t, res.Potential[0].Similarity.Temporal.IsRecurringBillLikely)
}

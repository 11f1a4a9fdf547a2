package duplicate

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

// temporalAnalysis flags candidates that sit one billing period away from now when the
// new document reads like a recurring bill.
func temporalAnalysis(now, created time.Time, recurringText bool, opts Options) entity.TemporalAnalysis {
	days := math.Floor(math.Abs(now.Sub(created).Hours()) / 24)
	lo := opts.RecurringPeriodDays - opts.TemporalToleranceDays/2
	hi := opts.RecurringPeriodDays + opts.TemporalToleranceDays/2
	return entity.TemporalAnalysis{
		DaysSinceCandidate:    int(days),
		IsRecurringBillLikely: recurringText && days >= lo && days <= hi,
		HumanReadableDelta:    humanize.RelTime(created, now, "ago", "from now"),
	}
}

// containsAny reports whether lower-cased text contains any keyword.
func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	l := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(l, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docintel/internal/entity"
)

var (
	reTableRow   = regexp.MustCompile(`\S+(?:\s{2,}|\t|\s*\|\s*)\S+(?:\s{2,}|\t|\s*\|\s*)\S+`)
	reFooter     = regexp.MustCompile(`(?i)\b(?:thank you|page \d+(?: of \d+)?|terms(?: and conditions)?|all rights reserved|please remit|questions\?)`)
	reSignature  = regexp.MustCompile(`(?i)\b(?:signature|signed by|authorized signatory)\b|/s/`)
	reLetterhead = DefaultPatterns().VendorSuffix
)

// DetectStructure derives coarse layout flags from extracted text when the
// provider does not report them.
func DetectStructure(text string) entity.StructureFlags {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return entity.StructureFlags{}
	}
	var flags entity.StructureFlags

	rows := 0
	for _, ln := range lines {
		if reTableRow.MatchString(ln) {
			rows++
		}
	}
	flags.HasTable = rows >= 3

	// first lines carry a letterhead or a title
	head := lines[:min(3, len(lines))]
	for _, ln := range head {
		if len(ln) >= 3 && (isShouting(ln) || reLetterhead.MatchString(ln)) {
			flags.HasHeader = true
			break
		}
	}

	tail := lines[max(0, len(lines)-3):]
	for _, ln := range tail {
		if reFooter.MatchString(ln) {
			flags.HasFooter = true
			break
		}
	}
	flags.HasSignature = reSignature.MatchString(text)
	return flags
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isShouting(s string) bool {
	return strings.ToUpper(s) == s && strings.ToLower(s) != s
}

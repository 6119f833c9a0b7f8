package postprocess

import (
	"regexp"
	"strings"
)

// reasoningPatterns match paragraphs of leaked internal reasoning the model
// should never surface to the caller. Matched lines are dropped entirely,
// not just the matching prefix — a leaked reasoning line rarely stands
// alone as a useful sentence once its lead-in is removed.
var reasoningPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*okay,?\s+since\b.*$`),
	regexp.MustCompile(`(?i)^\s*given that\b.*observation:.*$`),
	regexp.MustCompile(`(?i)^\s*thought:.*$`),
	regexp.MustCompile(`(?i)^\s*observation:.*$`),
	regexp.MustCompile(`(?i)^\s*let me (think|reason)\b.*$`),
}

// stripInternalReasoning removes lines that look like leaked chain-of-
// thought, then collapses the resulting blank-line runs.
func stripInternalReasoning(draft string) string {
	lines := strings.Split(draft, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if matchesAny(line, reasoningPatterns) {
			continue
		}
		kept = append(kept, line)
	}

	return collapseBlankLines(strings.Join(kept, "\n"))
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

var blankRunPattern = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(s, "\n\n"))
}

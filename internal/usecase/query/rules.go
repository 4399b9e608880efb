package query

import "regexp"

// Length constraints for an incoming question.
const (
	minQueryLen = 3
	maxQueryLen = 500
)

// invalidPatterns disqualify a query before it reaches the LLM. Order is
// cheapest-first; all are matched case-insensitively.
var invalidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*$`),               // empty or whitespace
	regexp.MustCompile(`^[^a-zA-Z]*$`),        // no letters
	regexp.MustCompile(`(?i)\b(fuck|shit|damn)\b`), // basic profanity
	regexp.MustCompile(`(?i)(http|www\.)`),    // URLs
	regexp.MustCompile(`^\d+$`),               // just numbers
}

// passesBasicRules reports whether a query survives the cheap rule screen.
func passesBasicRules(q string) bool {
	if len(q) < minQueryLen || len(q) > maxQueryLen {
		return false
	}
	for _, re := range invalidPatterns {
		if re.MatchString(q) {
			return false
		}
	}
	return true
}

package source

import (
	"regexp"
	"strings"
)

// Abstracts scraped from aggregators carry journal boilerplate, citation
// fragments, and front matter that would pollute the embedding signal.
// The patterns below mirror what actually shows up in OpenAlex and
// Crossref abstracts.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Journal of.*?\d+`),
	regexp.MustCompile(`(?i)Volume \d+.*?\d+`),
	regexp.MustCompile(`(?i)First published:.*?(\n|$)`),
	regexp.MustCompile(`https?://\S+`),
	regexp.MustCompile(`(?i)DOI:.*?(\n|$)`),
	regexp.MustCompile(`(?i)Citations:.*?(\n|$)`),
	regexp.MustCompile(`(?i)\(e-mail:.*?\)`),
	regexp.MustCompile(`(?i)Search for more papers.*?(\n|$)`),
	regexp.MustCompile(`(?i)Please review.*?(\n|$)`),
	regexp.MustCompile(`(?i)Copyright.*?(\n|$)`),
	regexp.MustCompile(`(?i)Chapter \d+.*?(\n|$)`),
	regexp.MustCompile(`(?i)Part [IVX]+.*?(\n|$)`),
	regexp.MustCompile(`(?i)Acknowledgments.*?(\n|$)`),
	regexp.MustCompile(`(?i)Abstract[:.]?\s`),
	regexp.MustCompile(`(?i)\*Contributed equally.*?(\n|$)`),
}

var (
	xmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	yearCiteRe   = regexp.MustCompile(`\(\d{4}\)`)
	numberCiteRe = regexp.MustCompile(`\[[\d,\s]+\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanAbstract strips markup, boilerplate, and citation fragments from a
// raw abstract and collapses whitespace.
func CleanAbstract(text string) string {
	if text == "" {
		return ""
	}

	text = xmlTagRe.ReplaceAllString(text, " ")
	for _, re := range boilerplatePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = yearCiteRe.ReplaceAllString(text, "")
	text = numberCiteRe.ReplaceAllString(text, "")

	return CollapseWhitespace(text)
}

// CollapseWhitespace squeezes runs of whitespace to single spaces and trims.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

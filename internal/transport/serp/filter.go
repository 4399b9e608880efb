package serp

import (
	"net/url"
	"strings"
)

// excludedDomains are sources whose content is unreliable grounding:
// social media, Q&A aggregators, and listicle mills.
var excludedDomains = map[string]struct{}{
	"reddit.com":             {},
	"quora.com":              {},
	"pinterest.com":          {},
	"facebook.com":           {},
	"twitter.com":            {},
	"instagram.com":          {},
	"tiktok.com":             {},
	"youtube.com":            {},
	"medium.com":             {},
	"linkedin.com":           {},
	"towardsdatascience.com": {},
	"wikihow.com":            {},
	"wikipedia.org":          {},
	"yahoo.answers.com":      {},
	"answers.com":            {},
	"answers.yahoo.com":      {},
	"buzzfeed.com":           {},
	"boredpanda.com":         {},
	"huffpost.com":           {},
}

// excludedURLPatterns mark forum threads, user-generated content, and
// other pages a summary should not cite. Matched against the whole URL.
var excludedURLPatterns = []string{
	"forum", "thread", "discussion", "community", "comments",
	"board", "topic", "message", "chat", "conversation", "talk",
	"reddit", "quora", "answers", "ask", "stackexchange", "wikipedia", "wiki",
	"blog", "post", "question", "responses", "replies", "kids",
}

// validSource reports whether a URL is acceptable grounding evidence.
func validSource(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	if _, excluded := excludedDomains[extractDomain(rawURL)]; excluded {
		return false
	}

	lower := strings.ToLower(rawURL)
	for _, pattern := range excludedURLPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

// extractDomain returns the lowercased host without a www. prefix.
func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

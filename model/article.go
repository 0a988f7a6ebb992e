package model

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleRunes   = 100
	MaxSummaryRunes = 250
)

// Article is a single normalized entry collected from a source
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"` // Zero when the source did not say
	Source      string    `json:"source"`
}

// Key returns the deduplication key of the article
func (a Article) Key() string {
	return NormalizeURL(a.URL)
}

// HasPublished reports whether the publication time is known
func (a Article) HasPublished() bool {
	return !a.PublishedAt.IsZero()
}

// NewArticle builds an article with whitespace collapsed and fields truncated.
// An empty title falls back to the URL.
func NewArticle(source, title, link, summary string, published time.Time) Article {
	link = strings.TrimSpace(link)
	title = CollapseSpace(title)
	if title == "" {
		title = link
	}
	return Article{
		Title:       Truncate(title, MaxTitleRunes),
		URL:         link,
		Summary:     Truncate(CollapseSpace(summary), MaxSummaryRunes),
		PublishedAt: published,
		Source:      source,
	}
}

// NormalizeURL reduces a URL to scheme+host+path with the query, fragment
// and trailing slash removed. Scheme and host are lower-cased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimRight(raw, "/")
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}

// CollapseSpace trims s and folds every whitespace run into a single space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most limit runes, appending "..." when cut
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	rs := []rune(s)
	if limit <= 3 {
		return string(rs[:limit])
	}
	return strings.TrimSpace(string(rs[:limit-3])) + "..."
}

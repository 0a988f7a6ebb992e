package model

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strategy selects how articles are retrieved from a source
type Strategy string

// Mode is the run-wide strategy switch
type Mode = Strategy

const (
	Feed Strategy = "feed" // Syndication feed (RSS, Atom, JSON Feed)
	Deep Strategy = "deep" // HTML listing page plus linked article pages
)

// ParseStrategy accepts the canonical names plus the aliases used by older
// configs ("rss" for feed, "async" and "full" for deep).
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feed", "rss":
		return Feed, nil
	case "deep", "async", "full":
		return Deep, nil
	default:
		return "", fmt.Errorf("unknown strategy: %q", s)
	}
}

func (s Strategy) Valid() bool {
	return s == Feed || s == Deep
}

// SourceDescriptor describes one configured source. It is built once at
// startup and never modified.
type SourceDescriptor struct {
	Name        string
	Endpoint    string   // Feed URL
	IndexURL    string   // HTML listing for the deep strategy (defaults to the endpoint's site root)
	Strategy    Strategy // Declared strategy, overridden by the run mode
	FilterNames []string
}

// EndpointFor returns the URL fetched by the given strategy
func (d SourceDescriptor) EndpointFor(s Strategy) string {
	if s != Deep {
		return d.Endpoint
	}
	if d.IndexURL != "" {
		return d.IndexURL
	}
	u, err := url.Parse(d.Endpoint)
	if err != nil || u.Host == "" {
		return d.Endpoint
	}
	return u.Scheme + "://" + u.Host + "/"
}

// DisplayName turns a registry key like "krebs_security" into "Krebs Security"
func DisplayName(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

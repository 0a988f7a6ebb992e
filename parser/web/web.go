package web

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/scipunch/secfeed/model"
	"github.com/scipunch/secfeed/parser"
)

// Paragraphs shorter than this are navigation or bylines, not summaries
const minSummaryRunes = 40

var reDatePublished = regexp.MustCompile(`"datePublished"\s*:\s*"([^"]+)"`)

// Listing selectors in priority order. The first one matching anything wins.
var listingSelectors = []string{
	"article h2 a[href]",
	"article h3 a[href]",
	".entry-title a[href]",
	".post-title a[href]",
	"h2 a[href]",
	"h3 a[href]",
}

var nextSelectors = []string{
	`a[rel="next"]`,
	`link[rel="next"]`,
	"a.next.page-numbers",
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Parser extracts listings and article pages from generic news sites
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

var _ parser.Parser = (*Parser)(nil)

// ParseListing returns the same-host article links of an index page in
// document order together with its rel=next link
func (p *Parser) ParseListing(body []byte, pageURL string) (parser.Listing, error) {
	var listing parser.Listing
	base, err := url.Parse(pageURL)
	if err != nil {
		return listing, fmt.Errorf("invalid listing url %q with %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return listing, fmt.Errorf("failed to parse listing HTML with %w", err)
	}

	self := model.NormalizeURL(base.String())
	for _, sel := range listingSelectors {
		seen := make(map[string]bool)
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			abs := resolve(base, href)
			if abs == nil || !sameSite(base, abs) {
				return
			}
			key := model.NormalizeURL(abs.String())
			if key == self || seen[key] {
				return
			}
			seen[key] = true

			title := model.CollapseSpace(a.Text())
			if title == "" {
				title, _ = a.Attr("title")
			}
			listing.Links = append(listing.Links, parser.Link{Title: title, URL: abs.String()})
		})
		if len(listing.Links) > 0 {
			break
		}
	}

	for _, sel := range nextSelectors {
		href, ok := doc.Find(sel).First().Attr("href")
		if !ok {
			continue
		}
		if abs := resolve(base, href); abs != nil && model.NormalizeURL(abs.String()) != self {
			listing.Next = abs.String()
			break
		}
	}
	return listing, nil
}

// ParsePage extracts title, summary and publication time with best-effort
// selectors. Missing values are left empty.
func (p *Parser) ParsePage(body []byte, pageURL string) (parser.Page, error) {
	var page parser.Page
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return page, fmt.Errorf("failed to parse page %s with %w", pageURL, err)
	}

	page.Title = firstNonEmpty(
		meta(doc, `meta[property="og:title"]`),
		model.CollapseSpace(doc.Find("article h1, h1").First().Text()),
		model.CollapseSpace(doc.Find("title").First().Text()),
	)
	page.Summary = firstNonEmpty(
		meta(doc, `meta[name="description"]`),
		meta(doc, `meta[property="og:description"]`),
		firstParagraph(doc),
	)
	page.Published = published(doc, body)
	return page, nil
}

func meta(doc *goquery.Document, sel string) string {
	v, _ := doc.Find(sel).First().Attr("content")
	return model.CollapseSpace(v)
}

func firstParagraph(doc *goquery.Document) string {
	var out string
	doc.Find("article p, .entry-content p, .entry-summary p, main p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := model.CollapseSpace(s.Text())
		if len([]rune(text)) >= minSummaryRunes {
			out = text
			return false
		}
		return true
	})
	return out
}

func published(doc *goquery.Document, body []byte) time.Time {
	candidates := []string{
		meta(doc, `meta[property="article:published_time"]`),
		attr(doc, "time[datetime]", "datetime"),
		meta(doc, `meta[name="date"]`),
		meta(doc, `meta[itemprop="datePublished"]`),
	}
	if m := reDatePublished.FindSubmatch(body); m != nil {
		candidates = append(candidates, string(m[1]))
	}
	for _, c := range candidates {
		if t, ok := ParseTime(c); ok {
			return t
		}
	}
	return time.Time{}
}

func attr(doc *goquery.Document, sel, name string) string {
	v, _ := doc.Find(sel).First().Attr(name)
	return strings.TrimSpace(v)
}

// ParseTime tries the date layouts commonly found in article markup
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil
	}
	abs.Fragment = ""
	return abs
}

func sameSite(a, b *url.URL) bool {
	return strings.TrimPrefix(strings.ToLower(a.Hostname()), "www.") ==
		strings.TrimPrefix(strings.ToLower(b.Hostname()), "www.")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

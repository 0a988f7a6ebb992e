package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/scipunch/secfeed/model"
)

// Page is what a parser could extract from one article page. Empty fields
// mean the page did not provide them.
type Page struct {
	Title     string
	Summary   string
	Published time.Time
}

// Link is a candidate article found on a listing page
type Link struct {
	Title string
	URL   string
}

// Listing is the result of parsing an index page
type Listing struct {
	Links []Link
	Next  string // Absolute URL of the following listing page, if any
}

// Parser extracts articles from HTML documents
type Parser interface {
	ParseListing(body []byte, pageURL string) (Listing, error)
	ParsePage(body []byte, pageURL string) (Page, error)
}

// PlainText strips markup from an HTML fragment and collapses whitespace
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return model.CollapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return model.CollapseSpace(fragment)
	}
	return model.CollapseSpace(doc.Text())
}

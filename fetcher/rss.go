package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/secfeed/model"
	"github.com/scipunch/secfeed/parser"
)

// FetchFeed retrieves a syndication feed (RSS, Atom or JSON Feed) with one
// request and yields one article per entry in feed order. Entries without a
// link, or whose link does not resolve to an http(s) URL, are skipped;
// other missing fields stay empty.
func FetchFeed(ctx context.Context, g Getter, endpoint string, limit int, yield func(model.Article) bool) (Stats, error) {
	var stats Stats
	if limit <= 0 {
		return stats, nil
	}

	body, err := g.Get(ctx, endpoint)
	if err != nil {
		return stats, err
	}
	stats.Pages++

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return stats, model.NewError(model.KindParse, fmt.Errorf("failed to parse feed %s with %w", endpoint, err))
	}

	base := feedBase(endpoint, feed.Link)
	for _, item := range feed.Items {
		if item == nil {
			stats.Skipped++
			continue
		}
		link, ok := absoluteLink(base, item.Link)
		if !ok {
			stats.Skipped++
			continue
		}
		if !yield(articleFromItem(item, link)) {
			break
		}
	}
	return stats, nil
}

// feedBase is the URL relative entry links resolve against: the feed's own
// site link, itself resolved against the endpoint it was fetched from
func feedBase(endpoint, siteLink string) *url.URL {
	base, err := url.Parse(endpoint)
	if err != nil {
		base = &url.URL{}
	}
	if siteLink = strings.TrimSpace(siteLink); siteLink != "" {
		if ref, err := url.Parse(siteLink); err == nil {
			base = base.ResolveReference(ref)
		}
	}
	return base
}

func absoluteLink(base *url.URL, link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if (abs.Scheme != "http" && abs.Scheme != "https") || abs.Host == "" {
		return "", false
	}
	return abs.String(), true
}

func articleFromItem(item *gofeed.Item, link string) model.Article {
	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return model.NewArticle("", parser.PlainText(item.Title), link, parser.PlainText(summary), published)
}

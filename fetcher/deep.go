package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/scipunch/secfeed/model"
	"github.com/scipunch/secfeed/parser"
	"github.com/scipunch/secfeed/parser/web"
)

// MaxListingPages bounds how many index pages one deep fetch walks
const MaxListingPages = 5

// FetchDeep walks the HTML listing at endpoint, following rel=next pages, and
// fetches every linked article page. Each listing page contributes at most
// limit new links. A failed article page degrades that article to title+URL.
func FetchDeep(ctx context.Context, g Getter, endpoint string, limit int, yield func(model.Article) bool) (Stats, error) {
	return deep{parser: web.New()}.fetch(ctx, g, endpoint, limit, yield)
}

type deep struct {
	parser parser.Parser
}

func (d deep) fetch(ctx context.Context, g Getter, endpoint string, limit int, yield func(model.Article) bool) (Stats, error) {
	var stats Stats
	if limit <= 0 {
		return stats, nil
	}

	seen := make(map[string]bool)
	next := endpoint
	for page := 0; page < MaxListingPages && next != ""; page++ {
		body, err := g.Get(ctx, next)
		if err != nil {
			return stats, err
		}
		stats.Pages++

		listing, err := d.parser.ParseListing(body, next)
		if err != nil {
			return stats, model.NewError(model.KindParse, fmt.Errorf("failed to parse listing %s with %w", next, err))
		}
		if page == 0 && len(listing.Links) == 0 {
			return stats, model.NewError(model.KindParse, fmt.Errorf("no article links found at %s", next))
		}

		taken := 0
		for _, link := range listing.Links {
			if taken >= limit {
				break
			}
			key := model.NormalizeURL(link.URL)
			if seen[key] {
				continue
			}
			seen[key] = true
			taken++

			article, err := d.article(ctx, g, link, &stats)
			if err != nil {
				return stats, err
			}
			if !yield(article) {
				return stats, nil
			}
		}
		next = listing.Next
	}
	return stats, nil
}

// article fetches one linked page. Only cancellation is returned as an
// error; every other failure degrades the article.
func (d deep) article(ctx context.Context, g Getter, link parser.Link, stats *Stats) (model.Article, error) {
	body, err := g.Get(ctx, link.URL)
	if err != nil {
		if model.KindOf(err) == model.KindCancelled {
			return model.Article{}, err
		}
		stats.Degraded++
		return model.NewArticle("", link.Title, link.URL, "", time.Time{}), nil
	}
	stats.Pages++

	page, err := d.parser.ParsePage(body, link.URL)
	if err != nil {
		stats.Degraded++
		return model.NewArticle("", link.Title, link.URL, "", time.Time{}), nil
	}

	title := page.Title
	if title == "" {
		title = link.Title
	}
	return model.NewArticle("", title, link.URL, page.Summary, page.Published), nil
}

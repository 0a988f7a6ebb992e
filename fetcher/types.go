package fetcher

import (
	"context"

	"github.com/scipunch/secfeed/model"
)

// Stats describes what a strategy did besides yielding articles
type Stats struct {
	Skipped  int // Malformed entries dropped
	Degraded int // Articles emitted as title+URL only
	Pages    int // Documents fetched
}

// FetchFunc retrieves articles from one source. It calls yield for every
// article in source order and stops early when yield returns false. A
// strategy holds no state between calls.
type FetchFunc func(ctx context.Context, g Getter, endpoint string, limit int, yield func(model.Article) bool) (Stats, error)

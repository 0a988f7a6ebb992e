package fetcher

import (
	"fmt"

	"github.com/scipunch/secfeed/model"
)

// For returns the fetch function implementing the given strategy
func For(s model.Strategy) (FetchFunc, error) {
	switch s {
	case model.Feed:
		return FetchFeed, nil
	case model.Deep:
		return FetchDeep, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", s)
	}
}

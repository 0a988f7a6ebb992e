package source

import (
	"fmt"

	"github.com/scipunch/secfeed/config"
	"github.com/scipunch/secfeed/model"
)

var defaults = []model.SourceDescriptor{
	{Name: "gb_hackers", Endpoint: "https://gbhackers.com/feed/", IndexURL: "https://gbhackers.com/", Strategy: model.Feed},
	{Name: "the_hacker_news", Endpoint: "https://feeds.feedburner.com/TheHackersNews", IndexURL: "https://thehackernews.com/", Strategy: model.Feed},
	{Name: "security_week", Endpoint: "https://www.securityweek.com/feed/", IndexURL: "https://www.securityweek.com/", Strategy: model.Feed},
	{Name: "dark_reading", Endpoint: "https://www.darkreading.com/rss.xml", IndexURL: "https://www.darkreading.com/", Strategy: model.Feed},
	{Name: "bleeping_computer", Endpoint: "https://www.bleepingcomputer.com/feed/", IndexURL: "https://www.bleepingcomputer.com/", Strategy: model.Feed},
	{Name: "krebs_security", Endpoint: "https://krebsonsecurity.com/feed/", IndexURL: "https://krebsonsecurity.com/", Strategy: model.Feed},
}

// Defaults returns a copy of the built-in cybersecurity news sources
func Defaults() []model.SourceDescriptor {
	out := make([]model.SourceDescriptor, len(defaults))
	copy(out, defaults)
	return out
}

// FromConfig builds the descriptors for every enabled configured source.
// An empty source list means the built-in registry.
func FromConfig(cfg config.Config) ([]model.SourceDescriptor, error) {
	if len(cfg.Sources) == 0 {
		return Defaults(), nil
	}

	descs := make([]model.SourceDescriptor, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if !s.IsEnabled() {
			continue
		}
		strategy := model.Feed
		if s.Strategy != "" {
			st, err := model.ParseStrategy(s.Strategy)
			if err != nil {
				return nil, fmt.Errorf("source '%s' has invalid strategy with %w", s.Name, err)
			}
			strategy = st
		}
		descs = append(descs, model.SourceDescriptor{
			Name:        s.Name,
			Endpoint:    s.FeedURL,
			IndexURL:    s.IndexURL,
			Strategy:    strategy,
			FilterNames: append([]string(nil), s.FilterNames...),
		})
	}
	return descs, nil
}

// Names lists descriptor names in order
func Names(descs []model.SourceDescriptor) []string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return names
}

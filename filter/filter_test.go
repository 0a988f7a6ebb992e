package filter

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scipunch/secfeed/config"
	"github.com/scipunch/secfeed/model"
)

func TestPipeline_MinLength(t *testing.T) {
	pipeline, err := NewPipeline(map[string]config.Filter{"short": {MinLength: 50}}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	tests := []struct {
		name          string
		article       model.Article
		shouldInclude bool
	}{
		{
			name: "long enough",
			article: model.Article{
				Title:   "Patch Tuesday",
				Summary: "Microsoft fixed 61 vulnerabilities including two actively exploited zero-days",
			},
			shouldInclude: true,
		},
		{
			name:          "too short",
			article:       model.Article{Title: "Short", Summary: "Too short"},
			shouldInclude: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			include, _ := pipeline.ShouldInclude(tt.article, []string{"short"})
			if include != tt.shouldInclude {
				t.Errorf("Expected shouldInclude=%v, got %v", tt.shouldInclude, include)
			}
		})
	}
}

func TestPipeline_MinWords(t *testing.T) {
	pipeline, err := NewPipeline(map[string]config.Filter{"word_count": {MinWords: 8}}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	include, _ := pipeline.ShouldInclude(model.Article{
		Title:   "New botnet",
		Summary: "A Mirai variant is spreading through unpatched routers",
	}, []string{"word_count"})
	if !include {
		t.Error("Expected article with enough words to pass")
	}

	include, reason := pipeline.ShouldInclude(model.Article{Title: "Sponsored", Summary: "Webinar today"}, []string{"word_count"})
	if include || reason != "word_count:min_words" {
		t.Errorf("Expected min_words rejection, got %v (%s)", include, reason)
	}
}

func TestPipeline_ExcludePatterns(t *testing.T) {
	pipeline, err := NewPipeline(map[string]config.Filter{
		"no_ads": {ExcludePatterns: []string{"(?i)^sponsored", "(?i)webinar"}},
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	tests := []struct {
		name          string
		article       model.Article
		shouldInclude bool
	}{
		{"normal", model.Article{Title: "CISA adds flaw to KEV catalog", Summary: "Agencies must patch"}, true},
		{"sponsored title", model.Article{Title: "Sponsored: buy our EDR", Summary: "x"}, false},
		{"webinar in summary", model.Article{Title: "Learn more", Summary: "Join our WEBINAR on Friday"}, false},
		{"pattern not at start", model.Article{Title: "Report on sponsored spyware", Summary: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			include, reason := pipeline.ShouldInclude(tt.article, []string{"no_ads"})
			if include != tt.shouldInclude {
				t.Errorf("Expected shouldInclude=%v, got %v (reason: %s)", tt.shouldInclude, include, reason)
			}
		})
	}
}

func TestPipeline_RequireSummary(t *testing.T) {
	pipeline, err := NewPipeline(map[string]config.Filter{"summary": {RequireSummary: true}}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	if include, _ := pipeline.ShouldInclude(model.Article{Title: "Title", Summary: "Body"}, []string{"summary"}); !include {
		t.Error("Expected article with a summary to pass")
	}
	if include, reason := pipeline.ShouldInclude(model.Article{Title: "Title"}, []string{"summary"}); include || reason != "summary:require_summary" {
		t.Errorf("Expected require_summary rejection, got %v (%s)", include, reason)
	}
}

func TestPipeline_Order(t *testing.T) {
	pipeline, err := NewPipeline(map[string]config.Filter{
		"length":   {MinLength: 30},
		"words":    {MinWords: 5},
		"patterns": {ExcludePatterns: []string{"^Sponsored.*"}},
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	a := model.Article{
		Title:   "Sponsored report on ransomware negotiation trends",
		Summary: "This is a longer description",
	}
	include, reason := pipeline.ShouldInclude(a, []string{"length", "words", "patterns"})
	if include {
		t.Errorf("Expected article to be filtered out by patterns, but it passed")
	}
	if reason != "patterns:exclude_pattern[^Sponsored.*]" {
		t.Errorf("Expected reason to mention pattern filter, got: %s", reason)
	}
}

func TestPipeline_NoFiltersAndUnknown(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pipeline, err := NewPipeline(nil, zap.New(core))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	a := model.Article{Title: "Any title", Summary: "Any content"}

	if include, _ := pipeline.ShouldInclude(a, nil); !include {
		t.Error("Expected article to be included when no filters applied")
	}
	if include, _ := pipeline.ShouldInclude(a, []string{"missing"}); !include {
		t.Error("Expected unknown filter to be skipped")
	}
	warned := logs.FilterMessage("filter not found, skipping").FilterField(zap.String("filter", "missing"))
	if warned.Len() != 1 {
		t.Errorf("Expected one warning for the unknown filter, got %d", warned.Len())
	}
}

func TestNewPipeline_InvalidPattern(t *testing.T) {
	_, err := NewPipeline(map[string]config.Filter{"bad": {ExcludePatterns: []string{"("}}}, nil)
	if err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

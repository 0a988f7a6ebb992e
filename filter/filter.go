package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/scipunch/secfeed/config"
	"github.com/scipunch/secfeed/model"
)

// Pipeline applies a series of named filters to collected articles. It is
// read-only after construction and safe for concurrent use.
type Pipeline struct {
	filters map[string]*compiled
	log     *zap.Logger
}

type compiled struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
}

// NewPipeline compiles the configured filters. An invalid exclude pattern is
// a configuration error.
func NewPipeline(filters map[string]config.Filter, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	out := make(map[string]*compiled, len(filters))

	for name, cfg := range filters {
		cf := &compiled{
			config:          cfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(cfg.ExcludePatterns)),
		}
		for _, pattern := range cfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("filter '%s' has invalid pattern %q with %w", name, pattern, err)
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
		}
		out[name] = cf
	}

	return &Pipeline{filters: out, log: log}, nil
}

// ShouldInclude reports whether the article passes every named filter in
// order. When it does not, the reason names the rejecting filter and rule.
func (p *Pipeline) ShouldInclude(a model.Article, filterNames []string) (bool, string) {
	for _, name := range filterNames {
		f, ok := p.filters[name]
		if !ok {
			p.log.Warn("filter not found, skipping", zap.String("filter", name))
			continue
		}
		if include, reason := f.apply(a, name); !include {
			return false, reason
		}
	}
	return true, ""
}

func (f *compiled) apply(a model.Article, name string) (bool, string) {
	text := a.Title + " " + a.Summary

	if f.config.MinLength > 0 && len([]rune(text)) < f.config.MinLength {
		return false, name + ":min_length"
	}
	if f.config.MinWords > 0 && countWords(text) < f.config.MinWords {
		return false, name + ":min_words"
	}
	for i, re := range f.excludePatterns {
		if re.MatchString(a.Title) || re.MatchString(a.Summary) {
			return false, name + ":exclude_pattern[" + f.config.ExcludePatterns[i] + "]"
		}
	}
	if f.config.RequireSummary && strings.TrimSpace(a.Summary) == "" {
		return false, name + ":require_summary"
	}
	return true, ""
}

func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	return words
}

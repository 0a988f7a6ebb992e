package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scipunch/secfeed/fetcher"
	"github.com/scipunch/secfeed/filter"
	"github.com/scipunch/secfeed/model"
)

// Reporter receives every accepted article as soon as it is collected
type Reporter interface {
	OnArticle(source string, a model.Article)
}

// Job is the immutable per-run input of a worker
type Job struct {
	Strategy model.Strategy
	Limit    int
	Retry    RetryConfig
}

// Worker runs one source with one strategy. A Worker may run many sources
// concurrently; it holds no per-run state.
type Worker struct {
	getter     fetcher.Getter
	filters    *filter.Pipeline
	log        *zap.Logger
	strategies func(model.Strategy) (fetcher.FetchFunc, error)
}

type Option func(*Worker)

// WithFilters drops articles rejected by the descriptor's named filters
func WithFilters(p *filter.Pipeline) Option {
	return func(w *Worker) { w.filters = p }
}

func WithLogger(log *zap.Logger) Option {
	return func(w *Worker) { w.log = log }
}

// WithStrategies replaces the strategy lookup, mainly for tests
func WithStrategies(fn func(model.Strategy) (fetcher.FetchFunc, error)) Option {
	return func(w *Worker) { w.strategies = fn }
}

func New(g fetcher.Getter, opts ...Option) *Worker {
	w := &Worker{
		getter:     g,
		log:        zap.NewNop(),
		strategies: fetcher.For,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run collects up to job.Limit articles from desc. It never returns an
// error: failures, partial progress and cancellation are all described by
// the result.
func (w *Worker) Run(ctx context.Context, desc model.SourceDescriptor, job Job, rep Reporter) model.SourceRunResult {
	start := time.Now()
	log := w.log.With(zap.String("source", desc.Name), zap.String("strategy", string(job.Strategy)))
	res := model.SourceRunResult{Source: desc.Name, Articles: []model.Article{}}

	finish := func(err error) model.SourceRunResult {
		res.Elapsed = time.Since(start)
		if err == nil {
			res.Status = model.Success
			log.Info("source done", zap.Int("articles", len(res.Articles)), zap.Duration("elapsed", res.Elapsed))
			return res
		}

		kind := model.KindOf(err)
		if ctx.Err() != nil && kind != model.KindCancelled {
			kind = model.KindCancelled
		}
		res.Err = sourceError(desc.Name, kind, err)
		if kind == model.KindCancelled || len(res.Articles) > 0 {
			res.Status = model.PartialFailure
		} else {
			res.Status = model.Failure
		}
		log.Warn("source stopped",
			zap.String("status", string(res.Status)),
			zap.Int("articles", len(res.Articles)),
			zap.Error(res.Err))
		return res
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	fetch, err := w.strategies(job.Strategy)
	if err != nil {
		return finish(fmt.Errorf("source %s cannot run with %w", desc.Name, err))
	}

	g := &retryGetter{inner: w.getter, cfg: job.Retry, log: log, source: desc.Name}
	yield := func(a model.Article) bool {
		a.Source = desc.Name
		if w.filters != nil && len(desc.FilterNames) > 0 {
			if ok, reason := w.filters.ShouldInclude(a, desc.FilterNames); !ok {
				res.Filtered++
				log.Debug("article filtered out", zap.String("url", a.URL), zap.String("reason", reason))
				return true
			}
		}
		res.Articles = append(res.Articles, a)
		if rep != nil {
			rep.OnArticle(desc.Name, a)
		}
		return len(res.Articles) < job.Limit
	}

	stats, err := fetch(ctx, g, desc.EndpointFor(job.Strategy), job.Limit, yield)
	res.Skipped = stats.Skipped
	if stats.Skipped > 0 || stats.Degraded > 0 {
		log.Debug("source entries degraded", zap.Int("skipped", stats.Skipped), zap.Int("degraded", stats.Degraded))
	}
	return finish(err)
}

func sourceError(name string, kind model.ErrorKind, err error) *model.SourceError {
	var se *model.SourceError
	if errors.As(err, &se) && se.Kind == kind {
		return &model.SourceError{Kind: kind, Source: name, Err: se.Err}
	}
	return &model.SourceError{Kind: kind, Source: name, Err: err}
}

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scipunch/secfeed/config"
	"github.com/scipunch/secfeed/model"
	"github.com/scipunch/secfeed/progress"
	"github.com/scipunch/secfeed/worker"
)

var ErrInvalidConfig = errors.New("invalid run configuration")

// RunConfig is the immutable input of one run
type RunConfig struct {
	LimitPerSource    int
	Mode              model.Mode
	TimeoutPerRequest time.Duration
	RetryBaseDelay    time.Duration
	Sources           []model.SourceDescriptor
}

func (c RunConfig) Validate() error {
	if c.LimitPerSource < config.MinLimit || c.LimitPerSource > config.MaxLimit {
		return fmt.Errorf("%w: limit %d outside %d..%d", ErrInvalidConfig, c.LimitPerSource, config.MinLimit, config.MaxLimit)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.TimeoutPerRequest <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" || seen[s.Name] {
			return fmt.Errorf("%w: duplicate or empty source name %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// FromConfig builds a RunConfig from the file configuration and descriptors
func FromConfig(cfg config.Config, sources []model.SourceDescriptor) (RunConfig, error) {
	mode, err := cfg.RunMode()
	if err != nil {
		return RunConfig{}, err
	}
	return RunConfig{
		LimitPerSource:    cfg.LimitPerSource,
		Mode:              mode,
		TimeoutPerRequest: cfg.TimeoutPerRequest,
		RetryBaseDelay:    cfg.RetryBaseDelay,
		Sources:           sources,
	}, nil
}

func (c RunConfig) job() worker.Job {
	retry := worker.DefaultRetryConfig()
	retry.InitialBackoff = c.RetryBaseDelay
	if retry.MaxBackoff < c.RetryBaseDelay {
		retry.MaxBackoff = c.RetryBaseDelay
	}
	retry.Timeout = c.TimeoutPerRequest
	return worker.Job{Strategy: c.Mode, Limit: c.LimitPerSource, Retry: retry}
}

// Coordinator fans a run out to one worker goroutine per source and merges
// the results
type Coordinator struct {
	worker *worker.Worker
	log    *zap.Logger
	now    func() time.Time
}

func New(w *worker.Worker, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{worker: w, log: log, now: time.Now}
}

// message is the only thing workers send back. A worker's result is always
// its last message.
type message struct {
	source  string
	article model.Article
	result  *model.SourceRunResult
}

type chanReporter chan<- message

func (r chanReporter) OnArticle(source string, a model.Article) {
	r <- message{source: source, article: a}
}

// RunAll runs every source concurrently and returns the frozen run. The
// error is non-nil only for an invalid configuration; cancelling ctx stops
// the run early but still yields a complete, frozen result.
func (c *Coordinator) RunAll(ctx context.Context, cfg RunConfig, sink progress.Sink) (*model.AggregationRun, error) {
	return c.run(ctx, uuid.NewString(), cfg, sink)
}

func (c *Coordinator) run(ctx context.Context, id string, cfg RunConfig, sink progress.Sink) (*model.AggregationRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = progress.Nop{}
	}

	run := &model.AggregationRun{
		ID:             id,
		StartedAt:      c.now(),
		Mode:           cfg.Mode,
		LimitPerSource: cfg.LimitPerSource,
		Sources:        make([]string, len(cfg.Sources)),
		PerSource:      make(map[string]model.SourceRunResult, len(cfg.Sources)),
	}
	for i, s := range cfg.Sources {
		run.Sources[i] = s.Name
	}
	log := c.log.With(zap.String("run", run.ID))
	log.Info("run started",
		zap.String("mode", string(cfg.Mode)),
		zap.Int("limit", cfg.LimitPerSource),
		zap.Int("sources", len(cfg.Sources)))
	if st, ok := sink.(progress.Starter); ok {
		st.OnRunStart(progress.RunInfo{
			ID:        run.ID,
			StartedAt: run.StartedAt,
			Mode:      run.Mode,
			Limit:     run.LimitPerSource,
			Sources:   append([]string(nil), run.Sources...),
		})
	}

	job := cfg.job()
	events := make(chan message, len(cfg.Sources))
	var wg sync.WaitGroup
	var skipped []string
	for _, desc := range cfg.Sources {
		if ctx.Err() != nil {
			skipped = append(skipped, desc.Name)
			continue
		}
		wg.Add(1)
		go func(desc model.SourceDescriptor) {
			defer wg.Done()
			res := c.worker.Run(ctx, desc, job, chanReporter(events))
			events <- message{source: desc.Name, result: &res}
		}(desc)
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	for m := range events {
		if m.result == nil {
			sink.OnArticle(m.source, m.article)
			continue
		}
		run.PerSource[m.source] = *m.result
		sink.OnSourceDone(*m.result)
	}

	for _, name := range skipped {
		res := model.SourceRunResult{
			Source:   name,
			Articles: []model.Article{},
			Status:   model.PartialFailure,
			Err:      &model.SourceError{Kind: model.KindCancelled, Source: name, Err: errors.New("run cancelled before the source started")},
		}
		run.PerSource[name] = res
		sink.OnSourceDone(res)
	}

	lists := make([][]model.Article, 0, len(run.Sources))
	for _, res := range run.Results() {
		lists = append(lists, res.Articles)
	}
	run.Articles, run.DuplicateCount = model.Merge(lists...)
	run.Cancelled = len(skipped) > 0
	for _, res := range run.PerSource {
		if res.Cancelled() {
			run.Cancelled = true
		}
	}
	run.FinishedAt = c.now()

	counts := run.CountByStatus()
	log.Info("run finished",
		zap.Int("articles", len(run.Articles)),
		zap.Int("duplicates", run.DuplicateCount),
		zap.Int("succeeded", counts[model.Success]),
		zap.Int("partial", counts[model.PartialFailure]),
		zap.Int("failed", counts[model.Failure]),
		zap.Bool("cancelled", run.Cancelled),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	sink.OnRunDone(run)
	return run, nil
}

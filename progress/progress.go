package progress

import (
	"fmt"
	"time"

	"github.com/scipunch/secfeed/model"
)

// Sink observes a run. The coordinator calls it from a single goroutine and
// never waits on it for long: implementations must return quickly or queue.
type Sink interface {
	OnArticle(source string, a model.Article)
	OnSourceDone(res model.SourceRunResult)
	OnRunDone(run *model.AggregationRun)
}

// Starter is implemented by sinks that want to know when a run begins
type Starter interface {
	OnRunStart(info RunInfo)
}

// RunInfo describes a run that has just started
type RunInfo struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	Mode      model.Mode `json:"mode"`
	Limit     int        `json:"limit_per_source"`
	Sources   []string   `json:"sources"`
}

// Level tags a log line
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type LogLine struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Nop discards every event
type Nop struct{}

func (Nop) OnArticle(string, model.Article)    {}
func (Nop) OnSourceDone(model.SourceRunResult) {}
func (Nop) OnRunDone(*model.AggregationRun)    {}

type multi []Sink

// Multi fans every event out to all sinks in order
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) OnRunStart(info RunInfo) {
	for _, s := range m {
		if st, ok := s.(Starter); ok {
			st.OnRunStart(info)
		}
	}
}

func (m multi) OnArticle(source string, a model.Article) {
	for _, s := range m {
		s.OnArticle(source, a)
	}
}

func (m multi) OnSourceDone(res model.SourceRunResult) {
	for _, s := range m {
		s.OnSourceDone(res)
	}
}

func (m multi) OnRunDone(run *model.AggregationRun) {
	for _, s := range m {
		s.OnRunDone(run)
	}
}

// StartMessage is the first log line of a run
func StartMessage(info RunInfo) string {
	return fmt.Sprintf("Starting run %s: mode %s, limit %d articles, %d sources",
		info.ID, info.Mode, info.Limit, len(info.Sources))
}

// SourceMessage summarizes a finished source for humans
func SourceMessage(res model.SourceRunResult) (Level, string) {
	name := model.DisplayName(res.Source)
	switch {
	case res.Status == model.Success && len(res.Articles) > 0:
		return LevelSuccess, fmt.Sprintf("%s: %d articles", name, len(res.Articles))
	case res.Status == model.Success:
		return LevelWarning, fmt.Sprintf("%s: no articles", name)
	case res.Cancelled():
		return LevelWarning, fmt.Sprintf("%s: stopped after %d articles", name, len(res.Articles))
	case res.Status == model.PartialFailure:
		return LevelWarning, fmt.Sprintf("%s: %d articles before %s error: %v", name, len(res.Articles), errKind(res), errCause(res))
	default:
		return LevelError, fmt.Sprintf("%s: %s error: %v", name, errKind(res), errCause(res))
	}
}

// DoneMessage is the last log line of a run
func DoneMessage(run *model.AggregationRun) (Level, string) {
	if run.Cancelled {
		return LevelWarning, fmt.Sprintf("Run stopped by user: %d articles (%d duplicates dropped)", len(run.Articles), run.DuplicateCount)
	}
	return LevelSuccess, fmt.Sprintf("Run completed: %d articles (%d duplicates dropped) in %s",
		len(run.Articles), run.DuplicateCount, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
}

func errKind(res model.SourceRunResult) model.ErrorKind {
	if res.Err == nil {
		return model.KindTransport
	}
	return res.Err.Kind
}

func errCause(res model.SourceRunResult) error {
	if res.Err == nil {
		return nil
	}
	return res.Err.Err
}

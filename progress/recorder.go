package progress

import (
	"sync"
	"time"

	"github.com/scipunch/secfeed/model"
)

// MaxLogLines is how many log lines a Recorder keeps
const MaxLogLines = 500

// SourceState is the live status of one source
type SourceState string

const (
	StatePending SourceState = "pending"
	StateRunning SourceState = "running"
)

type SourceStatus struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	State       SourceState   `json:"state"` // pending, running or a model.Status
	Articles    int           `json:"articles"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Snapshot is a consistent copy of a Recorder's state
type Snapshot struct {
	RunID      string         `json:"run_id"`
	Mode       model.Mode     `json:"mode"`
	Limit      int            `json:"limit_per_source"`
	StartedAt  time.Time      `json:"started_at"`
	Running    bool           `json:"running"`
	Collected  int            `json:"collected"`
	Unique     int            `json:"unique"`
	Duplicates int            `json:"duplicates"`
	Sources    []SourceStatus `json:"sources"`
	Logs       []LogLine      `json:"logs"`
}

// Recorder keeps live counters, per-source status and recent log lines
// for readers on other goroutines
type Recorder struct {
	mu    sync.RWMutex
	snap  Snapshot
	index map[string]int
	logs  []LogLine
	now   func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{index: map[string]int{}, now: time.Now}
}

func (r *Recorder) OnRunStart(info RunInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap = Snapshot{
		RunID:     info.ID,
		Mode:      info.Mode,
		Limit:     info.Limit,
		StartedAt: info.StartedAt,
		Running:   true,
		Sources:   make([]SourceStatus, len(info.Sources)),
	}
	r.index = make(map[string]int, len(info.Sources))
	for i, name := range info.Sources {
		r.index[name] = i
		r.snap.Sources[i] = SourceStatus{Name: name, DisplayName: model.DisplayName(name), State: StatePending}
	}
	r.logs = nil
	r.appendLog(LevelInfo, StartMessage(info))
}

func (r *Recorder) OnArticle(source string, a model.Article) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap.Collected++
	if st := r.status(source); st != nil {
		st.Articles++
		st.State = StateRunning
	}
}

func (r *Recorder) OnSourceDone(res model.SourceRunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.status(res.Source); st != nil {
		st.State = SourceState(res.Status)
		st.Articles = len(res.Articles)
		st.Elapsed = res.Elapsed
		if res.Err != nil {
			st.Error = res.Err.Error()
		}
	}
	level, msg := SourceMessage(res)
	r.appendLog(level, msg)
}

func (r *Recorder) OnRunDone(run *model.AggregationRun) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap.Running = false
	r.snap.Collected = run.TotalCollected()
	r.snap.Unique = len(run.Articles)
	r.snap.Duplicates = run.DuplicateCount
	level, msg := DoneMessage(run)
	r.appendLog(level, msg)
}

// Log appends a line that did not come from the coordinator, such as an
// export result
func (r *Recorder) Log(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLog(level, msg)
}

// Snapshot returns a copy safe to use after the lock is released
func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.snap
	out.Sources = append([]SourceStatus(nil), r.snap.Sources...)
	out.Logs = append([]LogLine(nil), r.logs...)
	return out
}

func (r *Recorder) status(source string) *SourceStatus {
	i, ok := r.index[source]
	if !ok {
		return nil
	}
	return &r.snap.Sources[i]
}

func (r *Recorder) appendLog(level Level, msg string) {
	r.logs = append(r.logs, LogLine{Time: r.now(), Level: level, Message: msg})
	if over := len(r.logs) - MaxLogLines; over > 0 {
		r.logs = append(r.logs[:0], r.logs[over:]...)
	}
}

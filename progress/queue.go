package progress

import (
	"sync"

	"github.com/scipunch/secfeed/model"
)

type eventKind int

const (
	evStart eventKind = iota
	evArticle
	evSourceDone
	evRunDone
)

type event struct {
	kind    eventKind
	info    RunInfo
	source  string
	article model.Article
	result  model.SourceRunResult
	run     *model.AggregationRun
}

// Queue decouples a slow sink from the coordinator. Events are buffered
// without bound and delivered to the wrapped sink in order from one
// goroutine. Enqueueing never blocks and never drops.
type Queue struct {
	inner Sink

	mu      sync.Mutex
	pending []event
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func NewQueue(inner Sink) *Queue {
	q := &Queue{
		inner: inner,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *Queue) push(e event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) OnRunStart(info RunInfo) {
	q.push(event{kind: evStart, info: info})
}

func (q *Queue) OnArticle(source string, a model.Article) {
	q.push(event{kind: evArticle, source: source, article: a})
}

func (q *Queue) OnSourceDone(res model.SourceRunResult) {
	q.push(event{kind: evSourceDone, result: res})
}

func (q *Queue) OnRunDone(run *model.AggregationRun) {
	q.push(event{kind: evRunDone, run: run})
}

// Close stops accepting events and blocks until the queued ones are delivered
func (q *Queue) Close() {
	q.mu.Lock()
	already := q.closed
	q.closed = true
	q.mu.Unlock()

	if !already {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for range q.wake {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, e := range batch {
			q.deliver(e)
		}
		if closed {
			return
		}
	}
}

func (q *Queue) deliver(e event) {
	switch e.kind {
	case evStart:
		if st, ok := q.inner.(Starter); ok {
			st.OnRunStart(e.info)
		}
	case evArticle:
		q.inner.OnArticle(e.source, e.article)
	case evSourceDone:
		q.inner.OnSourceDone(e.result)
	case evRunDone:
		q.inner.OnRunDone(e.run)
	}
}

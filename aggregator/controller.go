package aggregator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scipunch/secfeed/model"
	"github.com/scipunch/secfeed/progress"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// Controller allows one run at a time to be started, stopped and inspected
// from other goroutines, such as HTTP handlers
type Controller struct {
	coord  *Coordinator
	parent context.Context
	log    *zap.Logger

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	done    chan struct{}
	latest  *model.AggregationRun
}

// NewController ties every run to parent, so cancelling it stops any run
func NewController(parent context.Context, coord *Coordinator, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	done := make(chan struct{})
	close(done)
	return &Controller{coord: coord, parent: parent, log: log, done: done}
}

// Start launches a run in the background and returns its ID. Events reach
// sink through a progress.Queue, so a slow sink never stalls the run.
func (c *Controller) Start(cfg RunConfig, sink progress.Sink) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if sink == nil {
		sink = progress.Nop{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != "" {
		return "", ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(c.parent)
	id := uuid.NewString()
	done := make(chan struct{})
	c.current, c.cancel, c.done = id, cancel, done

	queue := progress.NewQueue(sink)
	go func() {
		defer close(done)
		defer cancel()

		run, err := c.coord.run(ctx, id, cfg, queue)
		queue.Close()
		if err != nil {
			c.log.Error("run failed to start", zap.String("run", id), zap.Error(err))
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if run != nil {
			c.latest = run
		}
		c.current, c.cancel = "", nil
	}()
	return id, nil
}

// Stop cancels the current run. It reports whether a run was in progress.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.log.Info("stopping run", zap.String("run", c.current))
	c.cancel()
	return true
}

// Wait blocks until the current run, if any, is frozen and returns the
// latest finished run
func (c *Controller) Wait() *model.AggregationRun {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Latest returns the last frozen run
func (c *Controller) Latest() (*model.AggregationRun, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.latest != nil
}

// Running returns the ID of the run in progress
func (c *Controller) Running() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != ""
}

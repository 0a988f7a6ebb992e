package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/scipunch/secfeed/fetcher"
	"github.com/scipunch/secfeed/model"
	"github.com/scipunch/secfeed/progress"
	"github.com/scipunch/secfeed/worker"
)

func blockingGetter(release <-chan struct{}) fetcher.Getter {
	return fetcher.GetterFunc(func(ctx context.Context, url string) ([]byte, error) {
		select {
		case <-release:
			return []byte(rss(url + "/story")), nil
		case <-ctx.Done():
			return nil, model.NewError(model.KindCancelled, ctx.Err())
		}
	})
}

func TestController_StartWaitLatest(t *testing.T) {
	release := make(chan struct{})
	ctrl := NewController(context.Background(), New(worker.New(blockingGetter(release)), zaptest.NewLogger(t)), zaptest.NewLogger(t))

	if _, ok := ctrl.Latest(); ok {
		t.Fatal("Expected no run before the first start")
	}
	rec := progress.NewRecorder()
	cfg := runConfig(model.Feed, 3, model.SourceDescriptor{Name: "a", Endpoint: "https://a.example"})

	id, err := ctrl.Start(cfg, rec)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if running, ok := ctrl.Running(); !ok || running != id {
		t.Errorf("Expected run %s in progress, got %q", id, running)
	}
	if _, err := ctrl.Start(cfg, nil); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}

	close(release)
	run := ctrl.Wait()
	if run == nil || run.ID != id || len(run.Articles) != 1 {
		t.Fatalf("Unexpected run after wait: %+v", run)
	}
	if latest, ok := ctrl.Latest(); !ok || latest != run {
		t.Error("Expected Latest to return the finished run")
	}
	if _, ok := ctrl.Running(); ok {
		t.Error("Expected no run in progress")
	}
	snap := rec.Snapshot()
	if snap.RunID != id || snap.Running || snap.Unique != 1 {
		t.Errorf("Expected recorder to see the whole run, got %+v", snap)
	}
}

func TestController_Stop(t *testing.T) {
	ctrl := NewController(context.Background(), New(worker.New(blockingGetter(nil)), nil), nil)
	if ctrl.Stop() {
		t.Error("Expected Stop to report no run")
	}

	cfg := runConfig(model.Feed, 3,
		model.SourceDescriptor{Name: "a", Endpoint: "https://a.example"},
		model.SourceDescriptor{Name: "b", Endpoint: "https://b.example"},
	)
	cfg.TimeoutPerRequest = time.Minute
	if _, err := ctrl.Start(cfg, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !ctrl.Stop() {
		t.Error("Expected Stop to report a running run")
	}

	done := make(chan *model.AggregationRun)
	go func() { done <- ctrl.Wait() }()
	select {
	case run := <-done:
		if !run.Cancelled || !run.Finished() {
			t.Errorf("Expected a frozen cancelled run, got %+v", run)
		}
		for _, res := range run.Results() {
			if !res.Cancelled() {
				t.Errorf("Expected %s to be cancelled, got %s", res.Source, res.Status)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not end the run")
	}

	if _, err := ctrl.Start(cfg, nil); err != nil {
		t.Errorf("Expected a new run to start after stop, got %v", err)
	}
	ctrl.Stop()
	ctrl.Wait()
}

func TestController_InvalidConfig(t *testing.T) {
	ctrl := NewController(context.Background(), New(worker.New(okGetter()), nil), nil)
	if _, err := ctrl.Start(RunConfig{}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if _, ok := ctrl.Running(); ok {
		t.Error("Invalid config must not leave a run in progress")
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scipunch/secfeed/aggregator"
	"github.com/scipunch/secfeed/api"
	"github.com/scipunch/secfeed/config"
	"github.com/scipunch/secfeed/export"
	"github.com/scipunch/secfeed/fetcher"
	"github.com/scipunch/secfeed/filter"
	"github.com/scipunch/secfeed/logger"
	"github.com/scipunch/secfeed/progress"
	"github.com/scipunch/secfeed/source"
	"github.com/scipunch/secfeed/worker"
)

func main() {
	var (
		cfgPath  string
		mode     string
		limit    int
		timeout  time.Duration
		doExport bool
		outDir   string
		serve    bool
		logLevel string
		verbose  bool
	)
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.StringVar(&mode, "mode", "", "fetch mode: feed or deep (overrides config)")
	flag.IntVar(&limit, "limit", 0, "articles per source (overrides config)")
	flag.DurationVar(&timeout, "timeout", 0, "timeout per request (overrides config)")
	flag.BoolVar(&doExport, "export", false, "write the run to the export directory")
	flag.StringVar(&outDir, "out", "", "export directory (overrides config)")
	flag.BoolVar(&serve, "serve", false, "serve the HTTP API instead of running once")
	flag.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flag.BoolVar(&verbose, "v", false, "print every collected article")
	flag.Parse()

	// Read config; a missing default one is created once the logger is up
	conf, err := config.Read(cfgPath)
	writeDefault := errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath()
	if err != nil && !writeDefault {
		log.Fatalf("failed to read config with %s", err)
	}
	fileConf := conf

	if mode != "" {
		conf.Mode = mode
	}
	if limit != 0 {
		conf.LimitPerSource = limit
	}
	if timeout != 0 {
		conf.TimeoutPerRequest = timeout
	}
	if outDir != "" {
		conf.Export.Directory = outDir
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid config at %s: %s", cfgPath, err)
	}

	lg, err := logger.New(conf.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger with %s", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	if writeDefault {
		if err := config.Write(cfgPath, fileConf, lg); err != nil {
			lg.Fatal("failed to write default config", zap.Error(err))
		}
	}

	sources, err := source.FromConfig(conf)
	if err != nil {
		lg.Fatal("failed to load sources", zap.Error(err))
	}
	pipeline, err := filter.NewPipeline(conf.Filters, lg)
	if err != nil {
		lg.Fatal("failed to initialize filters", zap.Error(err))
	}
	if len(conf.Filters) > 0 {
		lg.Info("initialized filters", zap.Int("count", len(conf.Filters)))
	}
	runCfg, err := aggregator.FromConfig(conf, sources)
	if err != nil {
		lg.Fatal("invalid run configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(fetcher.NewClient(nil), worker.WithFilters(pipeline), worker.WithLogger(lg))
	coord := aggregator.New(w, lg)

	if serve {
		if err := runServer(ctx, conf, runCfg, coord, lg); err != nil {
			lg.Fatal("server failed", zap.Error(err))
		}
		return
	}

	run, err := coord.RunAll(ctx, runCfg, progress.NewConsole(os.Stdout, verbose))
	if err != nil {
		lg.Fatal("run failed", zap.Error(err))
	}
	if !doExport {
		return
	}
	paths, err := export.SaveRun(conf.Export.Directory, conf.Export.Prefix, conf.Export.Formats, run, time.Now())
	if errors.Is(err, export.ErrNothingToExport) {
		lg.Warn("nothing to export")
		return
	} else if err != nil {
		lg.Fatal("export failed", zap.Error(err))
	}
	for _, p := range paths {
		fmt.Println("Exported", p)
	}
}

func runServer(ctx context.Context, conf config.Config, runCfg aggregator.RunConfig, coord *aggregator.Coordinator, lg *zap.Logger) error {
	ctrl := aggregator.NewController(ctx, coord, lg)
	srv := api.NewServer(ctrl, progress.NewRecorder(), progress.NewConsole(os.Stdout, false), runCfg, conf.Export.Prefix, lg)

	httpSrv := &http.Server{
		Addr:              conf.Server.Addr,
		Handler:           api.NewEngine(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", conf.Server.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	ctrl.Stop()
	ctrl.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

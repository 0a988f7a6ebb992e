package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/scipunch/secfeed/aggregator"
	"github.com/scipunch/secfeed/export"
	"github.com/scipunch/secfeed/model"
	"github.com/scipunch/secfeed/progress"
)

type Server struct {
	ctrl     *aggregator.Controller
	recorder *progress.Recorder
	sink     progress.Sink
	base     aggregator.RunConfig
	prefix   string
	log      *zap.Logger
}

// NewServer exposes ctrl over HTTP. Runs started through the API use base
// with the request's overrides; their events go to the recorder and to
// extra, when given.
func NewServer(ctrl *aggregator.Controller, rec *progress.Recorder, extra progress.Sink, base aggregator.RunConfig, exportPrefix string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	sink := progress.Sink(rec)
	if extra != nil {
		sink = progress.Multi(rec, extra)
	}
	return &Server{ctrl: ctrl, recorder: rec, sink: sink, base: base, prefix: exportPrefix, log: log}
}

// NewEngine builds a gin engine with recovery, request logging and the routes
func NewEngine(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/runs", s.startRun)
		v1.POST("/runs/stop", s.stopRun)
		v1.GET("/runs/latest", s.latestRun)
		v1.GET("/progress", s.showProgress)
		v1.GET("/articles", s.listArticles)
		v1.GET("/articles.csv", s.articlesCSV)
	}
}

type startRequest struct {
	Mode  string `json:"mode"`
	Limit int    `json:"limit"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) startRun(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	cfg := s.base
	if req.Mode != "" {
		mode, err := model.ParseStrategy(req.Mode)
		if err != nil {
			fail(c, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		cfg.Mode = mode
	}
	if req.Limit != 0 {
		cfg.LimitPerSource = req.Limit
	}

	id, err := s.ctrl.Start(cfg, s.sink)
	switch {
	case errors.Is(err, aggregator.ErrRunInProgress):
		fail(c, http.StatusConflict, "run_in_progress", err.Error())
	case errors.Is(err, aggregator.ErrInvalidConfig):
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
	case err != nil:
		s.log.Error("failed to start run", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
	default:
		ok(c, http.StatusAccepted, gin.H{"run_id": id, "mode": cfg.Mode, "limit": cfg.LimitPerSource})
	}
}

func (s *Server) stopRun(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"stopped": s.ctrl.Stop()})
}

func (s *Server) latestRun(c *gin.Context) {
	run, found := s.ctrl.Latest()
	if !found {
		fail(c, http.StatusNotFound, "not_found", "no run has finished yet")
		return
	}
	ok(c, http.StatusOK, run)
}

func (s *Server) showProgress(c *gin.Context) {
	ok(c, http.StatusOK, s.recorder.Snapshot())
}

func (s *Server) listArticles(c *gin.Context) {
	run, found := s.ctrl.Latest()
	if !found {
		ok(c, http.StatusOK, []model.Article{})
		return
	}

	source := c.Query("source")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}

	items := make([]model.Article, 0, len(run.Articles))
	for _, a := range run.Articles {
		if source != "" && a.Source != source {
			continue
		}
		items = append(items, a)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	ok(c, http.StatusOK, items)
}

func (s *Server) articlesCSV(c *gin.Context) {
	run, found := s.ctrl.Latest()
	if !found || len(run.Articles) == 0 {
		fail(c, http.StatusNotFound, "not_found", export.ErrNothingToExport.Error())
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(s.prefix, "csv", run.FinishedAt)+`"`)
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, run.Articles); err != nil {
		s.log.Error("failed to stream CSV", zap.Error(err))
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

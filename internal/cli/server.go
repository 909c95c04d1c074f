package cli

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/groupmeal/internal/pipeline"
)

// JobRunner runs the auto-pick job. *pipeline.Runner implements it.
type JobRunner interface {
	Run(ctx context.Context, trig pipeline.Trigger) (*pipeline.Outcome, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultQueueSize is the number of triggers that may wait for the worker.
const DefaultQueueSize = 64

// Server accepts auto-pick triggers over HTTP and runs them one at a time
// on a single worker, in arrival order.
type Server struct {
	runner JobRunner
	pinger Pinger
	logger *slog.Logger

	jobs chan pipeline.Trigger
	once sync.Once
	done chan struct{}
}

// NewServer creates a Server and starts its worker. Jobs run with ctx;
// call Close to drain the queue and stop the worker.
func NewServer(ctx context.Context, runner JobRunner, pinger Pinger, logger *slog.Logger, queueSize int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	s := &Server{
		runner: runner,
		pinger: pinger,
		logger: logger,
		jobs:   make(chan pipeline.Trigger, queueSize),
		done:   make(chan struct{}),
	}
	go s.work(ctx)
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET("/healthz", s.healthz)
	r.POST("/jobs/auto-pick", s.triggerAutoPick)
	return r
}

// Close stops accepting jobs and waits until the queued ones have run.
func (s *Server) Close() {
	s.once.Do(func() { close(s.jobs) })
	<-s.done
}

type triggerRequest struct {
	OrderID string `json:"orderId"`
}

// triggerAutoPick queues a run and answers 202 without waiting for it.
// A missing order id is still accepted; the run skips it and logs why.
func (s *Server) triggerAutoPick(c *gin.Context) {
	var body triggerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	select {
	case s.jobs <- pipeline.Trigger{OrderID: body.OrderID}:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "orderId": body.OrderID})
	default:
		s.logger.Error("auto-pick queue full", "order_id", body.OrderID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "queue full"})
	}
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.pinger.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) work(ctx context.Context) {
	defer close(s.done)
	for trig := range s.jobs {
		out, err := s.runner.Run(ctx, trig)
		if err != nil {
			// The runner has logged the failure with its context.
			continue
		}
		s.logger.Debug("auto-pick job finished", "order_id", trig.OrderID, "status", out.Status)
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

// Package server exposes a trained model over HTTP: POST /v1/predict answers a question about a
// passage, and GET /healthz reports liveness.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	qnet "github.com/shaleenx/q-net"
	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/config"
	"github.com/shaleenx/q-net/squad"
)

// Version is reported by the health endpoint. It can be set at build time with ldflags.
var Version = "dev"

// Prediction is the answer to one question. Start and End are inclusive passage token indexes.
// Score is the decoder's score of the span: the product of the start and end probabilities of
// both directions of both pointer sub-networks.
type Prediction struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Predictor answers questions about passages.
type Predictor interface {
	Predict(ctx context.Context, passage, question string) (Prediction, error)
}

// ModelPredictor answers with a trained qnet model.
type ModelPredictor struct {
	Model      *qnet.Model
	Dictionary *squad.Dictionary
}

// Predict tokenizes the passage and question, runs both sub-networks and decodes the best span.
func (p *ModelPredictor) Predict(ctx context.Context, passage, question string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	q, err := squad.Prepare(p.Dictionary, passage, question)
	if err != nil {
		return Prediction{}, &RequestError{err.Error()}
	}

	out, err := p.Model.Forward(ag.NewGraph(false), q.Batch)
	if err != nil {
		return Prediction{}, errors.Wrapf(err, "Forward pass failed\n")
	}

	sent, span := out.Dists[qnet.SentenceNetwork], out.Dists[qnet.SpanNetwork]
	spans, scores, err := qnet.DecodeScores(sent, span, q.Batch.Passage.Lens, p.Model.Config().MaxAnswerSpan)
	if err != nil {
		return Prediction{}, errors.Wrapf(err, "Decoding failed\n")
	}

	s := spans[0]
	return Prediction{Start: s.Start, End: s.End, Text: q.Text(s), Score: scores[0]}, nil
}

// RequestError marks a prediction that failed because of its input.
type RequestError struct{ string }

func (err *RequestError) Error() string {
	return err.string
}

// PredictRequest is the body of POST /v1/predict.
type PredictRequest struct {
	Passage  string `json:"passage" binding:"required"`
	Question string `json:"question" binding:"required"`
}

// Server is the HTTP server.
type Server struct {
	config    config.ServerConfig
	predictor Predictor
	logger    *slog.Logger
	router    *gin.Engine
	server    *http.Server
}

// New creates a server. Call Setup before Start or Handler.
func New(cfg config.ServerConfig, predictor Predictor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{config: cfg, predictor: predictor, logger: logger}
}

// Setup sets up the routes and middleware.
func (s *Server) Setup() {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.logRequests())

	s.router.GET("/healthz", s.health)
	v1 := s.router.Group("/v1")
	{
		v1.POST("/predict", s.predict)
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler: s.router,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request", "method", c.Request.Method, "path", c.FullPath(),
			"status", c.Writer.Status(), "elapsed", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "qnet",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

func (s *Server) predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pred, err := s.predictor.Predict(c.Request.Context(), req.Passage, req.Question)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		s.logger.Error("prediction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}

	c.JSON(http.StatusOK, pred)
}

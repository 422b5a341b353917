package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"MarketGauge/internal/collector"
	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
	"MarketGauge/internal/service"
)

// Analyzer answers snapshot and daily-bar queries.
type Analyzer interface {
	GetDaily(ctx context.Context, day time.Time) (*model.DailyBar, error)
	GetSnapshot(ctx context.Context, day time.Time) (*model.Snapshot, error)
	Compute(ctx context.Context, day time.Time) (*model.Snapshot, error)
	HistoricalPoints(ctx context.Context) ([]model.HistoricalPoint, error)
}

// Server exposes the analysis over HTTP.
type Server struct {
	analyzer Analyzer
	metrics  http.Handler
	now      func() time.Time
	log      *logrus.Entry
}

// New creates a server. metricsHandler may be nil to disable /metrics.
func New(an Analyzer, metricsHandler http.Handler) *Server {
	return &Server{
		analyzer: an,
		metrics:  metricsHandler,
		now:      time.Now,
		log:      logger.WithComponent("server"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/indicators", s.handleIndicators)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/historical_time_points", s.handleHistoricalPoints)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return s.logged(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type snapshotResponse struct {
	Date string `json:"date"`
	*model.Snapshot
}

type dailyResponse struct {
	Date string `json:"date"`
	*model.DailyBar
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	day, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	snap, err := s.analyzer.GetSnapshot(r.Context(), day)
	if err != nil {
		s.writeError(w, day, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Date: snap.DateStr(), Snapshot: snap})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	day, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	bar, err := s.analyzer.GetDaily(r.Context(), day)
	if err != nil {
		s.writeError(w, day, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyResponse{Date: model.DateKey(bar.Time), DailyBar: bar})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	day, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	snap, err := s.analyzer.Compute(r.Context(), day)
	if err != nil {
		s.writeError(w, day, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Date: snap.DateStr(), Snapshot: snap})
}

type historicalResponse struct {
	TimePoints []model.HistoricalPoint `json:"timePoints"`
}

func (s *Server) handleHistoricalPoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.analyzer.HistoricalPoints(r.Context())
	if err != nil {
		s.writeError(w, model.Day(s.now()), err)
		return
	}
	writeJSON(w, http.StatusOK, historicalResponse{TimePoints: points})
}

// dateParam reads ?date=YYYY-MM-DD, defaulting to the current UTC date.
func (s *Server) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return model.Day(s.now()), true
	}
	day, err := model.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}

func (s *Server) writeError(w http.ResponseWriter, day time.Time, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrFutureDate):
		status = http.StatusBadRequest
	case errors.Is(err, collector.ErrNotFound), errors.Is(err, service.ErrNoPrice):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.WithField("date", model.DateKey(day)).WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

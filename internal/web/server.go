package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/vistoria/internal/metrics"
	"github.com/vbonduro/vistoria/internal/service"
)

const maxJSONBody = 1 << 20 // 1 MB

type Server struct {
	service *service.InspectionService
	metrics *metrics.Metrics
	mux     *http.ServeMux
	logger  *slog.Logger
}

func NewServer(svc *service.InspectionService, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		service: svc,
		metrics: m,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)

	s.mux.HandleFunc("GET /api/properties", s.handleListProperties)
	s.mux.HandleFunc("POST /api/properties", s.handleCreateProperty)
	s.mux.HandleFunc("GET /api/properties/{id}", s.handleGetProperty)
	s.mux.HandleFunc("PATCH /api/properties/{id}/status", s.handleUpdateStatus)
	s.mux.HandleFunc("DELETE /api/properties/{id}", s.handleDeleteProperty)
	s.mux.HandleFunc("GET /api/properties/{id}/environments", s.handleEnvironmentSummaries)
	s.mux.HandleFunc("GET /api/properties/{id}/stats", s.handlePropertyStats)
	s.mux.HandleFunc("GET /api/properties/{id}/report.pdf", s.handleReportPDF)
	s.mux.HandleFunc("GET /api/properties/{id}/report.xlsx", s.handleReportXLSX)

	s.mux.HandleFunc("GET /api/properties/{id}/environments/{env}/observations", s.handleListObservations)
	s.mux.HandleFunc("POST /api/properties/{id}/environments/{env}/observations", s.handleCreateObservation)
	s.mux.HandleFunc("PUT /api/properties/{id}/environments/{env}/observations/{key}", s.handleUpdateObservation)
	s.mux.HandleFunc("DELETE /api/properties/{id}/environments/{env}/observations/{key}", s.handleDeleteObservation)
	s.mux.HandleFunc("POST /api/properties/{id}/environments/{env}/observations/{key}/photos", s.handleUploadPhoto)
	s.mux.HandleFunc("GET /api/photos/{photoID}", s.handleGetPhoto)
	s.mux.HandleFunc("DELETE /api/photos/{photoID}", s.handleDeletePhoto)
	s.mux.HandleFunc("POST /api/assess", s.handleAssess)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handleSaveSettings)
	s.mux.HandleFunc("POST /api/settings/reset", s.handleResetSettings)
	s.mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	s.mux.HandleFunc("PUT /api/profile", s.handleSaveProfile)
	s.mux.HandleFunc("GET /api/backup", s.handleExportBackup)
	s.mux.HandleFunc("POST /api/backup", s.handleImportBackup)
	s.mux.HandleFunc("DELETE /api/data", s.handleResetAll)

	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// securityHeaders sets browser security headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.metrics.InstrumentHandler(requestLogger(s.logger, securityHeaders(s.mux))).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains open requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors onto HTTP statuses. Unexpected
// errors are logged and reported as msg.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrPropertyNotFound),
		errors.Is(err, service.ErrObservationNotFound),
		errors.Is(err, service.ErrPhotoNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPhotoLimit):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAssessmentUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(msg, "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON reads a JSON request body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeFile sends a generated file as a download.
func (s *Server) writeFile(w http.ResponseWriter, f *service.File) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", fmt.Sprint(len(f.Data)))
	if _, err := w.Write(f.Data); err != nil {
		s.logger.Error("write file failed", "filename", f.Name, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}

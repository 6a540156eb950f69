package http

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artemgubar/addrgroup/internal/metrics"
	"github.com/artemgubar/addrgroup/internal/process"
	"github.com/artemgubar/addrgroup/internal/ws"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"

	csvFileField   = "csv_file"
	textInputField = "text_input"

	multipartMemory = 1 << 20
)

//go:embed web/templates web/static
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/templates/index.html"))

// Server provides the HTTP endpoints of the grouping service
type Server struct {
	addr      string
	processor process.Pipeline
	maxUpload int64
	logger    *slog.Logger
	server    *http.Server
}

// NewServer creates a new HTTP server
func NewServer(addr string, processor process.Pipeline, maxUploadBytes int64, logger *slog.Logger) *Server {
	s := &Server{
		addr:      addr,
		processor: processor,
		maxUpload: maxUploadBytes,
		logger:    logger,
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler. Tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()

	mux.Handle("GET /{$}", s.loggingMiddleware("/", http.HandlerFunc(s.handleIndex)))
	mux.Handle("GET /static/", s.loggingMiddleware("/static", http.StripPrefix("/static/", http.FileServerFS(static))))
	mux.Handle("POST /process-data", s.loggingMiddleware("/process-data", http.HandlerFunc(s.handleProcessData)))
	mux.Handle("GET /ws", s.loggingMiddleware("/ws", ws.NewHandler(s.processor, s.logger)))
	mux.Handle("GET /healthz", s.loggingMiddleware("/healthz", http.HandlerFunc(s.handleHealthz)))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware tags the request with an id, logs it and records metrics
func (s *Server) loggingMiddleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(process.WithRequestID(r.Context(), requestID))

		// Create a response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(rw.statusCode)

		s.logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", statusCode,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)

		metrics.RecordHTTPRequest(route, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("http: response writer does not support hijacking")
	}
	conn, buf, err := hj.Hijack()
	if err == nil {
		rw.statusCode = http.StatusSwitchingProtocols
	}
	return conn, buf, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// handleIndex renders the upload page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, nil); err != nil {
		s.logger.Error("failed to render index", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleHealthz returns a simple health check response
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleProcessData groups the submitted records. An uploaded csv_file wins
// over text_input; a request with neither fails like any other bad input.
func (s *Server) handleProcessData(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", process.RequestID(r.Context()))
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		logger.Warn("failed to parse form", "error", err)
		writeError(w, http.StatusBadRequest, process.ErrorDetail)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	data, uploaded, err := readUpload(r)
	if err != nil {
		logger.Warn("failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, process.ErrorDetail)
		return
	}

	var output string
	switch {
	case uploaded:
		output, err = s.processor.ProcessCSV(r.Context(), data)
	default:
		values, present := r.PostForm[textInputField]
		if !present || len(values) == 0 {
			logger.Warn("no input provided")
			writeError(w, http.StatusBadRequest, process.ErrorDetail)
			return
		}
		output, err = s.processor.ProcessText(r.Context(), values[0])
	}

	if err != nil {
		logger.Warn("processing failed", "error", err, "kind", process.Kind(err))
		writeError(w, http.StatusBadRequest, process.ErrorDetail)
		return
	}

	if err := writeJSON(w, http.StatusOK, ProcessResponse{ProcessedData: output}); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// readUpload returns the csv_file contents, if one was uploaded.
func readUpload(r *http.Request) ([]byte, bool, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[csvFileField]) == 0 {
		return nil, false, nil
	}

	f, err := r.MultipartForm.File[csvFileField][0].Open()
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ProcessResponse is the body of a successful /process-data call
type ProcessResponse struct {
	ProcessedData string `json:"processed_data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, detail string) {
	writeJSON(w, statusCode, ErrorResponse{Detail: detail})
}

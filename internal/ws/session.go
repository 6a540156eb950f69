// Package ws serves grouping requests over a WebSocket connection.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/artemgubar/addrgroup/internal/metrics"
	"github.com/artemgubar/addrgroup/internal/process"
)

const (
	pingInterval    = 30 * time.Second
	readDeadline    = 60 * time.Second
	writeDeadline   = 10 * time.Second
	maxMessageBytes = 10 << 20
)

// Request is one client message. Exactly one field should be set; CSV wins
// if both are.
type Request struct {
	TextInput *string `json:"text_input"`
	CSV       *string `json:"csv"`
}

// Result is the reply to a successful request.
type Result struct {
	ProcessedData string `json:"processed_data"`
}

// Failure is the reply to a failed request.
type Failure struct {
	Detail string `json:"detail"`
}

// Handler upgrades HTTP requests and runs one session per connection.
type Handler struct {
	upgrader  websocket.Upgrader
	processor process.Pipeline
	logger    *slog.Logger
}

// NewHandler creates a WebSocket handler
func NewHandler(processor process.Pipeline, logger *slog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		processor: processor,
		logger:    logger,
	}
}

// ServeHTTP blocks until the session ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := h.logger.With("remote_addr", r.RemoteAddr)
	if id := process.RequestID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	s := &session{
		ctx:       ctx,
		cancel:    cancel,
		conn:      conn,
		processor: h.processor,
		logger:    logger,
	}
	s.run()
}

// session owns one connection. Only the read loop writes data frames; the
// ping loop uses WriteControl, which gorilla allows concurrently.
type session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	conn      *websocket.Conn
	processor process.Pipeline
	logger    *slog.Logger
}

func (s *session) run() {
	metrics.SetWSSessionOpen(true)
	s.logger.Info("websocket session opened")

	defer func() {
		s.cancel()
		s.conn.Close()
		metrics.SetWSSessionOpen(false)
		s.logger.Info("websocket session closed")
	}()

	s.conn.SetReadLimit(maxMessageBytes)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	go s.pingLoop()
	s.readLoop()
}

// pingLoop sends periodic pings to keep connection alive
func (s *session) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				s.logger.Debug("websocket ping failed", "error", err)
				s.conn.Close()
				return
			}
		}
	}
}

// readLoop handles requests until the client leaves or a frame fails
func (s *session) readLoop() {
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			s.logger.Error("websocket set read deadline failed", "error", err)
			return
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		if err := s.reply(s.handleMessage(message)); err != nil {
			s.logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

// handleMessage runs one request and returns the reply to send
func (s *session) handleMessage(data []byte) any {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Debug("websocket unmarshal failed", "error", err)
		metrics.RecordWSMessage("invalid")
		return Failure{Detail: process.ErrorDetail}
	}

	var (
		output string
		err    error
	)
	switch {
	case req.CSV != nil:
		output, err = s.processor.ProcessCSV(s.ctx, []byte(*req.CSV))
	case req.TextInput != nil:
		output, err = s.processor.ProcessText(s.ctx, *req.TextInput)
	default:
		metrics.RecordWSMessage("invalid")
		return Failure{Detail: process.ErrorDetail}
	}

	if err != nil {
		s.logger.Warn("websocket request failed", "error", err, "kind", process.Kind(err))
		metrics.RecordWSMessage("error")
		return Failure{Detail: process.ErrorDetail}
	}

	metrics.RecordWSMessage("ok")
	return Result{ProcessedData: output}
}

func (s *session) reply(v any) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	appconfig "github.com/saker-ai/realtime-assistant/internal/config"
	"github.com/saker-ai/realtime-assistant/internal/metrics"
	"github.com/saker-ai/realtime-assistant/pkg/realtime"
)

// Handler upgrades browser connections and runs one realtime session per
// browser.
type Handler struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
	config   appconfig.Config
	toolbox  realtime.Toolbox
	metrics  *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMetrics reports realtime traffic and browser sessions to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a Handler whose sessions call tools from toolbox.
func NewHandler(logger *zap.Logger, cfg appconfig.Config, toolbox realtime.Toolbox, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		logger:   logger,
		config:   cfg,
		toolbox:  toolbox,
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sessions returns the number of connected browsers.
func (h *Handler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Handle serves one browser websocket until it disconnects.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := h.newSession(conn)
	h.registerSession(sess)
	defer h.unregisterSession(sess.id)

	sess.logger.Info("ws session opened", zap.String("remote", r.RemoteAddr))
	if err := sess.bind(); err != nil {
		sess.logger.Error("ws session bind failed", zap.Error(err))
		return
	}
	sess.sendWelcome()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			sess.logger.Debug("ws connection closed", zap.Error(err))
			break
		}
		var msg incomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.sendError("invalid json")
			continue
		}
		if msg.Type != "heartbeat" && msg.Type != "mic-audio-data" {
			sess.logger.Debug("ws incoming message", zap.String("type", msg.Type))
		}
		sess.dispatchIncoming(ctx, msg)
	}

	sess.close()
	sess.logger.Info("ws session closed")
}

func (h *Handler) newSession(conn *websocket.Conn) *session {
	id := uuid.NewString()
	logger := h.logger.With(zap.String("session_id", id))

	modelRate := h.config.Realtime.InputSampleRate
	if modelRate <= 0 {
		modelRate = outputSampleRate
	}

	opts := []realtime.Option{realtime.WithLogger(logger.Named("realtime"))}
	if h.metrics != nil {
		opts = append(opts, realtime.WithObserver(h.metrics))
	}
	return &session{
		id:           id,
		conn:         conn,
		logger:       logger,
		client:       realtime.New(h.config.ClientConfig(), h.toolbox, opts...),
		welcome:      h.config.Persona.Welcome,
		modelRate:    modelRate,
		outputRate:   outputSampleRate,
		frameMillis:  volumeFrameMillis,
		pendingSlots: make(map[string]bool),
	}
}

func (h *Handler) registerSession(sess *session) {
	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SessionOpened()
	}
}

func (h *Handler) unregisterSession(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SessionClosed()
	}
}

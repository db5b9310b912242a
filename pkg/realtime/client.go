package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/saker-ai/realtime-assistant/internal/session/fsm"
	"github.com/saker-ai/realtime-assistant/pkg/audio"
	"github.com/saker-ai/realtime-assistant/pkg/eventbus"
	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

// Toolbox resolves function calls requested by the model.
type Toolbox interface {
	Definitions() []tools.Definition
	Invoke(ctx context.Context, name string, args json.RawMessage) (tools.Result, error)
}

var _ Toolbox = (*tools.Registry)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver installs an Observer for traffic and lifecycle metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithBus publishes semantic events on bus instead of a private one. The
// caller keeps ownership and closes it.
func WithBus(bus *eventbus.Bus) Option {
	return func(c *Client) {
		if bus != nil {
			c.bus = bus
			c.ownsBus = false
		}
	}
}

// WithIDGenerator overrides the command id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// Client is a realtime protocol client for one conversation session.
type Client struct {
	cfg     Config
	session SessionConfig
	toolbox Toolbox

	logger   *zap.Logger
	observer Observer
	bus      *eventbus.Bus
	ownsBus  bool
	newID    func() string
	dialer   *websocket.Dialer

	lifecycle *fsm.Machine

	mu        sync.Mutex
	conn      *websocket.Conn
	epoch     uint64
	cancel    context.CancelFunc
	done      chan struct{}
	track     string
	inputSlot string

	writeMu sync.Mutex

	response Accumulator
	input    Accumulator
}

// New creates an idle client. The session configuration is fixed here; its
// tool list defaults to toolbox.Definitions().
func New(cfg Config, toolbox Toolbox, opts ...Option) *Client {
	if toolbox == nil {
		toolbox = tools.NewRegistry()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if len(cfg.Response.Modalities) == 0 {
		cfg.Response = DefaultResponseConfig()
	}
	session := cfg.Session.clone()
	if len(session.Tools) == 0 {
		session.Tools = toolbox.Definitions()
	}

	c := &Client{
		cfg:       cfg,
		session:   session,
		toolbox:   toolbox,
		logger:    zap.NewNop(),
		observer:  nopObserver{},
		ownsBus:   true,
		newID:     newEventID,
		dialer:    &websocket.Dialer{Proxy: http.ProxyFromEnvironment},
		lifecycle: fsm.New(),
		track:     uuid.NewString(),
		inputSlot: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = eventbus.New(c.logger)
	}
	return c
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "evt_" + uuid.NewString()
	}
	return "evt_" + id.String()
}

// Session returns a copy of the session configuration.
func (c *Client) Session() SessionConfig {
	return c.session.clone()
}

// State returns the lifecycle state.
func (c *Client) State() fsm.State {
	return c.lifecycle.State()
}

// Connect dials the endpoint, starts the receive loop and pushes the session
// configuration. It logs a warning and returns nil when the client is already
// open, and fails with ErrConnecting while another Connect is dialing.
func (c *Client) Connect(ctx context.Context) error {
	target := redactURL(c.cfg.URL)
	if state, ok := c.lifecycle.BeginConnect(); !ok {
		if state == fsm.StateConnecting {
			return ErrConnecting
		}
		c.logger.Warn("realtime already connected",
			zap.String("url", target),
			zap.String("state", string(state)),
		)
		return nil
	}

	c.logger.Info("realtime connecting", zap.String("url", target))
	dialCtx, cancelDial := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancelDial()

	conn, resp, err := c.dialer.DialContext(dialCtx, c.cfg.URL, c.handshakeHeader())
	if err != nil {
		c.lifecycle.OnConnectFailed()
		c.observer.ConnectFailed()
		connErr := &ConnectionError{URL: target, Err: err}
		if resp != nil {
			connErr.StatusCode = resp.StatusCode
		}
		c.logger.Warn("realtime connect failed",
			zap.String("url", target),
			zap.Int("status", connErr.StatusCode),
			zap.Error(err),
		)
		return connErr
	}

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	done := make(chan struct{})

	// OnOpen and conn are published under mu, so an open state implies
	// IsConnected.
	c.mu.Lock()
	epoch, _ := c.lifecycle.OnOpen()
	c.conn = conn
	c.epoch = epoch
	c.cancel = cancelLoop
	c.done = done
	c.mu.Unlock()
	c.response.Reset()
	c.input.Reset()
	c.observer.Connected()

	go c.receive(loopCtx, conn, epoch, done)

	if err := c.UpdateSession(ctx); err != nil {
		c.Disconnect()
		c.observer.ConnectFailed()
		return &ConnectionError{URL: target, Err: err}
	}
	c.logger.Info("realtime connected",
		zap.String("url", target),
		zap.Uint64("epoch", epoch),
		zap.Int("tools", len(c.session.Tools)),
	)
	return nil
}

func (c *Client) handshakeHeader() http.Header {
	header := http.Header{}
	for k, vs := range c.cfg.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if header.Get("OpenAI-Beta") == "" {
		header.Set("OpenAI-Beta", "realtime=v1")
	}
	return header
}

// Disconnect closes the connection and waits for the receive loop to stop.
// It is a no-op while idle.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	epoch := c.epoch
	done := c.done
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if !c.detach(conn, epoch) {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
	if done != nil {
		<-done
	}
	c.logger.Info("realtime disconnected", zap.Uint64("epoch", epoch))
}

// detach clears conn if it is still the live connection and returns the
// client to idle. Exactly one caller wins per connection.
func (c *Client) detach(conn *websocket.Conn, epoch uint64) bool {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return false
	}
	c.conn = nil
	cancel := c.cancel
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.lifecycle.OnClose(epoch)
	c.observer.Disconnected()
	return true
}

// IsConnected reports whether a live connection is held.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close disconnects and releases the private event bus.
func (c *Client) Close() {
	c.Disconnect()
	if c.ownsBus {
		c.bus.Close()
	}
}

// On subscribes handler to a semantic event name.
func (c *Client) On(name string, handler eventbus.Handler) error {
	return c.bus.Subscribe(name, handler)
}

// Bus returns the bus semantic events are published on.
func (c *Client) Bus() *eventbus.Bus {
	return c.bus
}

// Track returns the current playback track id.
func (c *Client) Track() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.track
}

// ResponseTranscript returns the model-side message being accumulated.
func (c *Client) ResponseTranscript() Transcript {
	return c.response.Snapshot()
}

// InputTranscript returns the last user-side transcript.
func (c *Client) InputTranscript() Transcript {
	return c.input.Snapshot()
}

// Send writes one command frame. It fails with ErrNotConnected while idle.
func (c *Client) Send(ctx context.Context, cmd Command) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	id := c.newID()
	frame, err := encodeCommand(id, cmd)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	err = conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		return &sendError{Type: cmd.CommandType(), Err: err}
	}

	c.observer.FrameSent(cmd.CommandType())
	c.logger.Debug("realtime frame sent",
		zap.String("type", cmd.CommandType()),
		zap.String("event_id", id),
		zap.Int("bytes", len(frame)),
	)
	return nil
}

// SendRaw sends commandType with a flat field mapping.
func (c *Client) SendRaw(ctx context.Context, commandType string, fields map[string]any) error {
	return c.Send(ctx, RawCommand{Type: commandType, Fields: fields})
}

// SendUserMessage adds a user message, requests a response and publishes
// ConversationInterrupted. Empty content is a no-op.
func (c *Client) SendUserMessage(ctx context.Context, parts ...ContentPart) error {
	if len(parts) == 0 {
		return nil
	}
	if err := c.Send(ctx, ConversationItemCreate{Item: UserMessage(parts...)}); err != nil {
		return err
	}
	if err := c.CreateResponse(ctx); err != nil {
		return err
	}
	c.interrupt(InterruptUserMessage)
	return nil
}

// SendUserText is SendUserMessage with a single text part. Blank text is a no-op.
func (c *Client) SendUserText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.SendUserMessage(ctx, InputText(text))
}

// AppendInputAudio streams raw PCM16 bytes into the server input buffer.
// It never triggers generation. An empty buffer is a no-op.
func (c *Client) AppendInputAudio(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	return c.Send(ctx, InputAudioBufferAppend{Audio: audio.EncodeBase64(pcm)})
}

// AppendInputSamples is AppendInputAudio for a typed buffer, which must be PCM16.
func (c *Client) AppendInputSamples(ctx context.Context, buf audio.SampleBuffer) error {
	if buf.Len() == 0 {
		return nil
	}
	if err := buf.CheckPCM16(); err != nil {
		return err
	}
	return c.AppendInputAudio(ctx, buf.Data)
}

// CommitInputAudio closes the buffered utterance when server VAD is disabled.
func (c *Client) CommitInputAudio(ctx context.Context) error {
	return c.Send(ctx, InputAudioBufferCommit{})
}

// CreateResponse requests generation with the response configuration.
func (c *Client) CreateResponse(ctx context.Context) error {
	return c.Send(ctx, ResponseCreate{Response: c.cfg.Response})
}

// CancelResponse stops the in-progress response and interrupts playback.
func (c *Client) CancelResponse(ctx context.Context) error {
	if err := c.Send(ctx, ResponseCancel{}); err != nil {
		return err
	}
	c.interrupt(InterruptHost)
	return nil
}

// UpdateSession re-sends the session configuration. It is skipped while idle.
func (c *Client) UpdateSession(ctx context.Context) error {
	if !c.IsConnected() {
		return nil
	}
	return c.Send(ctx, SessionUpdate{Session: c.session})
}

func (c *Client) interrupt(reason string) {
	c.mu.Lock()
	c.track = uuid.NewString()
	track := c.track
	c.mu.Unlock()
	c.bus.Publish(ConversationInterrupted, Interrupted{Track: track, Reason: reason})
}

func (c *Client) rotateInputSlot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputSlot = uuid.NewString()
	return c.inputSlot
}

func (c *Client) currentInputSlot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputSlot
}

type sendError struct {
	Type string
	Err  error
}

func (e *sendError) Error() string {
	return "realtime: write " + e.Type + ": " + e.Err.Error()
}

func (e *sendError) Unwrap() error {
	return e.Err
}

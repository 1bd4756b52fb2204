package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// eventBufferSize bounds events queued for the loop.
const eventBufferSize = 256

// Connection manages one logical gateway session across many sockets.
type Connection struct {
	cfg      Config
	settings SettingsProvider
	sink     MessageSink
	dialer   Dialer
	logger   *slog.Logger
	jitter   func() time.Duration

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// Loop-owned state. Only handle and the functions it calls touch these.
	ctx     context.Context
	epoch   uint64
	sock    *socketHandle
	sess    session
	hb      heartbeat
	backoff backoff
	timers  timers
	stopped bool
	phase   Phase

	// retryResume selects RESUME over IDENTIFY when the retry timer fires.
	retryResume bool

	snap atomic.Pointer[Snapshot]
}

// socketHandle is the current socket. conn is nil while dialing.
type socketHandle struct {
	epoch  uint64
	conn   Socket
	cancel context.CancelFunc
}

// Option configures a Connection.
type Option func(*Connection)

// WithDialer sets the socket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Connection) {
		c.dialer = d
	}
}

// WithScheduler sets the timer scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Connection) {
		c.timers = newTimers(s)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJitter overrides the invalid-session retry delay source.
func WithJitter(f func() time.Duration) Option {
	return func(c *Connection) {
		c.jitter = f
	}
}

// New creates a Connection. It does nothing until Run is started and Connect
// is called.
func New(cfg Config, settings SettingsProvider, sink MessageSink, opts ...Option) *Connection {
	c := &Connection{
		cfg:      cfg,
		settings: settings,
		sink:     sink,
		dialer:   NewDialer(cfg.HandshakeTimeout, cfg.WriteTimeout),
		logger:   slog.Default(),
		events:   make(chan event, eventBufferSize),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		backoff:  newBackoff(cfg.ReconnectBase, cfg.ReconnectMax),
		timers:   newTimers(realScheduler{}),
		phase:    PhaseIdle,
	}
	c.jitter = c.retryDelay

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "gateway")
	c.publish()
	return c
}

// Run processes events until ctx is cancelled. The open socket and all timers
// are released on return.
func (c *Connection) Run(ctx context.Context) error {
	c.ctx = ctx
	defer c.shutdown()

	c.logger.Debug("gateway event loop started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Connect opens a socket if none exists and clears the stopped flag.
func (c *Connection) Connect() error {
	if !c.post(connectEvent{}) {
		return ErrClosed
	}
	return nil
}

// Disconnect closes the socket, cancels every timer, and forgets the session.
// It returns once no further timer or socket callback can have effect.
// Must not be called from a MessageSink callback.
func (c *Connection) Disconnect() error {
	done := make(chan struct{})
	if !c.post(disconnectEvent{done: done}) {
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Snapshot returns the state as of the last processed event.
func (c *Connection) Snapshot() Snapshot {
	return *c.snap.Load()
}

// Done is closed when Run has returned.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// post queues ev for the loop. It returns false once the loop has stopped.
func (c *Connection) post(ev event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		c.stopped = true
		c.teardown(CloseNormal, "shutdown")
		c.publish()
		close(c.done)
		c.logger.Debug("gateway event loop stopped")
	})
}

// handle applies one event. It is the only place loop-owned state changes.
func (c *Connection) handle(ev event) {
	switch ev := ev.(type) {
	case connectEvent:
		c.stopped = false
		c.open()

	case disconnectEvent:
		c.disconnect()
		close(ev.done)

	case dialedEvent:
		c.onDialed(ev)

	case frameEvent:
		if c.current(ev.epoch) {
			c.onFrame(ev.data)
		}

	case closedEvent:
		if c.current(ev.epoch) {
			c.logger.Info("gateway socket closed", "code", ev.code, "error", ev.err)
			if ev.code == CloseAbnormal {
				c.sink.NotifyLog("WebSocket connection error.", SeverityError)
			}
			c.onClosed(ev.code)
		}

	case timerEvent:
		if c.timers.claim(ev.kind, ev.id) {
			c.onTimer(ev.kind)
		}
	}

	c.publish()
}

// current reports whether epoch names the open socket.
func (c *Connection) current(epoch uint64) bool {
	return c.sock != nil && c.sock.epoch == epoch && c.sock.conn != nil
}

func (c *Connection) open() {
	if c.sock != nil {
		return
	}

	if c.settings.Token() == "" {
		c.logger.Warn("connect skipped", "error", ErrNoToken)
		c.sink.NotifyLog("No bot token configured. Fill in the Configuration panel and save.", SeverityError)
		return
	}

	c.timers.cancel(timerReconnect)

	c.epoch++
	epoch := c.epoch
	url := c.sess.endpoint(c.cfg.URL)

	dialCtx, cancel := context.WithCancel(c.ctx)
	c.sock = &socketHandle{epoch: epoch, cancel: cancel}

	c.setStatus(PhaseConnecting, "")
	c.sink.NotifyConnectButton("Disconnect", ButtonDanger, true)

	c.logger.Info("connecting to gateway", "url", url, "resume", c.sess.canResume())

	go func() {
		conn, err := c.dialer.Dial(dialCtx, url)
		c.post(dialedEvent{epoch: epoch, conn: conn, err: err})
	}()
}

func (c *Connection) onDialed(ev dialedEvent) {
	if c.sock == nil || c.sock.epoch != ev.epoch {
		if ev.conn != nil {
			ev.conn.Close(CloseNormal, "superseded")
		}
		return
	}

	if ev.err != nil {
		c.logger.Warn("gateway dial failed", "error", ev.err)
		c.sink.NotifyLog("WebSocket connection error.", SeverityError)
		c.onClosed(CloseAbnormal)
		return
	}

	c.sock.conn = ev.conn
	c.sink.NotifyConnectButton("Disconnect", ButtonDanger, false)
	c.logger.Debug("gateway socket open", "epoch", ev.epoch)

	go c.readLoop(ev.epoch, ev.conn)
}

func (c *Connection) readLoop(epoch uint64, conn Socket) {
	for {
		data, err := conn.Read()
		if err != nil {
			c.post(closedEvent{epoch: epoch, code: CloseCode(err), err: err})
			return
		}
		c.post(frameEvent{epoch: epoch, data: data})
	}
}

// forceClose tears down the open socket from our side and handles the
// closure immediately. The reader's eventual error is stale by then.
func (c *Connection) forceClose(reason string) {
	if c.sock != nil && c.sock.conn != nil {
		c.sock.conn.Close(CloseZombie, reason)
	}
	c.onClosed(CloseZombie)
}

// onClosed runs once per socket, whatever ended it.
func (c *Connection) onClosed(code int) {
	c.timers.cancel(timerHeartbeat)
	c.timers.cancel(timerRetry)
	c.hb.stop()

	if c.sock != nil && c.sock.cancel != nil {
		c.sock.cancel()
	}
	c.sock = nil

	if c.stopped {
		c.setStatus(PhaseIdle, "Disconnected")
		c.sink.NotifyConnectButton("Connect", ButtonPrimary, false)
		return
	}

	delay := c.backoff.next()
	c.logger.Info("scheduling reconnect", "code", code, "delay", delay)
	c.sink.NotifyLog(
		fmt.Sprintf("Disconnected (code %d). Reconnecting in %ds...", code, int(delay.Round(time.Second)/time.Second)),
		SeveritySystem,
	)
	c.setStatus(PhaseConnecting, "")
	c.arm(timerReconnect, delay)
}

func (c *Connection) disconnect() {
	c.stopped = true
	c.teardown(CloseNormal, "user disconnect")
	c.sess.reset()
	c.backoff.reset()
	c.retryResume = false

	c.setStatus(PhaseIdle, "Disconnected")
	c.sink.NotifyConnectButton("Connect", ButtonPrimary, false)
	c.sink.NotifyLog("Disconnected.", SeveritySystem)
	c.logger.Info("gateway disconnected by user")
}

// teardown silences every timer and socket callback and closes the socket.
func (c *Connection) teardown(code int, reason string) {
	c.timers.cancelAll()
	c.hb.stop()

	if c.sock != nil {
		if c.sock.cancel != nil {
			c.sock.cancel()
		}
		if c.sock.conn != nil {
			c.sock.conn.Close(code, reason)
		}
	}
	c.sock = nil
	c.epoch++
}

func (c *Connection) onTimer(kind timerKind) {
	switch kind {
	case timerHeartbeat:
		c.beat()

	case timerReconnect:
		if !c.stopped {
			c.open()
		}

	case timerRetry:
		if c.sock == nil || c.sock.conn == nil {
			return
		}
		if c.retryResume && c.sess.canResume() {
			c.resume()
		} else {
			c.identify()
		}
	}
}

// arm schedules a timer whose firing is routed back through the loop.
func (c *Connection) arm(kind timerKind, d time.Duration) {
	c.timers.arm(kind, d, func(id uint64) {
		c.post(timerEvent{kind: kind, id: id})
	})
}

func (c *Connection) startHeartbeat(interval time.Duration) {
	c.hb.start(interval)
	c.arm(timerHeartbeat, interval)
	c.logger.Debug("heartbeat started", "interval", interval)
}

func (c *Connection) beat() {
	if c.sock == nil || c.sock.conn == nil {
		return
	}
	if !c.hb.tick() {
		c.logger.Warn("heartbeat ack not received, closing zombie socket")
		c.sink.NotifyLog("Heartbeat ACK not received - reconnecting...", SeveritySystem)
		c.forceClose("zombie")
		return
	}
	c.send(OpHeartbeat, c.sess.sequence())
	c.arm(timerHeartbeat, c.hb.interval)
}

func (c *Connection) identify() {
	c.logger.Debug("sending identify", "intents", c.cfg.Intents)
	c.send(OpIdentify, IdentifyData{
		Token:      c.settings.Token(),
		Intents:    c.cfg.Intents,
		Properties: c.cfg.Properties,
	})
}

func (c *Connection) resume() {
	c.logger.Debug("sending resume", "session_id", c.sess.id, "seq", c.sess.seq)
	c.send(OpResume, ResumeData{
		Token:     c.settings.Token(),
		SessionID: c.sess.id,
		Seq:       c.sess.seq,
	})
}

// send writes a frame to the open socket. Failures surface later as a read
// error, so they are only logged here.
func (c *Connection) send(op Opcode, d any) {
	if c.sock == nil || c.sock.conn == nil {
		return
	}

	data, err := json.Marshal(outboundFrame{Op: op, D: d})
	if err != nil {
		c.logger.Error("encode frame failed", "op", op, "error", err)
		return
	}

	if err := c.sock.conn.Send(data); err != nil {
		c.logger.Debug("send failed", "op", op, "error", err)
	}
}

func (c *Connection) setStatus(phase Phase, text string) {
	c.phase = phase
	c.sink.NotifyStatus(phase, text)
}

func (c *Connection) retryDelay() time.Duration {
	span := c.cfg.RetryMax - c.cfg.RetryMin
	if span <= 0 {
		return c.cfg.RetryMin
	}
	return c.cfg.RetryMin + time.Duration(rand.Int63n(int64(span)))
}

func (c *Connection) publish() {
	c.snap.Store(&Snapshot{
		Phase:          c.phase,
		Open:           c.sock != nil,
		Stopped:        c.stopped,
		ReconnectArmed: c.timers.isArmed(timerReconnect),
		SessionID:      c.sess.id,
		Sequence:       c.sess.sequence(),
		UserID:         c.sess.userID,
		Username:       c.sess.username,
		ReconnectDelay: c.backoff.delay,
		HeartbeatEvery: c.hb.interval,
	})
}

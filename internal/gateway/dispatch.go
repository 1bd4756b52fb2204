package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Loop events. Producers outside the loop only construct these.
type event interface{}

type connectEvent struct{}

type disconnectEvent struct {
	done chan struct{}
}

type dialedEvent struct {
	epoch uint64
	conn  Socket
	err   error
}

type frameEvent struct {
	epoch uint64
	data  []byte
}

type closedEvent struct {
	epoch uint64
	code  int
	err   error
}

type timerEvent struct {
	kind timerKind
	id   uint64
}

// onFrame routes one server frame. Undecodable frames are dropped silently.
func (c *Connection) onFrame(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}

	c.sess.observe(f.S)

	switch f.Op {
	case OpHello:
		var hello HelloData
		if err := json.Unmarshal(f.D, &hello); err != nil || hello.HeartbeatInterval <= 0 {
			return
		}
		c.startHeartbeat(time.Duration(hello.HeartbeatInterval) * time.Millisecond)
		if c.sess.canResume() {
			c.resume()
		} else {
			c.identify()
		}

	case OpHeartbeatAck:
		c.hb.ack()

	case OpHeartbeat:
		c.send(OpHeartbeat, c.sess.sequence())

	case OpReconnect:
		c.logger.Info("server requested reconnect")
		c.sink.NotifyLog("Server requested reconnect...", SeveritySystem)
		c.forceClose("reconnect")

	case OpInvalidSession:
		var resumable bool
		if len(f.D) > 0 {
			json.Unmarshal(f.D, &resumable)
		}
		c.onInvalidSession(resumable)

	case OpDispatch:
		c.onDispatch(f.T, f.D)
	}
}

// onInvalidSession schedules a retry on the same socket after a random delay.
func (c *Connection) onInvalidSession(resumable bool) {
	delay := c.jitter()
	if !resumable {
		c.sess.invalidate()
	}
	c.retryResume = resumable

	c.logger.Info("invalid session", "resumable", resumable, "retry_in", delay)
	c.arm(timerRetry, delay)
}

func (c *Connection) onDispatch(name string, payload json.RawMessage) {
	switch name {
	case EventReady:
		var ready ReadyData
		if err := json.Unmarshal(payload, &ready); err != nil {
			return
		}
		c.sess.establish(ready)
		c.backoff.reset()

		c.logger.Info("gateway session ready",
			"user", ready.User.Username,
			"user_id", ready.User.ID,
			"session_id", ready.SessionID,
		)

		c.setStatus(PhaseConnected, "Connected as "+ready.User.Username)
		c.sink.NotifyConnectButton("Disconnect", ButtonDanger, false)
		c.sink.NotifyLog(
			fmt.Sprintf("Connected as %s (%s). Listening for DMs.", ready.User.Username, ready.User.ID),
			SeveritySystem,
		)
		c.sink.CollapseConfigurationPanel()

	case EventResumed:
		// The sink keeps whatever status it last showed.
		c.logger.Info("gateway session resumed", "session_id", c.sess.id, "seq", c.sess.seq)

	case EventMessageCreate:
		c.sink.DeliverMessageEvent(payload, c.sess.userID)
	}
}

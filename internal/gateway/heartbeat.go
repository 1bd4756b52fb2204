package gateway

import "time"

// heartbeat tracks liveness of one socket. It is idle until start and beating
// until stop; the owning connection arms the tick timer.
type heartbeat struct {
	interval   time.Duration
	ackPending bool
	beating    bool
}

// start begins beating at the server-dictated interval.
func (h *heartbeat) start(interval time.Duration) {
	h.interval = interval
	h.ackPending = false
	h.beating = true
}

// tick marks a beat as sent. It returns false when the previous beat was never
// acknowledged, meaning the socket is a zombie and must be torn down.
func (h *heartbeat) tick() bool {
	if !h.beating {
		return false
	}
	if h.ackPending {
		return false
	}
	h.ackPending = true
	return true
}

// ack records a HEARTBEAT_ACK.
func (h *heartbeat) ack() {
	h.ackPending = false
}

// stop returns the monitor to idle.
func (h *heartbeat) stop() {
	h.beating = false
	h.ackPending = false
}

package gateway

import "time"

// Timer is a cancelable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerKind identifies one of the connection's timer slots.
type timerKind int

const (
	timerHeartbeat timerKind = iota
	timerReconnect
	timerRetry
)

func (k timerKind) String() string {
	switch k {
	case timerHeartbeat:
		return "heartbeat"
	case timerReconnect:
		return "reconnect"
	case timerRetry:
		return "retry"
	default:
		return "unknown"
	}
}

type armedTimer struct {
	id    uint64
	timer Timer
}

// timers holds at most one armed timer per kind. A firing is honoured only if
// its timer is still registered, so a callback racing a cancel is dropped.
type timers struct {
	sched  Scheduler
	nextID uint64
	armed  map[timerKind]armedTimer
}

func newTimers(sched Scheduler) timers {
	return timers{
		sched: sched,
		armed: make(map[timerKind]armedTimer),
	}
}

// arm replaces any timer of the same kind. fire receives the timer id.
func (ts *timers) arm(kind timerKind, d time.Duration, fire func(id uint64)) {
	ts.cancel(kind)
	ts.nextID++
	id := ts.nextID
	t := ts.sched.AfterFunc(d, func() { fire(id) })
	ts.armed[kind] = armedTimer{id: id, timer: t}
}

// claim consumes a firing. It returns false for cancelled or superseded timers.
func (ts *timers) claim(kind timerKind, id uint64) bool {
	a, ok := ts.armed[kind]
	if !ok || a.id != id {
		return false
	}
	delete(ts.armed, kind)
	return true
}

func (ts *timers) isArmed(kind timerKind) bool {
	_, ok := ts.armed[kind]
	return ok
}

func (ts *timers) cancel(kind timerKind) {
	a, ok := ts.armed[kind]
	if !ok {
		return
	}
	a.timer.Stop()
	delete(ts.armed, kind)
}

func (ts *timers) cancelAll() {
	for kind := range ts.armed {
		ts.cancel(kind)
	}
}

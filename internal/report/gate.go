package report

// DefaultJitter is the axis tolerance, in int8 units, below which a change is
// treated as sensor noise.
const DefaultJitter = 2

// Policy holds the change-detection parameters.
type Policy struct {
	// HeartbeatTicks is the longest run of ticks without a send while a button
	// is held. Zero or less disables the heartbeat.
	HeartbeatTicks int
	// Jitter is the per-axis tolerance in wire units.
	Jitter int
}

// Changed reports whether current differs from last enough to be worth sending:
// any button or direction change, or an axis or trigger moving by more than
// jitter units.
func Changed(current, last Report, jitter int) bool {
	if current.Buttons != last.Buttons || current.Direction != last.Direction {
		return true
	}
	return beyond(int(current.X), int(last.X), jitter) ||
		beyond(int(current.Y), int(last.Y), jitter) ||
		beyond(int(current.RX), int(last.RX), jitter) ||
		beyond(int(current.RY), int(last.RY), jitter) ||
		beyond(int(current.LT), int(last.LT), jitter) ||
		beyond(int(current.RT), int(last.RT), jitter)
}

func beyond(a, b, tol int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d > tol
}

// ShouldSend applies p to one tick: send on a change against the last sent
// report, or when a button is held and the heartbeat interval has elapsed.
func (p Policy) ShouldSend(current, lastSent Report, ticksSinceLastSend int) bool {
	if Changed(current, lastSent, p.Jitter) {
		return true
	}
	return p.heartbeatDue(current, ticksSinceLastSend)
}

func (p Policy) heartbeatDue(current Report, ticks int) bool {
	return p.HeartbeatTicks > 0 && current.Held() && ticks >= p.HeartbeatTicks
}

// ShouldSend is Policy.ShouldSend with DefaultJitter.
func ShouldSend(current, lastSent Report, ticksSinceLastSend, heartbeatTicks int) bool {
	return Policy{HeartbeatTicks: heartbeatTicks, Jitter: DefaultJitter}.ShouldSend(current, lastSent, ticksSinceLastSend)
}

// Reason explains a gate decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInitial
	ReasonChanged
	ReasonHeartbeat
)

func (r Reason) String() string {
	switch r {
	case ReasonInitial:
		return "initial"
	case ReasonChanged:
		return "changed"
	case ReasonHeartbeat:
		return "heartbeat"
	default:
		return "none"
	}
}

// Decision is the outcome of Gate.Decide.
type Decision struct {
	Send   bool
	Reason Reason
}

// Gate tracks the last report that actually reached the transport and the
// number of ticks since. It is not safe for concurrent use; it belongs to the
// sampling loop.
type Gate struct {
	policy   Policy
	lastSent Report
	hasSent  bool
	ticks    int
}

// NewGate creates a gate that will force its first decision.
func NewGate(p Policy) *Gate {
	return &Gate{policy: p}
}

// Decide counts one tick and reports whether current must be sent.
// It does not record anything as sent; call Commit once the frame is handed to
// the transport.
func (g *Gate) Decide(current Report) Decision {
	g.ticks++
	switch {
	case !g.hasSent:
		return Decision{Send: true, Reason: ReasonInitial}
	case Changed(current, g.lastSent, g.policy.Jitter):
		return Decision{Send: true, Reason: ReasonChanged}
	case g.policy.heartbeatDue(current, g.ticks):
		return Decision{Send: true, Reason: ReasonHeartbeat}
	default:
		return Decision{}
	}
}

// Commit records r as sent and restarts the tick count.
func (g *Gate) Commit(r Report) {
	g.lastSent = r
	g.hasSent = true
	g.ticks = 0
}

// Invalidate forgets the last sent report so the next decision is forced.
func (g *Gate) Invalidate() {
	g.hasSent = false
}

// LastSent returns the last committed report, if any.
func (g *Gate) LastSent() (Report, bool) {
	return g.lastSent, g.hasSent
}

// TicksSinceSend returns the ticks counted since the last commit.
func (g *Gate) TicksSinceSend() int {
	return g.ticks
}

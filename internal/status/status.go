// Package status provides a thread-safe status tracker for the cdc-sniffer daemon.
// It is read by the HTTP handlers and the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// Config contains daemon configuration for display.
type Config struct {
	Source      string
	SampleRate  float64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// LastFrame is the most recently resolved frame and where it sat in the capture.
type LastFrame struct {
	Start  int64
	End    int64
	Result cdc.FrameResult
	SeenAt time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Session       string
	Stats         cdc.Stats
	State         cdc.State
	LastFrame     *LastFrame
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given session id, start time and config.
func NewTracker(session string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Session:   session,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the decoder counters and state.
// Called from runLoop after every batch of annotations.
func (t *Tracker) Update(stats cdc.Stats, state cdc.State) {
	t.mu.Lock()
	t.snap.Stats = stats
	t.snap.State = state
	t.mu.Unlock()
}

// RecordFrame remembers the most recent frame.
func (t *Tracker) RecordFrame(f LastFrame) {
	t.mu.Lock()
	t.snap.LastFrame = &f
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastFrame != nil {
		lf := *s.LastFrame
		s.LastFrame = &lf
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

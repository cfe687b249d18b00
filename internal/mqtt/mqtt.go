// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// Topic is the MQTT topic for decoded frames.
const Topic = "car/cdc/sniffer/frames"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "car/cdc/sniffer/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a decoded frame to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event FrameEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// FrameEvent is one resolved 32-bit window.
type FrameEvent struct {
	Timestamp time.Time
	Session   string
	Start     int64 // first sample of bit 0
	End       int64 // last sample of bit 31
	Result    cdc.FrameResult
}

// NewFrameEvent builds a FrameEvent from a command-row annotation.
// It reports false for annotations that carry no frame.
func NewFrameEvent(a cdc.Annotation, session string, now time.Time) (FrameEvent, bool) {
	if a.Row != cdc.RowCommands || a.Frame == nil {
		return FrameEvent{}, false
	}
	return FrameEvent{
		Timestamp: now,
		Session:   session,
		Start:     a.Start,
		End:       a.End,
		Result:    *a.Frame,
	}, true
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "END"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Frame FramePayload `json:"frame"`
}

// FramePayload contains the frame details.
type FramePayload struct {
	Timestamp   string `json:"timestamp"`
	Session     string `json:"session,omitempty"`
	StartSample int64  `json:"start_sample"`
	EndSample   int64  `json:"end_sample"`
	Bytes       string `json:"bytes"`
	Code        string `json:"code"`
	Verdict     string `json:"verdict"`
	Description string `json:"description"`
}

// FormatPayload creates the JSON payload for a frame.
func FormatPayload(event FrameEvent) ([]byte, error) {
	r := event.Result
	hex := make([]string, len(r.Bytes))
	for i, b := range r.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	payload := Payload{
		Frame: FramePayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Session:     event.Session,
			StartSample: event.Start,
			EndSample:   event.End,
			Bytes:       strings.Join(hex, " "),
			Code:        fmt.Sprintf("0x%02X", r.Code),
			Verdict:     string(r.Verdict),
			Description: r.Description,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

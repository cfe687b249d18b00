package status

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Session       string     `json:"session"`
	State         string     `json:"state"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"decoder_counts"`
	LastFrame     *FrameJSON `json:"last_frame,omitempty"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of decoder counters.
type CountsJSON struct {
	Edges     int `json:"edges"`
	Starts    int `json:"starts"`
	Bits      int `json:"bits"`
	Unmatched int `json:"unmatched"`
	Valid     int `json:"valid"`
	Unknown   int `json:"unknown"`
	Invalid   int `json:"invalid"`
}

// FrameJSON is the JSON representation of the last frame.
type FrameJSON struct {
	StartSample int64  `json:"start_sample"`
	EndSample   int64  `json:"end_sample"`
	Bytes       string `json:"bytes"`
	Verdict     string `json:"verdict"`
	Description string `json:"description"`
	SeenAt      string `json:"seen_at"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source      string  `json:"source"`
	SampleRate  float64 `json:"sample_rate"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
}

// HexBytes renders frame bytes as "CA 34 12 ED".
func HexBytes(b []uint8) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}

func buildInner(snap Snapshot) StatusInner {
	state := snap.State.String()
	inner := StatusInner{
		Session:       snap.Session,
		State:         state,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Edges:     snap.Stats.Edges,
			Starts:    snap.Stats.Starts,
			Bits:      snap.Stats.Bits,
			Unmatched: snap.Stats.Unmatched,
			Valid:     snap.Stats.Valid,
			Unknown:   snap.Stats.Unknown,
			Invalid:   snap.Stats.Invalid,
		},
		Config: ConfigJSON{
			Source:      snap.Config.Source,
			SampleRate:  snap.Config.SampleRate,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if lf := snap.LastFrame; lf != nil {
		inner.LastFrame = &FrameJSON{
			StartSample: lf.Start,
			EndSample:   lf.End,
			Bytes:       HexBytes(lf.Result.Bytes[:]),
			Verdict:     string(lf.Result.Verdict),
			Description: lf.Result.Description,
			SeenAt:      lf.SeenAt.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

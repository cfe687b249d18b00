package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

func validFrame() FrameEvent {
	return FrameEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Session:   "5f0c7a52-4e3b-4c51-9c7e-0d1d3c2a9b10",
		Start:     14000,
		End:       110000,
		Result: cdc.FrameResult{
			Bytes:       [cdc.FrameBytes]uint8{0xCA, 0x34, 0x0C, 0xF3},
			Verdict:     cdc.VerdictValid,
			Code:        0x0C,
			Description: "CD 1",
		},
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(validFrame())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Frame.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Frame.Timestamp)
	}
	if parsed.Frame.Bytes != "CA 34 0C F3" {
		t.Errorf("unexpected bytes: %s", parsed.Frame.Bytes)
	}
	if parsed.Frame.Code != "0x0C" {
		t.Errorf("unexpected code: %s", parsed.Frame.Code)
	}
	if parsed.Frame.Verdict != "VALID" {
		t.Errorf("unexpected verdict: %s", parsed.Frame.Verdict)
	}
	if parsed.Frame.Description != "CD 1" {
		t.Errorf("unexpected description: %s", parsed.Frame.Description)
	}
	if parsed.Frame.StartSample != 14000 || parsed.Frame.EndSample != 110000 {
		t.Errorf("unexpected span: %d-%d", parsed.Frame.StartSample, parsed.Frame.EndSample)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := validFrame()
	event.Session = ""
	event.Result = cdc.FrameResult{
		Bytes:       [cdc.FrameBytes]uint8{0xCA, 0x34, 0x12, 0x00},
		Verdict:     cdc.VerdictInvalid,
		Code:        0x12,
		Description: "invalid",
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"frame":{"timestamp":"2026-02-02T22:18:12Z","start_sample":14000,"end_sample":110000,"bytes":"CA 34 12 00","code":"0x12","verdict":"INVALID","description":"invalid"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadAllVerdicts(t *testing.T) {
	tests := []struct {
		verdict cdc.Verdict
		desc    string
	}{
		{cdc.VerdictValid, "Next track"},
		{cdc.VerdictUnknown, "unknown"},
		{cdc.VerdictInvalid, "invalid"},
	}

	for _, tt := range tests {
		t.Run(string(tt.verdict), func(t *testing.T) {
			event := validFrame()
			event.Result.Verdict = tt.verdict
			event.Result.Description = tt.desc

			payload, err := FormatPayload(event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Frame.Verdict != string(tt.verdict) {
				t.Errorf("verdict: got %s, want %s", parsed.Frame.Verdict, tt.verdict)
			}
			if parsed.Frame.Description != tt.desc {
				t.Errorf("description: got %s, want %s", parsed.Frame.Description, tt.desc)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	event := validFrame()
	event.Timestamp = time.Date(2026, 2, 2, 23, 18, 12, 0, loc)

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Frame.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Frame.Timestamp)
	}
}

func TestNewFrameEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res := cdc.FrameResult{Verdict: cdc.VerdictUnknown, Code: 0x55, Description: "unknown"}

	ev, ok := NewFrameEvent(cdc.Annotation{Start: 1, End: 2, Row: cdc.RowCommands, Label: "unknown", Frame: &res}, "s1", now)
	if !ok {
		t.Fatal("expected command annotation to produce a frame event")
	}
	if ev.Start != 1 || ev.End != 2 || ev.Session != "s1" || !ev.Timestamp.Equal(now) {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Result.Code != 0x55 {
		t.Errorf("code: got %#x, want 0x55", ev.Result.Code)
	}

	if _, ok := NewFrameEvent(cdc.Annotation{Row: cdc.RowBits, Label: "1"}, "s1", now); ok {
		t.Error("bit annotation should not produce a frame event")
	}
	if _, ok := NewFrameEvent(cdc.Annotation{Row: cdc.RowCommands, Label: "x"}, "s1", now); ok {
		t.Error("command annotation without frame should not produce a frame event")
	}
}

func TestTopic(t *testing.T) {
	expected := "car/cdc/sniffer/frames"
	if Topic != expected {
		t.Errorf("unexpected topic: got %s, want %s", Topic, expected)
	}
}

func TestTopicSystem(t *testing.T) {
	expected := "car/cdc/sniffer/system"
	if TopicSystem != expected {
		t.Errorf("unexpected system topic: got %s, want %s", TopicSystem, expected)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(validFrame()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
	if f.Events[0].Result.Description != "CD 1" {
		t.Errorf("unexpected description: %s", f.Events[0].Result.Description)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")

	if err := f.Publish(validFrame()); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Errorf("expected no recorded events, got %d", len(f.Events))
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "STARTUP",
		Retained:  true,
	}

	if err := f.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.SystemEvents) != 1 || len(f.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system event and payload, got %d/%d", len(f.SystemEvents), len(f.SystemPayloads))
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected retained flag to be recorded")
	}

	f.PublishSystemError = errors.New("broker down")
	if err := f.PublishSystem(event); err == nil {
		t.Error("expected error")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(validFrame())
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.Events) != 0 || len(f.Payloads) != 0 || len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("expected all recordings cleared")
	}
	if f.Closed || f.Connected {
		t.Error("expected flags cleared")
	}

	// Reusable after reset
	if err := f.Publish(validFrame()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Events) != 1 {
		t.Errorf("expected 1 event after reset, got %d", len(f.Events))
	}
}

func TestFakePublisherNames(t *testing.T) {
	f := NewFakePublisher()
	if got := f.Descriptions(); len(got) != 0 {
		t.Errorf("expected no descriptions, got %v", got)
	}

	f.Publish(validFrame())
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.PublishSystem(SystemEvent{Event: "END"})

	if got := f.Descriptions(); len(got) != 1 || got[0] != "CD 1" {
		t.Errorf("Descriptions: got %v", got)
	}
	if got := f.SystemEventNames(); len(got) != 2 || got[0] != "STARTUP" || got[1] != "END" {
		t.Errorf("SystemEventNames: got %v", got)
	}
}

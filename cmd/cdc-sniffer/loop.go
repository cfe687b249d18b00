package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
	"github.com/sweeney/cdc-sniffer/internal/metrics"
	"github.com/sweeney/cdc-sniffer/internal/mqtt"
	"github.com/sweeney/cdc-sniffer/internal/session"
	"github.com/sweeney/cdc-sniffer/internal/status"
)

// loop fans decoder output out to MQTT, the status tracker, metrics, the
// websocket stream and stdout. Any of tracker, metrics, printer, broadcast
// and mqttStatus may be nil.
type loop struct {
	session    string
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	printer    *printer
	broadcast  func([]byte)
	logger     *log.Logger
	now        func() time.Time
}

// run returns when the session ends or a signal arrives. A finished replay
// publishes END; a signal publishes SHUTDOWN.
func (l *loop) run(updates <-chan session.Update, done <-chan error, hbTick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.logger.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			l.publishSystem("SHUTDOWN", signalName, true)
			return nil

		case u, ok := <-updates:
			if !ok {
				err := <-done
				if err != nil {
					l.publishSystem("SHUTDOWN", "ERROR", true)
					return fmt.Errorf("session: %w", err)
				}
				l.logger.Info("source exhausted")
				l.publishSystem("END", "EOF", true)
				return nil
			}
			l.handle(u)

		case <-hbTick:
			l.refreshMQTT()
			if l.tracker != nil {
				snap := l.tracker.Snapshot()
				l.logger.Info("heartbeat",
					"uptime", snap.Uptime().Truncate(time.Second),
					"valid", snap.Stats.Valid,
					"unknown", snap.Stats.Unknown,
					"invalid", snap.Stats.Invalid,
					"unmatched", snap.Stats.Unmatched)
			}
			l.publishSystem("HEARTBEAT", "", false)
		}
	}
}

func (l *loop) handle(u session.Update) {
	if l.tracker != nil {
		l.tracker.Update(u.Stats, u.State)
	}
	if l.metrics != nil {
		l.metrics.Observe(u.Annotations)
		if u.Unmatched {
			l.metrics.Unmatched()
		}
	}
	if l.printer != nil {
		if err := l.printer.Print(u.Annotations); err != nil {
			l.logger.Warn("print error", "err", err)
		}
	}

	for _, a := range u.Annotations {
		ev, ok := mqtt.NewFrameEvent(a, l.session, l.now())
		if !ok {
			continue
		}
		l.logFrame(ev)

		if l.tracker != nil {
			l.tracker.RecordFrame(status.LastFrame{Start: ev.Start, End: ev.End, Result: ev.Result, SeenAt: ev.Timestamp})
		}
		if err := l.publisher.Publish(ev); err != nil {
			// Don't crash on publish failure
			l.logger.Warn("publish error", "err", err)
		}
		if l.broadcast != nil {
			if payload, err := mqtt.FormatPayload(ev); err == nil {
				l.broadcast(payload)
			}
		}
	}
}

func (l *loop) logFrame(ev mqtt.FrameEvent) {
	r := ev.Result
	kv := []interface{}{
		"bytes", status.HexBytes(r.Bytes[:]),
		"code", fmt.Sprintf("0x%02X", r.Code),
		"start", ev.Start,
		"end", ev.End,
	}
	switch r.Verdict {
	case cdc.VerdictValid:
		l.logger.Info(r.Description, kv...)
	case cdc.VerdictUnknown:
		l.logger.Info("unknown command", kv...)
	default:
		l.logger.Warn("invalid frame", kv...)
	}
}

func (l *loop) refreshMQTT() {
	if l.mqttStatus == nil {
		return
	}
	up := l.mqttStatus.IsConnected()
	if l.tracker != nil {
		l.tracker.SetMQTTConnected(up)
	}
	if l.metrics != nil {
		l.metrics.SetMQTTConnected(up)
	}
}

// publishSystem sends a lifecycle event carrying a full status snapshot when
// a tracker is available.
func (l *loop) publishSystem(event, reason string, retained bool) {
	l.refreshMQTT()
	ev := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if l.tracker != nil {
		ev.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), event, reason)
	}
	if err := l.publisher.PublishSystem(ev); err != nil {
		l.logger.Warn("failed to publish system event", "event", event, "err", err)
	} else {
		l.logger.Debug("published system event", "event", event)
	}
}

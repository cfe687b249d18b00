package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/cdc-sniffer/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"hex": func(b [4]uint8) string {
		return status.HexBytes(b[:])
	},
	"verdictClass": func(v string) string {
		switch v {
		case "VALID":
			return "valid"
		case "UNKNOWN":
			return "unknown"
		}
		return "invalid"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>CDC Sniffer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.valid { color: green; font-weight: bold; }
.unknown { color: orange; }
.invalid { color: red; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>CDC Sniffer<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Last Frame</h2>
<table>
{{with .LastFrame}}<tr><th>Command</th><td id="last-desc" class="{{verdictClass (printf "%s" .Result.Verdict)}}">{{.Result.Description}}</td></tr>
<tr><th>Bytes</th><td id="last-bytes">{{hex .Result.Bytes}}</td></tr>
<tr><th>Samples</th><td id="last-span">{{.Start}}-{{.End}}</td></tr>
{{else}}<tr><th>Command</th><td id="last-desc" class="unknown">none yet</td></tr>
<tr><th>Bytes</th><td id="last-bytes"></td></tr>
<tr><th>Samples</th><td id="last-span"></td></tr>
{{end}}</table>

<h2>Decoder</h2>
<table>
<tr><th>State</th><td>{{.State}}</td></tr>
<tr><th>Valid frames</th><td>{{.Stats.Valid}}</td></tr>
<tr><th>Unknown frames</th><td>{{.Stats.Unknown}}</td></tr>
<tr><th>Invalid frames</th><td>{{.Stats.Invalid}}</td></tr>
<tr><th>Start markers</th><td>{{.Stats.Starts}}</td></tr>
<tr><th>Bits</th><td>{{.Stats.Bits}}</td></tr>
<tr><th>Unmatched pulses</th><td>{{.Stats.Unmatched}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Session</th><td>{{.Session}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Sample rate</th><td>{{printf "%.0f" .Config.SampleRate}} Hz</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var descEl = document.getElementById("last-desc");
  var bytesEl = document.getElementById("last-bytes");
  var spanEl = document.getElementById("last-span");
  var classes = { VALID: "valid", UNKNOWN: "unknown" };

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.frame) {
          descEl.textContent = msg.frame.description;
          descEl.className = classes[msg.frame.verdict] || "invalid";
          bytesEl.textContent = msg.frame.bytes;
          spanEl.textContent = msg.frame.start_sample + "-" + msg.frame.end_sample;
        }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}

package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dryer-vent-sensor/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"utc": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Dryer Vent Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.alarm { color: red; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Dryer Vent Sensor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Alarms</h2>
<table>
<tr><th>Overheat</th><td id="ch-overheat" class="{{if .Readings.Overheat}}alarm{{else}}off{{end}}">{{onOff .Readings.Overheat}}</td></tr>
<tr><th>Clog</th><td id="ch-clog" class="{{if .Readings.Clog}}alarm{{else}}off{{end}}">{{onOff .Readings.Clog}}</td></tr>
<tr><th>Self-test failed</th><td id="ch-selftest_failed" class="{{if .Readings.SelfTestFailed}}alarm{{else}}off{{end}}">{{onOff .Readings.SelfTestFailed}}</td></tr>
</table>

<h2>Self Test</h2>
<table>
<tr><th>Outstanding</th><td>{{if .SelfTest.Outstanding}}yes ({{.SelfTest.Elapsed}} cycles){{else}}no{{end}}</td></tr>
<tr><th>Next test</th><td>{{utc .SelfTest.NextTest}}</td></tr>
<tr><th>Passed</th><td id="ch-selftest_count">{{.Readings.Counts.SelfTestCount}}</td></tr>
</table>

<h2>Packet Counts</h2>
<table>
<tr><th>Short clog</th><td id="ch-short_clog">{{.Readings.Counts.ShortClog}}</td></tr>
<tr><th>Long clog</th><td id="ch-long_clog">{{.Readings.Counts.LongClog}}</td></tr>
<tr><th>Short overheat</th><td id="ch-short_overheat">{{.Readings.Counts.ShortOverheat}}</td></tr>
<tr><th>Long overheat</th><td id="ch-long_overheat">{{.Readings.Counts.LongOverheat}}</td></tr>
<tr><th>Short start</th><td id="ch-short_start">{{.Readings.Counts.ShortStart}}</td></tr>
<tr><th>Long start</th><td id="ch-long_start">{{.Readings.Counts.LongStart}}</td></tr>
<tr><th>Unknown packet</th><td id="ch-unknown_packet">{{.Readings.Counts.UnknownPacket}}</td></tr>
<tr><th>Short pulse</th><td id="ch-short_packet">{{.Readings.Counts.ShortPacket}}</td></tr>
{{if .LastEvent}}<tr><th>Last packet</th><td>{{.LastEvent.Outcome}}{{if .LastEvent.Variant}} {{.LastEvent.Variant}}{{end}} at {{utc .LastEvent.Timestamp}}</td></tr>{{end}}
</table>

<h2>Sampler</h2>
<table>
<tr><th>Samples</th><td>{{.Sampler.Written}} written, {{.Sampler.Decoded}} decoded</td></tr>
<tr><th>Overruns</th><td>{{.Sampler.Overruns}} ({{.Sampler.Skipped}} samples skipped)</td></tr>
<tr><th>Last decode</th><td>{{utc .Sampler.LastPass}}</td></tr>
<tr><th>In packet</th><td>{{if .InPacket}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>Pins</th><td>{{.Config.Chip}} count={{.Config.CountPin}} test={{.Config.TestPin}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Decode</th><td>{{.Config.DecodeMs}}ms</td></tr>
<tr><th>History</th><td>{{.Config.HistorySize}} samples</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a> | <a href="/health">health</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var prefix = "{{.Config.TopicPrefix}}";
  var flags = { overheat: true, clog: true, selftest_failed: true };
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(prefix + "/+");
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    var name = t.substring(prefix.length + 1);
    var el = document.getElementById("ch-" + name);
    if (!el) {
      return;
    }
    var v = payload.toString();
    el.textContent = v;
    if (flags[name]) {
      el.className = v === "ON" ? "alarm" : "off";
    }
  });
})();
</script>
{{end}}
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

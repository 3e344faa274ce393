package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive is the number of connected protocol clients.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenhouse_sessions_active",
		Help: "Connected protocol sessions",
	})

	// CommandsTotal counts handled commands by menu and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenhouse_commands_total",
		Help: "Protocol commands handled, by menu and result",
	}, []string{"menu", "result"})

	Greenhouses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenhouse_greenhouses",
		Help: "Greenhouses currently simulated",
	})

	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greenhouse_clock_ticks_total",
		Help: "Clock ticks observed",
	})

	MonitorSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenhouse_monitor_subscribers",
		Help: "Sessions in monitor mode",
	})

	// MonitorPushesTotal counts tick pushes by result (ok, dropped).
	MonitorPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenhouse_monitor_pushes_total",
		Help: "Monitor pushes by result",
	}, []string{"result"})

	TelemetryPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenhouse_telemetry_published_total",
		Help: "MQTT reading publishes by result",
	}, []string{"result"})

	RemoteCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenhouse_remote_commands_total",
		Help: "MQTT appliance commands by result",
	}, []string{"result"})
)

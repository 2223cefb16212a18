package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrelworks/spatial-core/internal/rule"
)

// Metrics holds the Prometheus collectors for the engine.
//
// All collectors are registered on a private registry so tests can
// create isolated instances without global state collisions.
type Metrics struct {
	registry *prometheus.Registry

	entitiesRegistered prometheus.Gauge
	rulesRegistered    prometheus.Gauge
	ruleEventsTotal    *prometheus.CounterVec
	poseUpdatesTotal   *prometheus.CounterVec
	tickDuration       prometheus.Histogram
	mqttConnected      prometheus.Gauge
	wsClients          prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		entitiesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spatialcore_entities_registered",
			Help: "Number of entities currently in the registry",
		}),

		rulesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spatialcore_rules_registered",
			Help: "Number of compiled rules currently registered",
		}),

		ruleEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spatialcore_rule_events_total",
				Help: "Rule events emitted, by rule and trigger type",
			},
			[]string{"rule_id", "type"},
		),

		poseUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spatialcore_pose_updates_total",
				Help: "Pose updates applied, by entity",
			},
			[]string{"entity_id"},
		),

		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spatialcore_tick_duration_seconds",
			Help:    "Time spent evaluating one engine tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),

		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spatialcore_mqtt_connected",
			Help: "Whether the MQTT client is connected (1) or not (0)",
		}),

		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spatialcore_websocket_clients",
			Help: "Number of connected WebSocket clients",
		}),
	}

	registry.MustRegister(
		m.entitiesRegistered,
		m.rulesRegistered,
		m.ruleEventsTotal,
		m.poseUpdatesTotal,
		m.tickDuration,
		m.mqttConnected,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetEntityCount records the current registry size.
func (m *Metrics) SetEntityCount(n int) {
	m.entitiesRegistered.Set(float64(n))
}

// SetRuleCount records the number of registered rules.
func (m *Metrics) SetRuleCount(n int) {
	m.rulesRegistered.Set(float64(n))
}

// ObservePoseUpdate counts one pose update for an entity.
func (m *Metrics) ObservePoseUpdate(entityID string) {
	m.poseUpdatesTotal.WithLabelValues(entityID).Inc()
}

// ObserveTick records the duration of one engine tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}

// SetMQTTConnected records the MQTT connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if connected {
		m.mqttConnected.Set(1)
	} else {
		m.mqttConnected.Set(0)
	}
}

// SetWSClients records the current WebSocket client count.
func (m *Metrics) SetWSClients(n int) {
	m.wsClients.Set(float64(n))
}

// PublishRuleEvent counts an emitted rule event. Implements rule.Sink,
// so the Metrics instance can be attached to the rule registry directly.
func (m *Metrics) PublishRuleEvent(ev rule.WireEvent) {
	m.ruleEventsTotal.WithLabelValues(ev.ID, ev.Type).Inc()
}

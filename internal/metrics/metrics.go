// Package metrics collects Prometheus counters and gauges for both the
// SMTP and POP3 listeners. Collection happens whether or not anything
// scrapes it; cmd/maild registers it on the default Prometheus registry
// and does not serve that registry over HTTP.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every counter/gauge shared across the SMTP and POP3
// listeners, keyed by a "protocol" label rather than duplicated per
// listener.
type Collector struct {
	connectionsTotal  *prometheus.CounterVec
	connectionsActive *prometheus.GaugeVec
	tlsConnections    *prometheus.CounterVec

	authAttemptsTotal *prometheus.CounterVec

	commandsTotal *prometheus.CounterVec

	messagesIngestedTotal *prometheus.CounterVec
	messagesSpamTotal     prometheus.Counter
	messagesSizeBytes     prometheus.Histogram
}

// New creates a Collector with every metric registered against reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maild_connections_total",
			Help: "Total number of connections accepted.",
		}, []string{"protocol"}),
		connectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "maild_connections_active",
			Help: "Number of currently active connections.",
		}, []string{"protocol"}),
		tlsConnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maild_tls_connections_total",
			Help: "Total number of connections established over implicit TLS.",
		}, []string{"protocol"}),

		authAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maild_auth_attempts_total",
			Help: "Total number of authentication attempts.",
		}, []string{"protocol", "result"}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maild_commands_total",
			Help: "Total number of protocol commands processed.",
		}, []string{"protocol", "command"}),

		messagesIngestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maild_messages_ingested_total",
			Help: "Total number of messages submitted via SMTP DATA, by result.",
		}, []string{"result"}),
		messagesSpamTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maild_messages_spam_total",
			Help: "Total number of ingested messages classified as spam.",
		}),
		messagesSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maild_message_size_bytes",
			Help:    "Size in bytes of messages submitted via SMTP DATA.",
			Buckets: []float64{1024, 10240, 102400, 1048576, 10485760},
		}),
	}

	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.tlsConnections,
		c.authAttemptsTotal,
		c.commandsTotal,
		c.messagesIngestedTotal,
		c.messagesSpamTotal,
		c.messagesSizeBytes,
	)
	return c
}

// ConnectionOpened records a new connection for protocol ("smtp" or "pop3").
func (c *Collector) ConnectionOpened(protocol string, tlsActive bool) {
	c.connectionsTotal.WithLabelValues(protocol).Inc()
	c.connectionsActive.WithLabelValues(protocol).Inc()
	if tlsActive {
		c.tlsConnections.WithLabelValues(protocol).Inc()
	}
}

// ConnectionClosed decrements the active-connections gauge for protocol.
func (c *Collector) ConnectionClosed(protocol string) {
	c.connectionsActive.WithLabelValues(protocol).Dec()
}

// AuthAttempt records the outcome of an AUTH/PASS attempt.
func (c *Collector) AuthAttempt(protocol string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.authAttemptsTotal.WithLabelValues(protocol, result).Inc()
}

// CommandProcessed records one dispatched protocol command.
func (c *Collector) CommandProcessed(protocol, command string) {
	c.commandsTotal.WithLabelValues(protocol, command).Inc()
}

// MessageIngested records the outcome of an SMTP DATA submission.
func (c *Collector) MessageIngested(accepted bool, isSpam bool, sizeBytes int) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	c.messagesIngestedTotal.WithLabelValues(result).Inc()
	if isSpam {
		c.messagesSpamTotal.Inc()
	}
	c.messagesSizeBytes.Observe(float64(sizeBytes))
}

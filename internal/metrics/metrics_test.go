package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	if err := (<-ch).Write(&m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestConnectionOpenedAndClosed(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ConnectionOpened("smtp", true)
	if got := counterValue(t, c.connectionsTotal.WithLabelValues("smtp")); got != 1 {
		t.Errorf("connectionsTotal = %v, want 1", got)
	}
	if got := counterValue(t, c.connectionsActive.WithLabelValues("smtp")); got != 1 {
		t.Errorf("connectionsActive = %v, want 1", got)
	}
	if got := counterValue(t, c.tlsConnections.WithLabelValues("smtp")); got != 1 {
		t.Errorf("tlsConnections = %v, want 1", got)
	}

	c.ConnectionClosed("smtp")
	if got := counterValue(t, c.connectionsActive.WithLabelValues("smtp")); got != 0 {
		t.Errorf("connectionsActive after close = %v, want 0", got)
	}
}

func TestConnectionOpenedPlaintextSkipsTLSCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ConnectionOpened("pop3", false)
	if got := counterValue(t, c.tlsConnections.WithLabelValues("pop3")); got != 0 {
		t.Errorf("tlsConnections = %v, want 0 for plaintext connection", got)
	}
}

func TestAuthAttemptLabelsSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.AuthAttempt("pop3", true)
	c.AuthAttempt("pop3", false)
	c.AuthAttempt("pop3", false)

	if got := counterValue(t, c.authAttemptsTotal.WithLabelValues("pop3", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := counterValue(t, c.authAttemptsTotal.WithLabelValues("pop3", "failure")); got != 2 {
		t.Errorf("failure count = %v, want 2", got)
	}
}

func TestCommandProcessedPerProtocol(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.CommandProcessed("smtp", "MAIL")
	c.CommandProcessed("pop3", "USER")
	c.CommandProcessed("smtp", "MAIL")

	if got := counterValue(t, c.commandsTotal.WithLabelValues("smtp", "MAIL")); got != 2 {
		t.Errorf("smtp MAIL count = %v, want 2", got)
	}
	if got := counterValue(t, c.commandsTotal.WithLabelValues("pop3", "USER")); got != 1 {
		t.Errorf("pop3 USER count = %v, want 1", got)
	}
}

func TestMessageIngestedRecordsResultAndSpam(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.MessageIngested(true, true, 2048)
	c.MessageIngested(false, false, 512)

	if got := counterValue(t, c.messagesIngestedTotal.WithLabelValues("accepted")); got != 1 {
		t.Errorf("accepted count = %v, want 1", got)
	}
	if got := counterValue(t, c.messagesIngestedTotal.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected count = %v, want 1", got)
	}
	if got := counterValue(t, c.messagesSpamTotal); got != 1 {
		t.Errorf("messagesSpamTotal = %v, want 1", got)
	}
}

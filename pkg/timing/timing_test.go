package timing

import (
	"strings"
	"testing"
	"time"
)

func TestTimerCapturesPhases(t *testing.T) {
	timer := NewTimer()

	timer.StartDNS()
	time.Sleep(time.Millisecond)
	timer.EndDNS()

	timer.StartTCP()
	time.Sleep(time.Millisecond)
	timer.EndTCP()

	timer.StartTTFB()
	time.Sleep(time.Millisecond)
	timer.EndTTFB()

	m := timer.Metrics()
	if m.DNSLookup <= 0 {
		t.Fatal("expected a positive DNSLookup duration")
	}
	if m.TCPConnect <= 0 {
		t.Fatal("expected a positive TCPConnect duration")
	}
	if m.TLSHandshake != 0 {
		t.Fatal("TLS phase was never started, expected zero duration")
	}
	if m.TTFB <= 0 {
		t.Fatal("expected a positive TTFB duration")
	}
	if m.TotalTime <= 0 {
		t.Fatal("expected a positive TotalTime")
	}
}

func TestMetricsConnectionTimeSumsPhases(t *testing.T) {
	m := Metrics{DNSLookup: time.Second, TCPConnect: 2 * time.Second, TLSHandshake: 3 * time.Second}
	if m.ConnectionTime() != 6*time.Second {
		t.Fatalf("ConnectionTime() = %v, want 6s", m.ConnectionTime())
	}
}

func TestMetricsStringIncludesAllPhases(t *testing.T) {
	m := Metrics{DNSLookup: time.Millisecond}
	s := m.String()
	if s == "" {
		t.Fatal("String() must not be empty")
	}
	for _, phase := range []string{"dns=1ms", "tcp=", "tls=", "ttfb=", "total="} {
		if !strings.Contains(s, phase) {
			t.Fatalf("String() = %q, missing %q", s, phase)
		}
	}
}

// Package timing provides per-request latency instrumentation, in the style of
// the teacher library's pkg/timing: a Timer accumulates named phases and emits an
// immutable Metrics snapshot.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures the phase breakdown of a single request/response exchange.
type Metrics struct {
	DNSLookup    time.Duration `json:"dns_lookup"`
	TCPConnect   time.Duration `json:"tcp_connect"`
	TLSHandshake time.Duration `json:"tls_handshake"`
	TTFB         time.Duration `json:"ttfb"`
	TotalTime    time.Duration `json:"total_time"`
}

func (m Metrics) ConnectionTime() time.Duration { return m.DNSLookup + m.TCPConnect + m.TLSHandshake }

func (m Metrics) String() string {
	return fmt.Sprintf("dns=%v tcp=%v tls=%v ttfb=%v total=%v",
		m.DNSLookup, m.TCPConnect, m.TLSHandshake, m.TTFB, m.TotalTime)
}

// Timer measures the phases of a request as it moves through DNS, TCP, TLS and
// waits for the first response byte.
type Timer struct {
	start                time.Time
	dnsStart, dnsEnd      time.Time
	tcpStart, tcpEnd      time.Time
	tlsStart, tlsEnd      time.Time
	ttfbStart, ttfbEnd    time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) StartDNS()  { t.dnsStart = time.Now() }
func (t *Timer) EndDNS()    { t.dnsEnd = time.Now() }
func (t *Timer) StartTCP()  { t.tcpStart = time.Now() }
func (t *Timer) EndTCP()    { t.tcpEnd = time.Now() }
func (t *Timer) StartTLS()  { t.tlsStart = time.Now() }
func (t *Timer) EndTLS()    { t.tlsEnd = time.Now() }
func (t *Timer) StartTTFB() { t.ttfbStart = time.Now() }
func (t *Timer) EndTTFB()   { t.ttfbEnd = time.Now() }

func (t *Timer) Metrics() Metrics {
	m := Metrics{TotalTime: time.Since(t.start)}
	if !t.dnsStart.IsZero() && !t.dnsEnd.IsZero() {
		m.DNSLookup = t.dnsEnd.Sub(t.dnsStart)
	}
	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	if !t.ttfbStart.IsZero() && !t.ttfbEnd.IsZero() {
		m.TTFB = t.ttfbEnd.Sub(t.ttfbStart)
	}
	return m
}

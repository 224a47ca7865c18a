// Package pool implements spec.md §4.4: multiplexing requests to one host
// behind a bounded number of live connections. Grounded on the teacher
// library's pkg/transport/transport.go hostPool (LIFO idle stack, hand off
// idle connections before dialing new ones, close-at-return-time expiry),
// rewritten to gate concurrency with the strictly-FIFO asyncutil.Semaphore
// from this module instead of transport.go's sync.Cond, since spec.md §4.4
// and §5 both require FIFO waiter ordering.
package pool

import (
	"container/list"
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cppalliance/gorequests/pkg/asyncutil"
	"github.com/cppalliance/gorequests/pkg/connection"
	"github.com/cppalliance/gorequests/pkg/cookiejar"
	"github.com/cppalliance/gorequests/pkg/endpoint"
	"github.com/cppalliance/gorequests/pkg/errors"
	"github.com/cppalliance/gorequests/pkg/source"
	"github.com/cppalliance/gorequests/pkg/stream"
	"github.com/cppalliance/gorequests/pkg/timing"
)

// Config bundles the per-pool knobs: how many live connections a host may
// have at once, how long an idle one is kept, and what a freshly dialed
// connection is configured with.
type Config struct {
	Limit       int
	IdleTimeout time.Duration
	ConnConfig  connection.Config
	Resolver    *net.Resolver
}

// DefaultConfig mirrors the teacher's DefaultPoolConfig defaults, adjusted
// for spec.md's semaphore-gated design (no WaitTimeout: the semaphore's
// Acquire already blocks until ctx is done or a slot frees).
func DefaultConfig() Config {
	return Config{Limit: 8, IdleTimeout: 90 * time.Second}
}

type idleConn struct {
	conn     *connection.Connection
	lastUsed time.Time
}

// Stats is the read-only snapshot returned by Pool.Stats, the Go analogue of
// the teacher's PoolStats/HostPoolStats pair collapsed to a single host.
type Stats struct {
	ActiveConns  int
	IdleConns    int
	TotalReused  int
	TotalCreated int
}

// Pool multiplexes requests to one resolved endpoint behind ≤ Limit live
// connections. Session keeps one Pool per normalized URL origin (scheme,
// host, port); two origins that resolve to the same endpoint get separate
// pools.
type Pool struct {
	cfg  Config
	host string

	mu       sync.Mutex
	ep       endpoint.Endpoint
	resolved bool
	idle     *list.List // of *idleConn, back = most recently released (LIFO)
	active   int

	sem *asyncutil.Semaphore

	totalReused  uint64
	totalCreated uint64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New returns a pool for host, not yet resolved. Call Lookup before
// GetConnection: GetConnection does not resolve the host itself and dials
// whatever endpoint Lookup cached.
func New(host string, cfg Config) *Pool {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}
	p := &Pool{
		cfg:    cfg,
		host:   host,
		idle:   list.New(),
		sem:    asyncutil.NewSemaphore(cfg.Limit),
		stopCh: make(chan struct{}),
	}
	go p.cleanupLoop()
	return p
}

// Lookup DNS-resolves host, caching the first successful address and the
// requested TLS flag as this pool's endpoint.
func (p *Pool) Lookup(ctx context.Context, port int, tls bool) error {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	resolver := p.cfg.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, p.host)
	if err != nil || len(addrs) == 0 {
		return errors.NewTransportError(p.host, port, "lookup", err)
	}

	p.mu.Lock()
	p.ep = endpoint.TCPEndpoint(addrs[0].IP, port, tls)
	p.resolved = true
	p.mu.Unlock()
	return nil
}

// Handle is returned by GetConnection. Release must be called exactly once;
// it is also invoked automatically once a Stream produced by Ropen finishes.
type Handle struct {
	pool *Pool
	conn *connection.Connection
	done bool
}

// Connection exposes the underlying connection for direct Ropen/Upgrade use.
func (h *Handle) Connection() *connection.Connection { return h.conn }

// Release returns the slot to the pool: if keepAlive and the connection is
// still open, it is pushed onto the idle stack; otherwise the slot is freed
// without retaining the connection, matching spec.md §4.4's replacement
// policy ("a connection that fails mid-request is dropped, not returned").
func (h *Handle) Release(keepAlive bool) {
	if h.done {
		return
	}
	h.done = true
	h.pool.release(h.conn, keepAlive)
}

// GetConnection acquires a slot from the bounded semaphore (strict FIFO),
// returning an idle connection if one is available, else dialing a new one.
func (p *Pool) GetConnection(ctx context.Context, timer *timing.Timer) (*Handle, error) {
	if err := p.sem.Acquire(ctx); err != nil {
		return nil, err
	}

	if c := p.popIdle(); c != nil {
		atomic.AddUint64(&p.totalReused, 1)
		p.mu.Lock()
		p.active++
		p.mu.Unlock()
		return &Handle{pool: p, conn: c}, nil
	}

	p.mu.Lock()
	ep := p.ep
	p.mu.Unlock()

	c := connection.New(p.cfg.ConnConfig)
	if err := c.SetHost(p.host); err != nil {
		p.sem.Release()
		return nil, err
	}
	if err := c.Connect(ctx, ep, timer); err != nil {
		p.sem.Release()
		return nil, err
	}
	atomic.AddUint64(&p.totalCreated, 1)
	p.mu.Lock()
	p.active++
	p.mu.Unlock()
	return &Handle{pool: p, conn: c}, nil
}

// Ropen is sugar: GetConnection then delegate, releasing the slot once the
// returned stream's body is fully consumed or closed.
func (p *Pool) Ropen(ctx context.Context, method, path string, headers http.Header, src source.Source, jar *cookiejar.Jar, isTLS bool, timer *timing.Timer) (*stream.Stream, error) {
	handle, err := p.GetConnection(ctx, timer)
	if err != nil {
		return nil, err
	}
	if headers == nil {
		headers = make(http.Header)
	}
	st, err := handle.conn.Ropen(ctx, method, path, headers, src, jar, isTLS, handle.Release)
	if err != nil {
		handle.Release(false)
		return nil, err
	}
	return st, nil
}

func (p *Pool) popIdle() *connection.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		back := p.idle.Back()
		if back == nil {
			return nil
		}
		p.idle.Remove(back)
		ic := back.Value.(*idleConn)
		if time.Since(ic.lastUsed) > p.cfg.IdleTimeout || ic.conn.IsClosed() {
			ic.conn.Close()
			continue
		}
		return ic.conn
	}
}

func (p *Pool) release(c *connection.Connection, keepAlive bool) {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()

	if keepAlive && !c.IsClosed() {
		p.mu.Lock()
		p.idle.PushBack(&idleConn{conn: c, lastUsed: time.Now()})
		p.mu.Unlock()
	} else {
		c.Close()
	}
	p.sem.Release()
}

// Stats returns a read-only snapshot, the Go analogue of the teacher's
// PoolStats/HostPoolStats.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ActiveConns:  p.active,
		IdleConns:    p.idle.Len(),
		TotalReused:  int(atomic.LoadUint64(&p.totalReused)),
		TotalCreated: int(atomic.LoadUint64(&p.totalCreated)),
	}
}

func (p *Pool) cleanupLoop() {
	ticker := time.NewTicker(p.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.closeExpiredIdle()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) closeExpiredIdle() {
	p.mu.Lock()
	var expired []*connection.Connection
	for e := p.idle.Front(); e != nil; {
		next := e.Next()
		ic := e.Value.(*idleConn)
		if time.Since(ic.lastUsed) > p.cfg.IdleTimeout {
			p.idle.Remove(e)
			expired = append(expired, ic.conn)
		}
		e = next
	}
	p.mu.Unlock()
	for _, c := range expired {
		c.Close()
	}
}

// Close tears down the pool: every idle connection is closed, the cleanup
// goroutine stops, and any waiter still queued on the semaphore completes
// with operation_aborted.
func (p *Pool) Close() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.mu.Lock()
	var conns []*connection.Connection
	for e := p.idle.Front(); e != nil; e = e.Next() {
		conns = append(conns, e.Value.(*idleConn).conn)
	}
	p.idle.Init()
	p.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
	p.sem.AbortAll()
	return nil
}

package pool

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cppalliance/gorequests/pkg/endpoint"
	"github.com/cppalliance/gorequests/pkg/source"
)

// echoServer accepts connections and replies "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"
// to every well-formed request, forever, until the listener is closed.
func echoServer(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufio.NewReader(c)
				for {
					for {
						line, err := r.ReadString('\n')
						if err != nil {
							return
						}
						if line == "\r\n" {
							break
						}
					}
					if _, err := c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
}

func newTestPool(t *testing.T, ln net.Listener, limit int) *Pool {
	t.Helper()
	p := New("127.0.0.1", Config{Limit: limit, IdleTimeout: time.Minute})
	addr := ln.Addr().(*net.TCPAddr)
	p.mu.Lock()
	p.ep = endpoint.TCPEndpoint(addr.IP, addr.Port, false)
	p.resolved = true
	p.mu.Unlock()
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPoolReusesReleasedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	echoServer(t, ln)

	p := newTestPool(t, ln, 2)

	st, err := p.Ropen(context.Background(), http.MethodGet, "/", nil, source.Empty{}, nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.ReadAll(0); err != nil {
		t.Fatal(err)
	}

	if stats := p.Stats(); stats.IdleConns != 1 || stats.ActiveConns != 0 {
		t.Fatalf("expected one idle connection after release, got %+v", stats)
	}

	st2, err := p.Ropen(context.Background(), http.MethodGet, "/", nil, source.Empty{}, nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st2.ReadAll(0); err != nil {
		t.Fatal(err)
	}
	if stats := p.Stats(); stats.TotalReused != 1 || stats.TotalCreated != 1 {
		t.Fatalf("expected exactly one dial and one reuse, got %+v", stats)
	}
}

func TestPoolBudgetNeverExceedsLimit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	echoServer(t, ln)

	const limit = 3
	p := newTestPool(t, ln, limit)

	var wg sync.WaitGroup
	for i := 0; i < limit*4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := p.Ropen(context.Background(), http.MethodGet, "/", nil, source.Empty{}, nil, false, nil)
			if err != nil {
				t.Error(err)
				return
			}
			st.ReadAll(0)
		}()
	}
	wg.Wait()

	stats := p.Stats()
	if stats.ActiveConns+stats.IdleConns > limit {
		t.Fatalf("pool budget violated: %+v", stats)
	}
}

func TestPoolFIFOWaiters(t *testing.T) {
	p := New("example.test", Config{Limit: 1})
	defer p.Close()

	if !p.sem.TryAcquire() {
		t.Fatal("expected to acquire the only slot")
	}

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := p.sem.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i)
		time.Sleep(10 * time.Millisecond) // ensure enqueue order
	}

	p.sem.Release() // release the original slot and the one taken by each waiter in turn
	p.sem.Release()
	p.sem.Release()
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order 0,1,2, got %v", order)
		}
	}
}

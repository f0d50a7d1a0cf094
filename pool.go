package httpclient

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/iand675/http-client/internal/obs"
)

// idleEntry is one idle connection, tracked both in the per-key LIFO
// slice and in the cross-key LRU list used for global eviction.
type idleEntry struct {
	key        ConnKey
	conn       Connection
	insertedAt time.Time
	lruElem    *list.Element // element in Pool.lru, oldest-first
}

// Pool is a keyed connection pool: checkout/return with per-key and
// global idle caps, background TTL-based reaping, and an open/closed
// lifecycle.
type Pool struct {
	mu     sync.Mutex
	closed bool

	idle map[ConnKey][]*idleEntry
	// lru orders every idle connection across every key oldest-first,
	// so evicting the oldest idle connection across all keys is O(1)
	// instead of scanning every key.
	lru *list.List

	idleCount int

	globalCap int
	perKeyCap int
	ttl       time.Duration

	Logger obs.Logger
	Meter  obs.Meter

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPool constructs an open Pool with the given caps. A zero
// globalCap or perKeyCap means unlimited, not "never keep anything
// idle".
func NewPool(globalCap, perKeyCap int, ttl time.Duration) *Pool {
	p := &Pool{
		idle:      make(map[ConnKey][]*idleEntry),
		lru:       list.New(),
		globalCap: globalCap,
		perKeyCap: perKeyCap,
		ttl:       ttl,
		stop:      make(chan struct{}),
	}
	if ttl > 0 {
		go p.reapLoop()
	}
	return p
}

// PoolStats is a point-in-time snapshot for callers that want a cheap
// read instead of wiring a Meter.
type PoolStats struct {
	IdleConnectionCount int
	GlobalCap           int
	PerKeyCap           int
	KeysWithIdleConns   int
	Closed              bool
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		IdleConnectionCount: p.idleCount,
		GlobalCap:           p.globalCap,
		PerKeyCap:           p.perKeyCap,
		KeysWithIdleConns:   len(p.idle),
		Closed:              p.closed,
	}
}

var errPoolClosed = &HTTPException{Kind: &connectionClosedKind{}}

// Checkout returns an idle connection for key if one exists (LIFO:
// most-recent first), otherwise dials a fresh one via dial. The
// critical section never performs I/O: dial runs outside the lock.
func (p *Pool) Checkout(ctx context.Context, key ConnKey, dial func(context.Context) (Connection, error)) (conn Connection, reused bool, idleFor time.Duration, err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, 0, errPoolClosed
	}
	idleList := p.idle[key]
	if n := len(idleList); n > 0 {
		e := idleList[n-1]
		if n == 1 {
			delete(p.idle, key)
		} else {
			p.idle[key] = idleList[:n-1]
		}
		p.lru.Remove(e.lruElem)
		p.idleCount--
		p.mu.Unlock()
		p.metricCounter("httpclient_pool_checkout_reused_total", 1)
		return e.conn, true, time.Since(e.insertedAt), nil
	}
	p.mu.Unlock()

	conn, err = dial(ctx)
	if err != nil {
		return nil, false, 0, err
	}
	p.metricCounter("httpclient_pool_checkout_dialed_total", 1)
	return conn, false, 0, nil
}

// Return stamps conn with the current time and appends it to key's
// idle list. It then enforces the per-key and global caps, evicting
// and closing whichever connections fall out, entirely under the lock
// except for the actual Close calls, which happen after the lock is
// released so eviction never blocks on I/O.
func (p *Pool) Return(key ConnKey, conn Connection) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return
	}
	e := &idleEntry{key: key, conn: conn, insertedAt: time.Now()}
	p.idle[key] = append(p.idle[key], e)
	e.lruElem = p.lru.PushBack(e)
	p.idleCount++

	var toClose []Connection
	if p.perKeyCap > 0 {
		idleList := p.idle[key]
		for len(idleList) > p.perKeyCap {
			// Evict the least-recently-used entry of this key,
			// preferring to keep the most recently used ones. The oldest
			// entry for this key is at index 0 since Return appends.
			victim := idleList[0]
			idleList = idleList[1:]
			p.lru.Remove(victim.lruElem)
			p.idleCount--
			toClose = append(toClose, victim.conn)
		}
		p.idle[key] = idleList
	}
	if p.globalCap > 0 {
		for p.idleCount > p.globalCap {
			oldest := p.lru.Front()
			if oldest == nil {
				break
			}
			victim := oldest.Value.(*idleEntry)
			p.removeEntryLocked(victim)
			toClose = append(toClose, victim.conn)
		}
	}
	p.mu.Unlock()

	for _, c := range toClose {
		_ = c.Close()
		p.metricCounter("httpclient_pool_evicted_total", 1)
	}
}

// removeEntryLocked removes e from both the per-key slice and the
// LRU list. Caller holds p.mu.
func (p *Pool) removeEntryLocked(e *idleEntry) {
	p.lru.Remove(e.lruElem)
	p.idleCount--
	idleList := p.idle[e.key]
	for i, other := range idleList {
		if other == e {
			idleList = append(idleList[:i], idleList[i+1:]...)
			break
		}
	}
	if len(idleList) == 0 {
		delete(p.idle, e.key)
	} else {
		p.idle[e.key] = idleList
	}
}

// Discard closes conn without returning it to the idle set — used
// when a request leaves the connection unhealthy (server signalled
// Connection: close, the body wasn't fully drained, or a transport
// error occurred).
func (p *Pool) Discard(conn Connection) {
	_ = conn.Close()
}

func (p *Pool) reapLoop() {
	ticker := time.NewTicker(p.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.reapIdle()
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) reapIdle() {
	now := time.Now()
	p.mu.Lock()
	var toClose []Connection
	for key, idleList := range p.idle {
		kept := idleList[:0:0]
		for _, e := range idleList {
			if now.Sub(e.insertedAt) > p.ttl {
				p.lru.Remove(e.lruElem)
				p.idleCount--
				toClose = append(toClose, e.conn)
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(p.idle, key)
		} else {
			p.idle[key] = kept
		}
	}
	p.mu.Unlock()
	for _, c := range toClose {
		_ = c.Close()
		p.metricCounter("httpclient_pool_idle_reaped_total", 1)
	}
}

// Close transitions the pool to closed: drains and closes every idle
// connection; subsequent Checkout calls fail with a connection-closed
// HTTPException.
func (p *Pool) Close() error {
	p.stopOnce.Do(func() { close(p.stop) })
	p.mu.Lock()
	p.closed = true
	var all []Connection
	for _, idleList := range p.idle {
		for _, e := range idleList {
			all = append(all, e.conn)
		}
	}
	p.idle = make(map[ConnKey][]*idleEntry)
	p.lru = list.New()
	p.idleCount = 0
	p.mu.Unlock()
	for _, c := range all {
		_ = c.Close()
	}
	return nil
}

func (p *Pool) metricCounter(name string, v float64, labels ...obs.Label) {
	if p.Meter != nil {
		p.Meter.Counter(name, v, labels...)
	}
}

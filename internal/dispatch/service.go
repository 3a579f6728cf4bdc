// Package dispatch implements the network dispatcher (component I):
// the five fixed TCP services (raw hex in/out, SBS in/out, HTTP),
// their client lists, deny-list enforcement, and the broadcast path
// that fans a decoded frame out to every connected output client.
package dispatch

import (
	"net"
	"sync"
	"time"
)

// Kind identifies one of the five fixed service roles, per spec §4.I.
type Kind int

const (
	RawOut Kind = iota
	RawIn
	SBSOut
	SBSIn
	HTTP
)

func (k Kind) String() string {
	switch k {
	case RawOut:
		return "RAW_OUT"
	case RawIn:
		return "RAW_IN"
	case SBSOut:
		return "SBS_OUT"
	case SBSIn:
		return "SBS_IN"
	case HTTP:
		return "HTTP"
	default:
		return "UNKNOWN"
	}
}

// MaxOutboxBytes bounds a client's pending-send buffer; a send that
// would exceed it marks the connection for close instead of growing
// unbounded, mirroring Mongoose's default iobuf cap (spec §4.I/§5
// backpressure policy).
const MaxOutboxBytes = 1 << 20 // 1 MiB

// ClientHandle addresses a client slot by generation+index so that a
// handle obtained before a connection closed is detected as stale
// rather than dereferencing a reused slot.
type ClientHandle struct {
	Index      int
	Generation uint64
}

// Client is one connected (accepted or actively-connected) peer of a
// service.
type Client struct {
	handle     ClientHandle
	conn       net.Conn
	RemoteAddr string
	KeepAlive  bool
	Gzip       bool
	Kind       Kind

	mu      sync.Mutex
	outbox  []byte
	closing bool
	closed  bool
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.closing {
		return false
	}
	if len(c.outbox)+len(data) > MaxOutboxBytes {
		c.closing = true
		return false
	}
	c.outbox = append(c.outbox, data...)
	return true
}

func (c *Client) drain() {
	c.mu.Lock()
	if len(c.outbox) == 0 {
		shouldClose := c.closing
		c.mu.Unlock()
		if shouldClose {
			c.Close()
		}
		return
	}
	pending := c.outbox
	c.outbox = nil
	closing := c.closing
	c.mu.Unlock()

	if _, err := c.conn.Write(pending); err != nil {
		c.Close()
		return
	}
	if closing {
		c.Close()
	}
}

// Conn exposes the underlying connection so a caller that accepted
// the client (via ListenPassive's onAccept) can read from it; outside
// that callback, clients are addressed by ClientHandle, never by this
// pointer, so a stale reference is never dereferenced.
func (c *Client) Conn() net.Conn {
	return c.conn
}

// Close shuts the underlying connection down, idempotently.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.conn.Close()
}

// slot is a clientSlots entry: either a live client (generation
// matches handle) or a free slot awaiting reuse.
type slot struct {
	client *Client
	gen    uint64
	free   bool
}

// clientSlots is the per-service client container: a growable slice
// with a free list and stable handles.
type clientSlots struct {
	mu       sync.RWMutex
	slots    []slot
	freeList []int
}

func newClientSlots() *clientSlots {
	return &clientSlots{}
}

func (s *clientSlots) add(c *Client) ClientHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.freeList) > 0 {
		idx := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.slots[idx].gen++
		s.slots[idx].client = c
		s.slots[idx].free = false
		h := ClientHandle{Index: idx, Generation: s.slots[idx].gen}
		c.handle = h
		return h
	}

	idx := len(s.slots)
	s.slots = append(s.slots, slot{client: c, gen: 1})
	h := ClientHandle{Index: idx, Generation: 1}
	c.handle = h
	return h
}

func (s *clientSlots) remove(h ClientHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.Index < 0 || h.Index >= len(s.slots) {
		return
	}
	sl := &s.slots[h.Index]
	if sl.free || sl.gen != h.Generation {
		return
	}
	sl.client = nil
	sl.free = true
	s.freeList = append(s.freeList, h.Index)
}

func (s *clientSlots) get(h ClientHandle) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h.Index < 0 || h.Index >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[h.Index]
	if sl.free || sl.gen != h.Generation {
		return nil, false
	}
	return sl.client, true
}

// snapshot returns every live client, for broadcast iteration.
func (s *clientSlots) snapshot() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.slots))
	for _, sl := range s.slots {
		if !sl.free && sl.client != nil {
			out = append(out, sl.client)
		}
	}
	return out
}

func (s *clientSlots) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots) - len(s.freeList)
}

// Service is one of the five fixed service descriptors: its listen
// configuration, connected clients, and running counters.
type Service struct {
	Kind         Kind
	Protocol     string // "tcp" or "udp"
	Port         int
	RemoteAddr   string // host:port, active mode only
	DenyIPv4     []*net.IPNet
	DenyIPv6     []*net.IPNet

	clients *clientSlots

	mu          sync.Mutex
	listener    net.Listener
	UniqueIPs   map[string]struct{}
	Accepted    uint64
	DeniedCount uint64
	LastError   string
	LastErrorAt time.Time
}

// NewService creates an unstarted service descriptor.
func NewService(kind Kind, protocol string, port int) *Service {
	return &Service{
		Kind:      kind,
		Protocol:  protocol,
		Port:      port,
		clients:   newClientSlots(),
		UniqueIPs: make(map[string]struct{}),
	}
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastError = err.Error()
	s.LastErrorAt = time.Now()
}

func (s *Service) noteUniqueIP(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UniqueIPs[ip] = struct{}{}
}

// ClientCount returns the number of currently connected clients.
func (s *Service) ClientCount() int {
	n := 0
	for _, c := range s.clients.snapshot() {
		c.mu.Lock()
		if !c.closed {
			n++
		}
		c.mu.Unlock()
	}
	return n
}

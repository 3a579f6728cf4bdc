package dispatch

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ActiveConnectTimeout is the per-service connect deadline for active
// mode (--net-active), per spec §4.I.
const ActiveConnectTimeout = 5 * time.Second

// Dispatcher owns every Service and the accept/connect goroutines that
// feed them, replacing dump1090's process-wide globals with a single
// value passed by reference. Callers read ExitRequested to learn when an active-connect
// failure means the process should shut down.
type Dispatcher struct {
	logger   *logrus.Logger
	services map[Kind]*Service

	wg       sync.WaitGroup
	exitCh   chan struct{}
	exitOnce sync.Once
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		services: make(map[Kind]*Service),
		exitCh:   make(chan struct{}),
	}
}

// AddService registers a configured-but-unstarted service.
func (d *Dispatcher) AddService(s *Service) {
	d.services[s.Kind] = s
}

// Service looks up a registered service by kind.
func (d *Dispatcher) Service(k Kind) *Service {
	return d.services[k]
}

// ExitRequested is closed when the dispatcher decides the process
// should stop: an active-connect failure, since the user explicitly
// asked for an upstream feeder (spec §7(e)).
func (d *Dispatcher) ExitRequested() <-chan struct{} {
	return d.exitCh
}

func (d *Dispatcher) requestExit() {
	d.exitOnce.Do(func() { close(d.exitCh) })
}

// ListenPassive starts accepting TCP connections for s on its
// configured port. onAccept is called once per accepted (and
// not-denied) connection so the caller can start reading/writing on
// it; it is called synchronously on the listener's accept goroutine,
// so a caller that reads from the connection starts its own goroutine.
func (d *Dispatcher) ListenPassive(s *Service, onAccept func(*Client)) error {
	ln, err := net.Listen(s.Protocol, fmt.Sprintf(":%d", s.Port))
	if err != nil {
		s.recordError(err)
		return fmt.Errorf("listen %s %s:%d: %w", s.Protocol, s.Kind, s.Port, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-d.exitCh:
					return
				default:
				}
				s.recordError(err)
				return
			}
			d.handleAccept(s, conn, onAccept)
		}
	}()
	return nil
}

func (d *Dispatcher) handleAccept(s *Service, conn net.Conn, onAccept func(*Client)) {
	remote := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	s.noteUniqueIP(host)

	s.mu.Lock()
	s.Accepted++
	s.mu.Unlock()

	if s.Denied(remote) {
		s.mu.Lock()
		s.DeniedCount++
		s.mu.Unlock()
		d.logger.WithFields(logrus.Fields{"service": s.Kind.String(), "remote": remote}).Warn("connection denied")
		conn.Close()
		return
	}

	c := &Client{conn: conn, RemoteAddr: remote, Kind: s.Kind}
	s.clients.add(c)
	d.logger.WithFields(logrus.Fields{"service": s.Kind.String(), "remote": remote}).Debug("client connected")

	if onAccept != nil {
		onAccept(c)
	}
}

// ListenUDP starts receiving UDP datagrams for s, handing each
// datagram's payload to onDatagram as its own self-delimiting chunk
// (spec §9 Open Question 4: UDP RAW_IN continues the stream parser
// per datagram rather than needing a second parser).
func (d *Dispatcher) ListenUDP(s *Service, onDatagram func([]byte, net.Addr)) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return fmt.Errorf("resolve udp %s:%d: %w", s.Kind, s.Port, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		s.recordError(err)
		return fmt.Errorf("listen udp %s:%d: %w", s.Kind, s.Port, err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		buf := make([]byte, 65536)
		for {
			n, raddr, err := conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-d.exitCh:
					return
				default:
				}
				s.recordError(err)
				return
			}
			if s.Denied(raddr.String()) {
				continue
			}
			payload := make([]byte, n)
			copy(payload, buf[:n])
			onDatagram(payload, raddr)
		}
	}()
	return nil
}

// ConnectActive dials s.RemoteAddr with a bounded timeout (active
// mode). On failure it logs, records the error, and signals the
// dispatcher's exit channel, per spec §4.I/§7(e). onConnect receives
// the live connection on success.
func (d *Dispatcher) ConnectActive(ctx context.Context, s *Service, onConnect func(net.Conn)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		dialCtx, cancel := context.WithTimeout(ctx, ActiveConnectTimeout)
		defer cancel()

		dialer := net.Dialer{}
		conn, err := dialer.DialContext(dialCtx, "tcp", s.RemoteAddr)
		if err != nil {
			s.recordError(err)
			d.logger.WithFields(logrus.Fields{"service": s.Kind.String(), "remote": s.RemoteAddr}).WithError(err).Error("active connect failed")
			d.requestExit()
			return
		}

		c := &Client{conn: conn, RemoteAddr: s.RemoteAddr, Kind: s.Kind}
		s.clients.add(c)
		onConnect(conn)
	}()
}

// Broadcast enqueues data for every currently connected client of s,
// closing any client whose outbox would exceed MaxOutboxBytes instead
// of growing it unboundedly (backpressure policy, spec §4.I/§5).
func (s *Service) Broadcast(data []byte) {
	for _, c := range s.clients.snapshot() {
		if !c.enqueue(data) {
			c.Close()
			continue
		}
		c.drain()
	}
}

// Shutdown closes every listener and client across all registered
// services and waits (best-effort, up to timeout) for accept/connect
// goroutines to return.
func (d *Dispatcher) Shutdown(timeout time.Duration) {
	d.requestExit()

	for _, s := range d.services {
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
		for _, c := range s.clients.snapshot() {
			c.Close()
		}
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		d.logger.Warn("dispatcher shutdown timed out waiting for goroutines")
	}
}

package dispatch

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDenyList_BlocksMatchingCIDR(t *testing.T) {
	s := NewService(RawOut, "tcp", 0)
	deny, err := ParseCIDRList([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	s.DenyIPv4 = deny

	assert.True(t, s.Denied("10.1.2.3:5000"))
	assert.False(t, s.Denied("192.168.1.1:5000"))
}

func TestClientSlots_HandleReuseDetectsStale(t *testing.T) {
	slots := newClientSlots()
	c1 := &Client{}
	h1 := slots.add(c1)

	slots.remove(h1)
	c2 := &Client{}
	h2 := slots.add(c2)

	// h1's index may now be reused by h2, but h1 itself must not
	// resolve to the new client.
	_, ok := slots.get(h1)
	assert.False(t, ok)

	got, ok := slots.get(h2)
	require.True(t, ok)
	assert.Same(t, c2, got)
}

func TestDispatcher_ListenPassiveAcceptsAndDenies(t *testing.T) {
	d := NewDispatcher(testLogger())
	s := NewService(RawOut, "tcp", 0)
	deny, err := ParseCIDRList([]string{"127.0.0.1/32"})
	require.NoError(t, err)
	s.DenyIPv4 = deny
	d.AddService(s)

	require.NoError(t, d.ListenPassive(s, nil))

	addr := s.listener.Addr().String()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	// Denied connection should be closed without data.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Error(t, err)

	d.Shutdown(time.Second)
}

func TestService_BroadcastDeliversToClient(t *testing.T) {
	d := NewDispatcher(testLogger())
	s := NewService(RawOut, "tcp", 0)
	d.AddService(s)

	done := make(chan struct{})
	require.NoError(t, d.ListenPassive(s, func(c *Client) { close(done) }))

	addr := s.listener.Addr().String()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("accept callback never fired")
	}

	s.Broadcast([]byte("*8d4b969699155600e87406f5b69f;\n"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "*8d4b969699155600e87406f5b69f;\n", line)

	d.Shutdown(time.Second)
}

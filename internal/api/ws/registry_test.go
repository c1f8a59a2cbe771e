package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn implements wsConn. ReadMessage blocks until the connection is
// closed, mirroring a quiet browser client.
type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	closeCh  chan struct{}
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{closeCh: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closeCh
	return 0, nil, errors.New("connection closed")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closeCh)
	}
	return nil
}

func (f *fakeConn) writtenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestSend_NoConnection(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Send("nobody@x.com", []byte("hello")))
}

func TestSend_DeliversToLiveConnection(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()
	client := r.Register("b@x.com", conn)
	go client.writePump(r)
	go client.readPump(r)

	assert.True(t, r.Send("b@x.com", []byte(`{"type":"collaboration_request"}`)))

	require.Eventually(t, func() bool {
		return conn.writtenCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegister_ReplacesPriorConnection(t *testing.T) {
	r := NewRegistry()
	old := newFakeConn()
	oldClient := r.Register("b@x.com", old)
	go oldClient.writePump(r)
	go oldClient.readPump(r)

	replacement := newFakeConn()
	newClient := r.Register("b@x.com", replacement)
	go newClient.writePump(r)
	go newClient.readPump(r)

	// The prior handle is closed, not leaked.
	require.Eventually(t, old.isClosed, time.Second, 5*time.Millisecond)

	assert.True(t, r.Send("b@x.com", []byte("after replace")))
	require.Eventually(t, func() bool {
		return replacement.writtenCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, old.writtenCount())
}

func TestSend_ClosedHandleSelfHeals(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()
	client := r.Register("b@x.com", conn)
	go client.writePump(r)
	go client.readPump(r)

	conn.Close()
	require.Eventually(t, func() bool {
		return !r.Connected("b@x.com")
	}, time.Second, 5*time.Millisecond)

	assert.False(t, r.Send("b@x.com", []byte("too late")))
}

func TestSend_ClosedHandleWithBufferSpaceReportsFalse(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()
	client := r.Register("b@x.com", conn) // no pumps: buffer stays empty

	// Close the handle without deregistering it, as a racing pump teardown
	// would. The empty buffer must not make Send claim delivery.
	client.close()

	assert.False(t, r.Send("b@x.com", []byte("into the void")))
	assert.False(t, r.Connected("b@x.com"), "dead handle must be deregistered")
}

func TestSend_FullBufferDropsConnection(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()
	r.Register("b@x.com", conn) // no pumps: nothing drains the buffer

	delivered := 0
	for i := 0; i < 128; i++ {
		if r.Send("b@x.com", []byte("x")) {
			delivered++
		}
	}

	assert.Equal(t, 64, delivered, "accepts exactly the buffer capacity")
	assert.False(t, r.Connected("b@x.com"), "broken handle must not stay registered")
	assert.True(t, conn.isClosed())
}

func TestClose_IdempotentUnderRace(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn()
	client := r.Register("b@x.com", conn)
	go client.writePump(r)
	go client.readPump(r)

	// Closing from multiple paths at once must deregister exactly once and
	// never panic.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.close()
			r.remove(client)
			r.Send("b@x.com", []byte("racing"))
		}()
	}
	wg.Wait()

	assert.False(t, r.Connected("b@x.com"))
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failOn   bool
	closed   bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn {
		return errors.New("broken pipe")
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) snapshot() ([][]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.messages...), f.closed
}

func TestHubBroadcastsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	good := &fakeConn{}
	bad := &fakeConn{failOn: true}
	hub.Register <- &Client{Conn: good, UserID: 1}
	hub.Register <- &Client{Conn: bad, UserID: 2}

	hub.Publish(Event{Type: EventTaskCompleted, JobID: 5, UserID: 9, TaskID: "deck_scrub"})

	require.Eventually(t, func() bool {
		msgs, _ := good.snapshot()
		_, closed := bad.snapshot()
		return len(msgs) == 1 && closed
	}, time.Second, 10*time.Millisecond)

	msgs, _ := good.snapshot()
	var got Event
	require.NoError(t, json.Unmarshal(msgs[0], &got))
	assert.Equal(t, EventTaskCompleted, got.Type)
	assert.Equal(t, 5, got.JobID)
	assert.Equal(t, "deck_scrub", got.TaskID)
	assert.False(t, got.At.IsZero())
}

func TestHubCloseOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	conn := &fakeConn{}
	hub.Register <- &Client{Conn: conn}
	cancel()
	<-done

	_, closed := conn.snapshot()
	assert.True(t, closed)
}

func TestPublishOnNilHub(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.Publish(Event{Type: EventJobStatus}) })
}

func TestPublishDropsWhenFull(t *testing.T) {
	hub := NewHub()
	for i := 0; i < cap(hub.Broadcast)+5; i++ {
		hub.Publish(Event{Type: EventJobStatus, JobID: i})
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}

func TestAddAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.False(t, hub.Add(&Client{Conn: &fakeConn{}}))
	hub.Remove(&Client{Conn: &fakeConn{}})
}

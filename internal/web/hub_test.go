package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codestorm-dev/codestorm/internal/workspace"
)

func newTestClient(id string) *Client {
	return &Client{
		ID:   id,
		send: make(chan *WebMessage, 16),
	}
}

func recvMessage(t *testing.T, c *Client) *WebMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubBroadcastReachesRoomOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	carol := newTestClient("carol")

	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)

	hub.Join(alice, "team1")
	hub.Join(bob, "team1")
	hub.Join(carol, "team2")

	hub.Broadcast("team1", &WebMessage{Type: MessageTypeCommandResult, Output: "hi"})

	assert.Equal(t, "hi", recvMessage(t, alice).Output)
	assert.Equal(t, "hi", recvMessage(t, bob).Output)
	assertNoMessage(t, carol)
}

func TestHubJoinReplacesMembership(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newTestClient("roamer")
	hub.Register(client)

	hub.Join(client, "first")
	hub.Join(client, "second")

	hub.Broadcast("first", &WebMessage{Type: MessageTypeFileChange})
	assertNoMessage(t, client)

	hub.Broadcast("second", &WebMessage{Type: MessageTypeFileChange, Path: "x"})
	assert.Equal(t, MessageTypeFileChange, recvMessage(t, client).Type)

	assert.Equal(t, 0, hub.RoomCount("first"))
	assert.Equal(t, 1, hub.RoomCount("second"))
}

func TestHubNotifyChange(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newTestClient("watcher")
	hub.Register(client)
	hub.Join(client, "alice")

	hub.NotifyChange(workspace.ChangeEvent{
		WorkspaceID: "alice",
		Path:        "notes.txt",
		Kind:        workspace.ChangeUpdate,
		Timestamp:   time.Now(),
		Size:        12,
	})

	msg := recvMessage(t, client)
	assert.Equal(t, MessageTypeFileChange, msg.Type)
	assert.Equal(t, workspace.ChangeUpdate, msg.ChangeType)
	require.NotNil(t, msg.File)
	assert.Equal(t, "notes.txt", msg.File.Path)
	assert.Equal(t, int64(12), msg.File.Size)

	hub.NotifyChange(workspace.ChangeEvent{
		WorkspaceID: "alice",
		Path:        "docs/notes.txt",
		OldPath:     "notes.txt",
		Kind:        workspace.ChangeMove,
		Timestamp:   time.Now(),
	})

	msg = recvMessage(t, client)
	assert.Equal(t, workspace.ChangeMove, msg.ChangeType)
	require.NotNil(t, msg.File)
	assert.Equal(t, "docs/notes.txt", msg.File.Path)
	assert.Equal(t, "notes.txt", msg.File.OldPath)
}

func TestHubDropsStalledClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	stalled := &Client{ID: "stalled", send: make(chan *WebMessage)}
	hub.Register(stalled)
	hub.Join(stalled, "room")

	hub.Broadcast("room", &WebMessage{Type: MessageTypeFileChange})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomCount("room"))
}

func TestHubUnregisterLeavesRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newTestClient("leaver")
	hub.Register(client)
	hub.Join(client, "room")
	hub.Unregister(client)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomCount("room") == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.RoomCount("room"))

	// Channel is closed on unregister.
	_, open := <-client.send
	assert.False(t, open)
}

func TestSendAfterDropIsDiscarded(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newTestClient("late")
	hub.Register(client)
	hub.Join(client, "room")
	hub.Unregister(client)

	// Block until the hub has closed the queue.
	_, open := <-client.send
	require.False(t, open)

	// A response produced by an in-flight handler after the drop must be
	// discarded, never a send on the closed channel.
	client.sendResponse(&WebMessage{Type: MessageTypeError, Error: "late"})
	assert.False(t, client.trySend(&WebMessage{Type: MessageTypeError}))
}

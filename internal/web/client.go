package web

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/codestorm-dev/codestorm/internal/logger"
	"github.com/codestorm-dev/codestorm/internal/runner"
	"github.com/codestorm-dev/codestorm/internal/translate"
	"github.com/codestorm-dev/codestorm/internal/workspace"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Client represents a WebSocket client
type Client struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan *WebMessage
	store  *workspace.Store
	files  *workspace.Files
	runner *runner.Runner
	debug  bool

	// workspaceID is set once the client joins a workspace. Messages that
	// operate on a workspace are rejected until then.
	workspaceID string

	// sendMu guards send against the hub closing the channel while the read
	// pump is delivering a response on it.
	sendMu     sync.Mutex
	sendClosed bool
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, store *workspace.Store, files *workspace.Files, run *runner.Runner, debug bool) *Client {
	return &Client{
		ID:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan *WebMessage, 256),
		store:  store,
		files:  files,
		runner: run,
		debug:  debug,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error: %v", err)
			}
			break
		}

		var msg WebMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Error("Failed to unmarshal message: %v", err)
			c.sendError("invalid message")
			continue
		}

		if c.debug {
			logger.Debug("WebSocket received: %s", string(message))
		}

		if err := c.handleMessage(&msg); err != nil {
			logger.Error("Failed to handle message: %v", err)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal message: %v", err)
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Error("Failed to write message: %v", err)
				return
			}

			if c.debug {
				logger.Debug("WebSocket sent: %s", string(data))
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(msg *WebMessage) error {
	switch msg.Type {
	case MessageTypeJoinWorkspace:
		return c.handleJoinWorkspace(msg)

	case MessageTypeBashCommand:
		wsID, ok := c.workspaceFor(msg)
		if !ok {
			return nil
		}
		return c.runCommand(wsID, msg.Command, msg.Directory, msg.TerminalID)

	case MessageTypeNaturalCommand:
		wsID, ok := c.workspaceFor(msg)
		if !ok {
			return nil
		}
		command, ok := translate.ToShell(msg.Text)
		if !ok {
			c.sendResponse(&WebMessage{
				Type:       MessageTypeCommandResult,
				TerminalID: msg.TerminalID,
				Success:    boolPtr(false),
				Stderr:     fmt.Sprintf("could not understand: %q", msg.Text),
				ExitCode:   intPtr(-1),
				Timestamp:  time.Now(),
			})
			return nil
		}
		return c.runCommand(wsID, command, msg.Directory, msg.TerminalID)

	case MessageTypeListDirectory:
		wsID, ok := c.workspaceFor(msg)
		if !ok {
			return nil
		}
		entries, err := c.files.List(wsID, msg.Path)
		if err != nil {
			c.sendError(err.Error())
			return nil
		}
		c.sendResponse(&WebMessage{
			Type:      MessageTypeDirectoryContents,
			Success:   boolPtr(true),
			Path:      msg.Path,
			Contents:  entries,
			Timestamp: time.Now(),
		})

	default:
		logger.Warn("Unknown message type: %s", msg.Type)
		c.sendError(fmt.Sprintf("unknown message type: %s", msg.Type))
	}

	return nil
}

// handleJoinWorkspace subscribes the client to a user's workspace room,
// creating the workspace on first contact.
func (c *Client) handleJoinWorkspace(msg *WebMessage) error {
	userID := msg.UserID
	if userID == "" {
		userID = msg.WorkspaceID
	}

	ws, err := c.store.GetOrCreate(userID)
	if err != nil {
		c.sendError(err.Error())
		return err
	}

	c.workspaceID = ws.ID
	c.hub.Join(c, ws.ID)

	c.sendResponse(&WebMessage{
		Type:        MessageTypeWorkspaceJoined,
		WorkspaceID: ws.ID,
		Timestamp:   time.Now(),
	})
	return nil
}

// workspaceFor picks the workspace a message acts on: an explicit user_id on
// the message wins, otherwise the joined workspace. Reports an error to the
// client and returns false when neither is available.
func (c *Client) workspaceFor(msg *WebMessage) (string, bool) {
	if msg.UserID != "" {
		ws, err := c.store.GetOrCreate(msg.UserID)
		if err != nil {
			c.sendError(err.Error())
			return "", false
		}
		return ws.ID, true
	}
	if c.workspaceID == "" {
		c.sendError("join a workspace first")
		return "", false
	}
	return c.workspaceID, true
}

// runCommand executes a shell command inside a workspace and reports the
// result back to the sender only. Mutating commands additionally trigger a
// coarse file_change broadcast to the room so peers refresh; the watcher
// follows up with per-file events.
func (c *Client) runCommand(workspaceID, command, directory, terminalID string) error {
	_, dir, err := c.store.Resolve(workspaceID, directory)
	if err != nil {
		c.sendError(err.Error())
		return nil
	}

	result := c.runner.Run(context.Background(), command, dir, 0)

	output := result.Stdout
	if output == "" {
		output = result.Stderr
	}

	c.sendResponse(&WebMessage{
		Type:       MessageTypeCommandResult,
		Command:    result.Command,
		TerminalID: terminalID,
		Success:    boolPtr(result.Success),
		Output:     output,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   intPtr(result.ExitCode),
		Timestamp:  time.Now(),
	})

	if result.Success && runner.IsMutating(command) {
		c.hub.Broadcast(workspaceID, &WebMessage{
			Type:        MessageTypeFileChange,
			WorkspaceID: workspaceID,
			ChangeType:  "command",
			Command:     command,
			Timestamp:   time.Now(),
		})
	}
	return nil
}

// sendResponse sends a response message to the client
func (c *Client) sendResponse(msg *WebMessage) {
	if !c.trySend(msg) {
		logger.Warn("Client send channel full or closed, dropping message")
	}
}

// trySend queues a message without blocking. Returns false when the queue is
// full or already closed.
func (c *Client) trySend(msg *WebMessage) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend closes the queue exactly once. Only the hub calls this, when it
// drops the client.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

func (c *Client) sendError(text string) {
	c.sendResponse(&WebMessage{
		Type:      MessageTypeError,
		Error:     text,
		Timestamp: time.Now(),
	})
}

package ws

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrClientGone is returned when sending to a client whose connection is
// closed or whose outbound queue overflowed.
var ErrClientGone = errors.New("client connection is gone")

// sendQueueSize bounds the per-client outbound queue. A client that falls
// this far behind is dropped instead of stalling the senders behind it.
const sendQueueSize = 64

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Client represents a connected editor session.
type Client struct {
	ID     string
	UserID string
	conn   Conn

	mu    sync.Mutex
	docID string // Currently subscribed document

	out       chan Message
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewClient creates a new client wrapper and starts its writer.
func NewClient(id, userID string, conn Conn) *Client {
	c := &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
		out:    make(chan Message, sendQueueSize),
		done:   make(chan struct{}),
	}

	go c.writeLoop()

	return c
}

// Send enqueues a message for delivery. A single writer goroutine drains
// the queue, so messages reach the wire in the order Send was called, even
// when broadcasters enqueue from different goroutines.
func (c *Client) Send(msg Message) error {
	select {
	case <-c.done:
		return ErrClientGone
	default:
	}

	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return ErrClientGone
	default:
		// Queue full: drop the connection rather than block or reorder.
		_ = c.Close()

		return ErrClientGone
	}
}

// writeLoop is the sole writer on the connection.
func (c *Client) writeLoop() {
	for {
		select {
		case msg := <-c.out:
			if err := c.conn.WriteJSON(msg); err != nil {
				_ = c.Close()

				return
			}
		case <-c.done:
			return
		}
	}
}

// SendError sends an error message to the client.
func (c *Client) SendError(code, message string) error {
	return c.Send(Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Receive reads a message from the client and decodes its payload into the
// concrete type for the client-to-server message kinds.
func (c *Client) Receive() (Message, error) {
	var raw struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := c.conn.ReadJSON(&raw); err != nil {
		return Message{}, err
	}

	msg := Message{Type: raw.Type}

	switch raw.Type {
	case MessageTypeOperation:
		var payload OperationPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return Message{}, err
		}

		msg.Payload = payload
	case MessageTypeCursor:
		var payload CursorPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return Message{}, err
		}

		msg.Payload = payload
	case MessageTypeStatus:
		var payload StatusPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return Message{}, err
		}

		msg.Payload = payload
	case MessageTypeSync:
		var payload SyncPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return Message{}, err
		}

		msg.Payload = payload
	case MessageTypeAck, MessageTypeDoc, MessageTypeAuthorship, MessageTypeUsers,
		MessageTypeUserStatus, MessageTypePermission, MessageTypeVersion, MessageTypeError:
		// Server-to-client messages - keep raw payload
		msg.Payload = raw.Payload
	}

	return msg, nil
}

// Close stops the writer and closes the client connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}

// DocID returns the document the client is subscribed to.
func (c *Client) DocID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.docID
}

// SetDocID sets the document the client is subscribed to.
func (c *Client) SetDocID(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.docID = docID
}

package websocket

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"docqa-be/pkg/embedding"
	"docqa-be/pkg/llm"

	svc "docqa-be/internal/service"
	"docqa-be/pkg/rag/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is a middleman between one websocket connection and its session.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// SessionID associated with this connection
	SessionID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	// closed is set under Hub.mu when the hub shuts Send; deliveries
	// check it under the same mutex.
	closed bool
}

// readPump reads question frames and runs them through the answer pipeline
// one at a time, so answers go out in submission order.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			break
		}

		question := strings.TrimSpace(string(data))
		if question == "" {
			continue
		}
		c.handleQuestion(question)
	}
}

func (c *Client) handleQuestion(question string) {
	answer, err := c.Hub.chatService.Answer(context.Background(), c.SessionID, question)
	if err != nil {
		// A session closed mid-generation drops the answer without a
		// frame; the user tore the session down, nothing to report.
		if errors.Is(err, svc.ErrAnswerDiscarded) {
			return
		}
		c.deliver(encodeFrame(FrameError, userFacingError(err)))
		return
	}

	// The session may have closed while we were generating; in that case
	// the answer is discarded, not delivered.
	if sess, gerr := c.Hub.sessions.Get(c.SessionID); gerr != nil || sess.State() != session.StateReady {
		return
	}
	c.deliver(encodeFrame(FrameAnswer, answer))
}

func (c *Client) deliver(data []byte) {
	c.Hub.deliverTo(c, data)
}

// userFacingError converts pipeline errors into the single explanatory
// message the channel shows for a failed query.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrNotReady):
		return "Error: No document is ready for this session. Please upload a document first."
	case errors.Is(err, session.ErrBusy):
		return "I'm still working on your previous question. Please wait for the answer."
	case errors.Is(err, embedding.ErrUnavailable), errors.Is(err, llm.ErrUnavailable), errors.Is(err, svc.ErrGenerationFailed):
		return "Error getting AI response: " + err.Error() + ". Please try again."
	default:
		return "An unexpected error occurred: " + err.Error()
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

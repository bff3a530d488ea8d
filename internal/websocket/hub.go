package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa-be/internal/pkg/logger"
	"docqa-be/internal/service"
	"docqa-be/pkg/rag/session"
)

// Frame is one outbound channel payload. Inbound frames are raw question
// text; outbound frames are tagged.
type Frame struct {
	Type      string    `json:"type"` // "ai-summary", "ai-answer" or "error"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	FrameSummary = "ai-summary"
	FrameAnswer  = "ai-answer"
	FrameError   = "error"
)

func encodeFrame(frameType, content string) []byte {
	data, _ := json.Marshal(Frame{
		Type:      frameType,
		Content:   content,
		Timestamp: time.Now(),
	})
	return data
}

// Hub owns the session -> connection mapping: one duplex channel per
// session. Frames produced while a session has no connection (the summary
// usually finishes before the client attaches) are buffered and flushed on
// register.
type Hub struct {
	clients map[uuid.UUID]*Client
	pending map[uuid.UUID][][]byte

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	sessions    *session.Manager
	chatService service.IChatService
	logger      logger.ILogger
}

var _ service.ChannelNotifier = (*Hub)(nil)

func NewHub(sessions *session.Manager, chatService service.IChatService, log logger.ILogger) *Hub {
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		pending:     make(map[uuid.UUID][][]byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		sessions:    sessions,
		chatService: chatService,
		logger:      log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.SessionID]; ok {
				// Reconnect: drop the stale connection.
				old.closed = true
				close(old.Send)
			}
			h.clients[client.SessionID] = client
			buffered := h.pending[client.SessionID]
			delete(h.pending, client.SessionID)
			h.mu.Unlock()

			h.sessions.MarkAttached(client.SessionID)
			h.logger.Info("Hub", "Channel attached", map[string]interface{}{"session_id": client.SessionID})

			// Frames buffered while detached already carry the summary, so
			// the stored copy is replayed only when there is nothing to
			// flush. Either way the summary goes out exactly once.
			if len(buffered) == 0 {
				h.replaySummary(client)
			}
			for _, data := range buffered {
				h.deliverTo(client, data)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			current, ok := h.clients[client.SessionID]
			if ok && current == client {
				delete(h.clients, client.SessionID)
				client.closed = true
				close(client.Send)
			}
			h.mu.Unlock()

			if ok && current == client {
				h.sessions.MarkDetached(client.SessionID)
				h.logger.Info("Hub", "Channel detached", map[string]interface{}{"session_id": client.SessionID})
			}
		}
	}
}

func (h *Hub) replaySummary(client *Client) {
	sess, err := h.sessions.Get(client.SessionID)
	if err != nil || sess.State() != session.StateReady {
		return
	}
	summary := sess.Summary()
	if summary == "" {
		return
	}
	h.deliverTo(client, encodeFrame(FrameSummary, "Hello! I've processed your document. Here is a summary:"))
	h.deliverTo(client, encodeFrame(FrameSummary, summary))
}

// SendSummary delivers the auto-summary to the session's channel.
func (h *Hub) SendSummary(sessionId uuid.UUID, text string) {
	h.send(sessionId, encodeFrame(FrameSummary, "Hello! I've processed your document. Here is a summary:"))
	h.send(sessionId, encodeFrame(FrameSummary, text))
}

// SendError delivers a single explanatory failure message.
func (h *Hub) SendError(sessionId uuid.UUID, text string) {
	h.send(sessionId, encodeFrame(FrameError, text))
}

func (h *Hub) send(sessionId uuid.UUID, data []byte) {
	// The lock is held across the send so the channel cannot be closed
	// under us by a concurrent register/unregister.
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[sessionId]
	if !ok {
		h.pending[sessionId] = append(h.pending[sessionId], data)
		return
	}

	select {
	case client.Send <- data:
	default:
		h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{
			"session_id": sessionId,
		})
	}
}

// deliverTo hands a frame to a specific client. The closed flag is checked
// under the hub mutex, the same lock that guards close(Send), so a late
// delivery can never hit a closed channel.
func (h *Hub) deliverTo(client *Client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed {
		return
	}
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{
			"session_id": client.SessionID,
		})
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"docqa-be/internal/dto"
	"docqa-be/internal/pkg/logger"
	"docqa-be/pkg/embedding"
	"docqa-be/pkg/rag/chunker"
	"docqa-be/pkg/rag/index"
	"docqa-be/pkg/rag/session"
)

// ErrIngestionFailed marks a failed document build. Fatal to the session:
// it transitions to Closed and the user has to start over with a new upload.
var ErrIngestionFailed = errors.New("ingestion failed")

// ChannelNotifier pushes outbound frames to a session's real-time channel.
// Implemented by the websocket hub; messages for unconnected sessions are
// buffered there until the channel attaches.
type ChannelNotifier interface {
	SendSummary(sessionId uuid.UUID, text string)
	SendError(sessionId uuid.UUID, text string)
}

// IIngestionService accepts a document for a session and builds its index
// off the request path via the ingest topic.
type IIngestionService interface {
	BeginIngestion(ctx context.Context, sessionId uuid.UUID, text string) error
	Consume(ctx context.Context) error
}

type ingestionService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	sessions       *session.Manager
	splitter       *chunker.Splitter
	embedder       embedding.Provider
	chatService    IChatService
	notifier       ChannelNotifier
	requestTimeout time.Duration
	logger         logger.ILogger
}

func NewIngestionService(
	pubSub *gochannel.GoChannel,
	topicName string,
	sessions *session.Manager,
	splitter *chunker.Splitter,
	embedder embedding.Provider,
	chatService IChatService,
	notifier ChannelNotifier,
	requestTimeout time.Duration,
	log logger.ILogger,
) IIngestionService {
	return &ingestionService{
		pubSub:         pubSub,
		topicName:      topicName,
		sessions:       sessions,
		splitter:       splitter,
		embedder:       embedder,
		chatService:    chatService,
		notifier:       notifier,
		requestTimeout: requestTimeout,
		logger:         log,
	}
}

// BeginIngestion transitions the session Idle -> Indexing and queues the
// build. The HTTP edge returns immediately; clients poll the status
// endpoint or wait for the summary frame.
func (is *ingestionService) BeginIngestion(ctx context.Context, sessionId uuid.UUID, text string) error {
	sess, err := is.sessions.Get(sessionId)
	if err != nil {
		return err
	}

	if err := sess.BeginIngestion(); err != nil {
		return err
	}

	payload, err := json.Marshal(dto.IngestDocumentMessage{
		SessionId: sessionId,
		Text:      text,
	})
	if err != nil {
		return err
	}

	return is.pubSub.Publish(is.topicName, message.NewMessage(watermill.NewUUID(), payload))
}

func (is *ingestionService) Consume(ctx context.Context) error {
	messages, err := is.pubSub.Subscribe(ctx, is.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			is.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (is *ingestionService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		is.logger.Error("IngestionService", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	sess, err := is.sessions.Get(payload.SessionId)
	if err != nil {
		is.logger.Warn("IngestionService", "Session gone before ingestion started", map[string]interface{}{
			"session_id": payload.SessionId,
		})
		msg.Ack()
		return
	}

	if err := is.build(ctx, sess, payload.Text); err != nil {
		is.fail(sess, err)
	}

	// No Nack path: a failed build closes the session, so a redelivery
	// could never succeed.
	msg.Ack()
}

func (is *ingestionService) build(ctx context.Context, sess *session.Session, text string) error {
	chunks, err := is.splitter.Split(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIngestionFailed, err)
	}

	is.logger.Info("IngestionService", "Document split", map[string]interface{}{
		"session_id": sess.ID,
		"chunks":     len(chunks),
	})

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embedCtx, cancel := context.WithTimeout(ctx, is.requestTimeout)
	vectors, err := is.embedder.EmbedBatch(embedCtx, texts)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: embed chunks: %v", ErrIngestionFailed, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", ErrIngestionFailed, len(vectors), len(chunks))
	}

	idx, err := index.New(len(vectors[0]))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIngestionFailed, err)
	}
	for i, c := range chunks {
		if err := idx.Insert(c, vectors[i]); err != nil {
			return fmt.Errorf("%w: insert chunk %d: %v", ErrIngestionFailed, i, err)
		}
	}
	idx.Seal()

	if err := sess.CompleteIngestion(idx); err != nil {
		return fmt.Errorf("%w: %v", ErrIngestionFailed, err)
	}

	is.logger.Info("IngestionService", "Session ready", map[string]interface{}{
		"session_id": sess.ID,
		"chunks":     len(chunks),
	})

	// One-shot auto-summary, delivered as the first channel message. A
	// summary failure is not fatal: the session stays Ready for queries.
	summary, err := is.chatService.Summarize(ctx, sess)
	if err != nil {
		is.logger.Warn("IngestionService", "Summary generation failed", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		is.notifier.SendError(sess.ID, "I processed your document, but generating the summary failed. You can still ask questions.")
		return nil
	}

	sess.SetSummary(summary)
	is.notifier.SendSummary(sess.ID, summary)
	return nil
}

func (is *ingestionService) fail(sess *session.Session, cause error) {
	is.logger.Error("IngestionService", "Ingestion failed, closing session", map[string]interface{}{
		"session_id": sess.ID,
		"error":      cause.Error(),
	})
	is.notifier.SendError(sess.ID, "Error processing document. Please start over with a new upload.")
	is.sessions.Close(sess.ID)
}

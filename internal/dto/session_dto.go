package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

// UploadDocumentRequest carries the extracted plain text of an uploaded
// document. The upload collaborator is responsible for file-type and size
// validation and for text extraction.
type UploadDocumentRequest struct {
	Text string `json:"text" validate:"required"`
}

type UploadDocumentResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	State     string    `json:"state"`
}

type SessionStatusResponse struct {
	Id        uuid.UUID `json:"id"`
	State     string    `json:"state"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
}

type TurnResponse struct {
	Seq       int       `json:"seq"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestDocumentMessage is the payload published to the ingestion topic.
type IngestDocumentMessage struct {
	SessionId uuid.UUID `json:"session_id"`
	Text      string    `json:"text"`
}

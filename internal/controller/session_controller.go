package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docqa-be/internal/dto"
	"docqa-be/internal/pkg/serverutils"
	"docqa-be/internal/service"
	"docqa-be/pkg/rag/session"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	UploadDocument(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessions  *session.Manager
	ingestion service.IIngestionService
	chat      service.IChatService
}

func NewSessionController(
	sessions *session.Manager,
	ingestion service.IIngestionService,
	chat service.IChatService,
) ISessionController {
	return &sessionController{
		sessions:  sessions,
		ingestion: ingestion,
		chat:      chat,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Post("", c.Create)
	h.Post(":id/document", c.UploadDocument)
	h.Get(":id", c.Status)
	h.Get(":id/history", c.History)
	h.Delete(":id", c.Delete)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	sess := c.sessions.Create()

	return ctx.JSON(serverutils.SuccessResponse("Success create session", dto.CreateSessionResponse{
		Id: sess.ID,
	}))
}

// UploadDocument receives the extracted document text and queues the index
// build. The upload collaborator validates file type/size and extracts the
// text before calling in.
func (c *sessionController) UploadDocument(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	var req dto.UploadDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.ingestion.BeginIngestion(ctx.Context(), id, req.Text); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Document accepted for processing", dto.UploadDocumentResponse{
		SessionId: id,
		State:     string(session.StateIndexing),
	}))
}

func (c *sessionController) Status(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	sess, err := c.sessions.Get(id)
	if err != nil {
		return err
	}

	turns := 0
	if conv := sess.Conversation(); conv != nil {
		turns = conv.Len()
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session status", dto.SessionStatusResponse{
		Id:        sess.ID,
		State:     string(sess.State()),
		Turns:     turns,
		CreatedAt: sess.CreatedAt,
	}))
}

// History returns the full transcript, beyond the prompt window.
func (c *sessionController) History(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	turns, err := c.chat.History(id)
	if err != nil {
		return err
	}

	resp := make([]dto.TurnResponse, 0, len(turns))
	for _, t := range turns {
		resp = append(resp, dto.TurnResponse{
			Seq:       t.Seq,
			Question:  t.Question,
			Answer:    t.Answer,
			CreatedAt: t.CreatedAt,
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", resp))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	c.sessions.Close(id)

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

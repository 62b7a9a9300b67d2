package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/middleware"
	"github.com/skillswap/skillswap-backend/internal/service"
)

// MessageHandler handles message HTTP requests
type MessageHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(conversations service.ConversationService, messages service.MessageService) *MessageHandler {
	return &MessageHandler{conversations: conversations, messages: messages}
}

// authorize resolves the conversation for the viewer and writes the error response on failure
func (h *MessageHandler) authorize(c *gin.Context) (*domain.Conversation, bool) {
	conv, err := h.conversations.GetConversation(c.Request.Context(), middleware.Viewer(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Could not load conversation")
		return nil, false
	}
	return conv, true
}

// ListMessages handles GET /conversations/:id/messages
// @Summary Conversation history in ascending order
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param since query string false "RFC3339 timestamp; only newer messages"
// @Success 200 {object} common.APIResponse{data=[]domain.Message}
// @Failure 404 {object} common.APIResponse
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	conv, ok := h.authorize(c)
	if !ok {
		return
	}

	var (
		messages []*domain.Message
		err      error
	)
	if raw := c.Query("since"); raw != "" {
		since, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "since must be an RFC3339 timestamp", parseErr)
			return
		}
		messages, err = h.messages.GetConversationMessagesSince(c.Request.Context(), conv.ID, since.UTC())
	} else {
		messages, err = h.messages.GetConversationMessages(c.Request.Context(), conv.ID)
	}
	if err != nil {
		respondError(c, err, "Could not load messages")
		return
	}

	common.SuccessWithMeta(c, messages, &common.Meta{Total: int64(len(messages))})
}

// SendMessage handles POST /conversations/:id/messages
// @Summary Send a message, optionally as a reply
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param request body domain.SendMessageRequest true "Message"
// @Success 201 {object} common.APIResponse{data=domain.Message}
// @Failure 400 {object} common.APIResponse
// @Failure 429 {object} common.APIResponse
// @Router /conversations/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	conv, ok := h.authorize(c)
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), middleware.Viewer(c), conv.ID, req.Content, req.ReplyTo)
	if err != nil {
		respondError(c, err, "Message could not be sent")
		return
	}

	common.Created(c, msg)
}

// MarkRead handles POST /conversations/:id/read
// @Summary Mark the counterpart's messages as read
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} common.APIResponse
// @Router /conversations/{id}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	conv, ok := h.authorize(c)
	if !ok {
		return
	}

	n, err := h.messages.MarkMessagesAsRead(c.Request.Context(), middleware.Viewer(c), conv.ID)
	if err != nil {
		respondError(c, err, "Could not mark messages as read")
		return
	}

	common.Success(c, gin.H{"marked": n})
}

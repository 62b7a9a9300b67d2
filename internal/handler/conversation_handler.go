package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/middleware"
	"github.com/skillswap/skillswap-backend/internal/service"
)

// ConversationHandler handles conversation directory HTTP requests
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// StartConversation handles POST /conversations
// @Summary Get or create the conversation with another user
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.StartConversationRequest true "Counterpart"
// @Success 200 {object} common.APIResponse{data=domain.Conversation}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Router /conversations [post]
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req domain.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	conv, err := h.service.GetOrCreateConversation(c.Request.Context(), middleware.Viewer(c), req.OtherUserID)
	if err != nil {
		respondError(c, err, "Could not start conversation")
		return
	}

	common.Success(c, conv)
}

// ListConversations handles GET /conversations
// @Summary List the viewer's conversations, most recent first
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} common.APIResponse{data=[]domain.ConversationSummary}
// @Failure 401 {object} common.APIResponse
// @Router /conversations [get]
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	summaries, err := h.service.GetUserConversations(c.Request.Context(), middleware.Viewer(c))
	if err != nil {
		respondError(c, err, "Could not load conversations")
		return
	}

	common.SuccessWithMeta(c, summaries, &common.Meta{Total: int64(len(summaries))})
}

// GetConversation handles GET /conversations/:id
// @Summary Get one conversation the viewer participates in
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} common.APIResponse{data=domain.Conversation}
// @Failure 404 {object} common.APIResponse
// @Router /conversations/{id} [get]
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.service.GetConversation(c.Request.Context(), middleware.Viewer(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Could not load conversation")
		return
	}

	common.Success(c, conv)
}

// respondError writes the envelope for a service error; 5xx details stay in the logs
func respondError(c *gin.Context, err error, message string) {
	common.ErrorResponse(c, common.StatusFor(err), message, err)
}

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/skillswap/skillswap-backend/internal/config"
	"github.com/skillswap/skillswap-backend/internal/handler"
	"github.com/skillswap/skillswap-backend/internal/middleware"
	"github.com/skillswap/skillswap-backend/pkg/jwt"
)

// Setup configures the messaging API routes.
// redisClient may be nil; the per-user send limit is then skipped.
func Setup(
	router *gin.Engine,
	conversationHandler *handler.ConversationHandler,
	messageHandler *handler.MessageHandler,
	wsHandler *handler.WSHandler,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	auth := middleware.JWTAuth(jwtManager)

	api := router.Group("/api/v1", auth, middleware.Timeout(cfg.Messaging.RequestTimeout()))

	conversations := api.Group("/conversations")
	{
		conversations.POST("", conversationHandler.StartConversation)
		conversations.GET("", conversationHandler.ListConversations)
		conversations.GET("/:id", conversationHandler.GetConversation)

		conversations.GET("/:id/messages", messageHandler.ListMessages)
		conversations.POST("/:id/messages",
			middleware.RateLimitPerUser(redisClient, cfg.Messaging.SendPerMinute),
			messageHandler.SendMessage)
		conversations.POST("/:id/read", messageHandler.MarkRead)
	}

	// The socket outlives any request timeout
	router.GET("/ws/messages", auth, wsHandler.Connect)
}

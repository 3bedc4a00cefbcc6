package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"docuchat/internal/ai"
	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/cache"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS())

	sessionRepo := repository.NewSessionRepository(app.DB)
	interactionRepo := repository.NewInteractionRepository(app.DB)

	var historyCache appsvc.HistoryCache
	if app.Redis != nil {
		historyCache = cache.NewHistoryCache(
			app.Redis,
			time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	geminiClient := ai.NewGeminiClient(time.Duration(app.Config.Gemini.TimeoutSeconds) * time.Second)
	chatService := appsvc.NewChatService(
		sessionRepo,
		interactionRepo,
		app.Files,
		geminiClient,
		ai.Config{
			BaseURL: app.Config.Gemini.BaseURL,
			APIKey:  app.Config.Gemini.APIKey,
			Model:   app.Config.Gemini.Model,
		},
		historyCache,
	)

	chatHandler := handler.NewChatHandler(chatService)
	pdfHandler := handler.NewPDFHandler(chatService)
	healthHandler := handler.NewHealthHandler(app)

	router.GET("/", healthHandler.Root)
	router.GET("/healthz", healthHandler.Check)

	router.POST("/upload_pdf", chatHandler.UploadPDF)
	router.POST("/ask_question", chatHandler.AskQuestion)
	router.GET("/get_pdf/:pdf_id", pdfHandler.GetPDF)
	router.GET("/chat_history/:chat_id", chatHandler.GetChatHistory)
	router.GET("/all_chats", chatHandler.GetAllChats)
	router.DELETE("/delete_chat/:chat_id", chatHandler.DeleteChat)

	return router
}

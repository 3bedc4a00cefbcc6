package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/model"
	"docuchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// UploadPDF accepts one or more files under the "files" field and creates a
// chat session for them.
func (h *ChatHandler) UploadPDF(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fileHeaders := form.File["files"]
	var files []app.UploadedFile
	for _, header := range fileHeaders {
		opened, openErr := header.Open()
		if openErr != nil {
			response.Error(c, http.StatusBadRequest, "read uploaded file failed")
			return
		}
		content, readErr := io.ReadAll(opened)
		opened.Close()
		if readErr != nil {
			response.Error(c, http.StatusBadRequest, "read uploaded file failed")
			return
		}
		files = append(files, app.UploadedFile{Filename: header.Filename, Content: content})
	}

	result, err := h.chatService.CreateSession(c.Request.Context(), files)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoFiles), errors.Is(err, app.ErrEmptyFile):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrProviderNotConfigured):
			response.Error(c, http.StatusInternalServerError, "model provider not configured, set GEMINI_API_KEY")
		default:
			response.Error(c, http.StatusInternalServerError, "error processing PDF: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chat_id": result.SessionID,
		"pdf_id":  result.DocumentID,
		"message": fmt.Sprintf("Successfully uploaded %d file(s) (%.2f MB)", len(result.Filenames), result.TotalSizeMB),
		"details": gin.H{
			"filenames":              result.Filenames,
			"total_size_mb":          result.TotalSizeMB,
			"provider_file_uploaded": true,
		},
	})
}

type askQuestionRequest struct {
	ChatID   string `form:"chat_id" json:"chat_id" binding:"required"`
	Question string `form:"question" json:"question" binding:"required"`
}

func (h *ChatHandler) AskQuestion(c *gin.Context) {
	var req askQuestionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "chat_id and question are required")
		return
	}

	result, err := h.chatService.AskQuestion(c.Request.Context(), req.ChatID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "chat session not found, please upload a PDF first")
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, "PDF file not found on disk")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "question must not be empty")
		case errors.Is(err, app.ErrProviderNotConfigured):
			response.Error(c, http.StatusInternalServerError, "model provider not configured, set GEMINI_API_KEY")
		default:
			response.Error(c, http.StatusInternalServerError, "error processing question: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"chat_id":     result.SessionID,
		"message_id":  result.MessageID,
		"question":    result.Question,
		"answer":      result.Answer,
		"degraded":    result.Degraded,
		"token_usage": result.Usage,
		"metadata": gin.H{
			"pdf_filename":           result.Filenames,
			"pdf_id":                 result.DocumentID,
			"file_size_mb":           result.FileSizeMB,
			"days_since_last_access": result.DaysSinceLastAccess,
			"context_messages":       result.ContextMessages,
		},
	})
}

type interactionView struct {
	MessageID  string           `json:"message_id"`
	Question   string           `json:"question"`
	Answer     string           `json:"answer"`
	TokenUsage model.TokenUsage `json:"token_usage"`
	AskedAt    string           `json:"asked_at"`
}

func (h *ChatHandler) GetChatHistory(c *gin.Context) {
	chatID := c.Param("chat_id")

	detail, err := h.chatService.SessionDetail(c.Request.Context(), chatID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "chat not found")
		default:
			response.Error(c, http.StatusInternalServerError, "error retrieving history: "+err.Error())
		}
		return
	}

	interactions := make([]interactionView, 0, len(detail.Interactions))
	for _, item := range detail.Interactions {
		interactions = append(interactions, interactionView{
			MessageID:  item.MessageID,
			Question:   item.Question,
			Answer:     item.Answer,
			TokenUsage: item.Usage(),
			AskedAt:    item.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_id":                detail.Session.ID,
		"pdf_id":                 detail.Session.DocumentID,
		"pdf_filename":           detail.Session.Filenames,
		"file_size_mb":           detail.Session.FileSizeMB,
		"created_at":             detail.Session.CreatedAt,
		"last_accessed":          detail.Session.LastAccessed,
		"days_since_last_access": detail.DaysSinceLastAccess,
		"total_interactions":     len(interactions),
		"interactions":           interactions,
	})
}

func (h *ChatHandler) GetAllChats(c *gin.Context) {
	summaries, err := h.chatService.ListSessions()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "error retrieving chats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_chats": len(summaries),
		"chats":       summaries,
	})
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID := c.Param("chat_id")

	result, err := h.chatService.DeleteSession(c.Request.Context(), chatID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "chat not found")
		default:
			response.Error(c, http.StatusInternalServerError, "error deleting chat: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf("Chat %s and associated files deleted successfully", result.SessionID),
		"warnings": result.Warnings,
	})
}

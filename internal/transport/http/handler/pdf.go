package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/response"
)

type PDFHandler struct {
	chatService *app.ChatService
}

func NewPDFHandler(chatService *app.ChatService) *PDFHandler {
	return &PDFHandler{chatService: chatService}
}

// GetPDF streams back the first stored file whose name carries the
// requested document id prefix.
func (h *PDFHandler) GetPDF(c *gin.Context) {
	pdfID := c.Param("pdf_id")

	path, err := h.chatService.DocumentPath(pdfID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, "PDF not found")
		default:
			response.Error(c, http.StatusInternalServerError, "error retrieving PDF: "+err.Error())
		}
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.File(path)
}

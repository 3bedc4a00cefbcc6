package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/ai"
	"docuchat/internal/app"
	"docuchat/internal/model"
	sqliteClient "docuchat/internal/platform/sqlite"
	"docuchat/internal/repository"
	"docuchat/internal/storage"
)

type stubModelClient struct{}

func (stubModelClient) UploadFile(_ context.Context, _ ai.Config, path, mimeType string) (*ai.FileHandle, error) {
	return &ai.FileHandle{
		Name:     "files/stub",
		URI:      "https://example.com/files/stub",
		MIMEType: mimeType,
	}, nil
}

func (stubModelClient) GenerateContent(_ context.Context, _ ai.Config, _ []ai.Content) (*ai.GenerateResult, error) {
	return &ai.GenerateResult{
		Text:  "Stub answer.",
		Usage: ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := sqliteClient.New(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}, &model.Interaction{}))

	files, err := storage.New(filepath.Join(dir, "pdfs"))
	require.NoError(t, err)

	chatService := app.NewChatService(
		repository.NewSessionRepository(db),
		repository.NewInteractionRepository(db),
		files,
		stubModelClient{},
		ai.Config{BaseURL: "https://example.com", APIKey: "test-key", Model: "test-model"},
		nil,
	)

	chatHandler := NewChatHandler(chatService)
	pdfHandler := NewPDFHandler(chatService)

	router := gin.New()
	router.POST("/upload_pdf", chatHandler.UploadPDF)
	router.POST("/ask_question", chatHandler.AskQuestion)
	router.GET("/get_pdf/:pdf_id", pdfHandler.GetPDF)
	router.GET("/chat_history/:chat_id", chatHandler.GetChatHistory)
	router.GET("/all_chats", chatHandler.GetAllChats)
	router.DELETE("/delete_chat/:chat_id", chatHandler.DeleteChat)
	return router
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func uploadPDF(t *testing.T, router *gin.Engine, filename string, content []byte) map[string]interface{} {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload_pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return parsed
}

func TestUploadAskHistoryDeleteFlow(t *testing.T) {
	router := newTestRouter(t)

	content := make([]byte, 2*1024*1024)
	copy(content, []byte("%PDF-1.4"))
	uploaded := uploadPDF(t, router, "report.pdf", content)

	assert.Equal(t, true, uploaded["success"])
	chatID := uploaded["chat_id"].(string)
	pdfID := uploaded["pdf_id"].(string)
	require.NotEmpty(t, chatID)
	details := uploaded["details"].(map[string]interface{})
	assert.Equal(t, 2.0, details["total_size_mb"])

	// Ask a question with form encoding, like the original clients do.
	form := url.Values{"chat_id": {chatID}, "question": {"What is the summary?"}}
	req := httptest.NewRequest(http.MethodPost, "/ask_question", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var asked map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asked))
	assert.Equal(t, true, asked["success"])
	assert.NotEmpty(t, asked["message_id"])
	assert.Contains(t, asked["answer"].(string), "Stub answer.")
	usage := asked["token_usage"].(map[string]interface{})
	assert.Equal(t, 15.0, usage["total_tokens"])
	metadata := asked["metadata"].(map[string]interface{})
	assert.Equal(t, 0.0, metadata["days_since_last_access"])

	// Document streams back byte for byte.
	req = httptest.NewRequest(http.MethodGet, "/get_pdf/"+pdfID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, content, rec.Body.Bytes())

	// History lists the interaction newest first.
	req = httptest.NewRequest(http.MethodGet, "/chat_history/"+chatID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var history map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, 1.0, history["total_interactions"])

	// Delete removes rows and files.
	req = httptest.NewRequest(http.MethodDelete, "/delete_chat/"+chatID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/chat_history/"+chatID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/get_pdf/"+pdfID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskQuestionUnknownChat(t *testing.T) {
	router := newTestRouter(t)

	form := url.Values{"chat_id": {"chat_missing"}, "question": {"hello?"}}
	req := httptest.NewRequest(http.MethodPost, "/ask_question", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, false, parsed["success"])
}

func TestAskQuestionMissingFields(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ask_question", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadWithoutFiles(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_pdf", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteUnknownChat(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/delete_chat/chat_missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllChatsEmpty(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/all_chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, 0.0, parsed["total_chats"])
}

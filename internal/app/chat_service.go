package app

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/repository"
	"docuchat/internal/storage"
)

const pdfMIMEType = "application/pdf"

// ModelClient is the boundary to the hosted multimodal model: upload a
// stored file for a handle, then generate against assembled turns.
type ModelClient interface {
	UploadFile(ctx context.Context, cfg ai.Config, path, mimeType string) (*ai.FileHandle, error)
	GenerateContent(ctx context.Context, cfg ai.Config, contents []ai.Content) (*ai.GenerateResult, error)
}

// HistoryCache is optional; a nil cache disables it.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Interaction, bool, error)
	SetHistory(ctx context.Context, sessionID string, interactions []model.Interaction) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

type ChatService struct {
	sessionRepo     *repository.SessionRepository
	interactionRepo *repository.InteractionRepository
	files           *storage.Store
	modelClient     ModelClient
	modelCfg        ai.Config
	historyCache    HistoryCache
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	interactionRepo *repository.InteractionRepository,
	files *storage.Store,
	modelClient ModelClient,
	modelCfg ai.Config,
	historyCache HistoryCache,
) *ChatService {
	return &ChatService{
		sessionRepo:     sessionRepo,
		interactionRepo: interactionRepo,
		files:           files,
		modelClient:     modelClient,
		modelCfg:        modelCfg,
		historyCache:    historyCache,
	}
}

// UploadedFile is one file received in an upload request, already read into
// memory by the transport layer.
type UploadedFile struct {
	Filename string
	Content  []byte
}

type CreateSessionResult struct {
	SessionID   string   `json:"chat_id"`
	DocumentID  string   `json:"pdf_id"`
	Filenames   []string `json:"filenames"`
	TotalSizeMB float64  `json:"total_size_mb"`
}

// CreateSession stores the files, relays the first one to the provider to
// validate accessibility, and records the session. A relay failure aborts
// before anything is persisted to the database; already written files stay
// on disk, matching the delete path's best-effort file handling.
func (s *ChatService) CreateSession(ctx context.Context, files []UploadedFile) (*CreateSessionResult, error) {
	if s.modelCfg.APIKey == "" {
		return nil, ErrProviderNotConfigured
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	for _, f := range files {
		if strings.TrimSpace(f.Filename) == "" || len(f.Content) == 0 {
			return nil, ErrEmptyFile
		}
	}

	documentID := uuid.NewString()
	sessionID := "chat_" + documentID

	var (
		filenames []string
		firstPath string
		totalMB   float64
	)
	for i, f := range files {
		path, size, err := s.files.Save(documentID, f.Filename, bytes.NewReader(f.Content))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			firstPath = path
		}
		filenames = append(filenames, f.Filename)
		totalMB += float64(size) / (1024 * 1024)
	}

	if _, err := s.modelClient.UploadFile(ctx, s.modelCfg, firstPath, pdfMIMEType); err != nil {
		return nil, fmt.Errorf("upload to provider failed: %w", err)
	}

	session := &model.Session{
		ID:           sessionID,
		DocumentID:   documentID,
		Filenames:    strings.Join(filenames, ", "),
		NumPages:     0,
		FileSizeMB:   round2(totalMB),
		LastAccessed: time.Now(),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	return &CreateSessionResult{
		SessionID:   sessionID,
		DocumentID:  documentID,
		Filenames:   filenames,
		TotalSizeMB: session.FileSizeMB,
	}, nil
}

type AskResult struct {
	SessionID           string
	MessageID           string
	Question            string
	Answer              string
	Usage               model.TokenUsage
	Degraded            bool
	Filenames           string
	DocumentID          string
	FileSizeMB          float64
	DaysSinceLastAccess int
	ContextMessages     int
}

// AskQuestion re-uploads the document, replays the recent history, calls the
// model, and persists the exchange. A generation failure does not fail the
// request: the error text becomes the stored answer with zeroed token usage
// and the result is marked Degraded.
func (s *ChatService) AskQuestion(ctx context.Context, sessionID, question string) (*AskResult, error) {
	if s.modelCfg.APIKey == "" {
		return nil, ErrProviderNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	// Only the first file of the upload batch is answered against.
	names := session.FilenameList()
	if len(names) == 0 {
		return nil, ErrDocumentNotFound
	}
	if !s.files.Exists(session.DocumentID, names[0]) {
		return nil, ErrDocumentNotFound
	}
	pdfPath := s.files.Path(session.DocumentID, names[0])

	days := daysSince(session.LastAccessed)

	handle, err := s.modelClient.UploadFile(ctx, s.modelCfg, pdfPath, pdfMIMEType)
	if err != nil {
		return nil, fmt.Errorf("upload to provider failed: %w", err)
	}

	recent, err := s.interactionRepo.ListRecentBySessionID(sessionID, historyWindow)
	if err != nil {
		return nil, err
	}

	contents := buildContents(recent, handle, question)

	var (
		answer   string
		usage    model.TokenUsage
		degraded bool
	)
	generated, err := s.modelClient.GenerateContent(ctx, s.modelCfg, contents)
	if err != nil {
		answer = "Error calling the model provider: " + err.Error()
		degraded = true
	} else {
		answer = strings.TrimSpace(generated.Text)
		if answer == "" {
			answer = "I couldn't generate a response. Please try again."
		}
		usage = model.TokenUsage{
			PromptTokens:     generated.Usage.PromptTokens,
			CompletionTokens: generated.Usage.CompletionTokens,
			TotalTokens:      generated.Usage.TotalTokens,
		}
	}

	interaction := &model.Interaction{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
	}
	if err := interaction.SetUsage(usage); err != nil {
		return nil, fmt.Errorf("encode token usage failed: %w", err)
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, sessionID)
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}
	if err := s.interactionRepo.Create(interaction); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.TouchLastAccessed(sessionID); err != nil {
		return nil, err
	}

	return &AskResult{
		SessionID:           sessionID,
		MessageID:           interaction.MessageID,
		Question:            question,
		Answer:              formatAnswer(days, session.Filenames, answer),
		Usage:               usage,
		Degraded:            degraded,
		Filenames:           session.Filenames,
		DocumentID:          session.DocumentID,
		FileSizeMB:          session.FileSizeMB,
		DaysSinceLastAccess: days,
		ContextMessages:     len(recent),
	}, nil
}

type DeleteResult struct {
	SessionID string   `json:"chat_id"`
	Warnings  []string `json:"warnings,omitempty"`
}

// DeleteSession removes the database rows atomically, then sweeps the
// stored files. File removal failures are non-fatal and come back as
// warnings.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID string) (*DeleteResult, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if err := s.sessionRepo.DeleteWithInteractions(sessionID); err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}

	warnings := s.files.RemoveAll(session.DocumentID)
	return &DeleteResult{SessionID: sessionID, Warnings: warnings}, nil
}

type SessionSummary struct {
	model.Session
	DaysSinceLastAccess int `json:"days_since_last_access"`
}

func (s *ChatService) ListSessions() ([]SessionSummary, error) {
	sessions, err := s.sessionRepo.ListAll()
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, SessionSummary{
			Session:             session,
			DaysSinceLastAccess: daysSince(session.LastAccessed),
		})
	}
	return summaries, nil
}

type SessionDetail struct {
	Session             model.Session
	DaysSinceLastAccess int
	Interactions        []model.Interaction
}

// SessionDetail returns session metadata plus all interactions, newest
// first. Reads go through the cache when it is clean.
func (s *ChatService) SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	interactions, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionDetail{
		Session:             *session,
		DaysSinceLastAccess: daysSince(session.LastAccessed),
		Interactions:        interactions,
	}, nil
}

// DocumentPath locates the first stored file carrying the document id
// prefix for streaming back to the client.
func (s *ChatService) DocumentPath(documentID string) (string, error) {
	path, err := s.files.FirstMatch(documentID)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrDocumentNotFound
	}
	return path, nil
}

func (s *ChatService) loadHistory(ctx context.Context, sessionID string) ([]model.Interaction, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	interactions, err := s.interactionRepo.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, interactions)
		}
	}
	return interactions, nil
}

func formatAnswer(days int, filenames, answer string) string {
	return fmt.Sprintf(
		"%sI've analyzed your document '%s' to answer your question.\n\nAnswer: %s\n\nThis answer is based on the content of your uploaded PDF.",
		greeting(days), filenames, answer,
	)
}

func greeting(days int) string {
	switch {
	case days == 1:
		return "Great to see you again after a day! "
	case days > 1:
		return fmt.Sprintf("Welcome back after %d days! ", days)
	default:
		return "Welcome back! "
	}
}

func daysSince(t time.Time) int {
	days := int(time.Since(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

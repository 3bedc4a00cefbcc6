package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"docuchat/internal/model"
	sqliteClient "docuchat/internal/platform/sqlite"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqliteClient.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}, &model.Interaction{}))
	return db
}

func newSession(docID string) *model.Session {
	return &model.Session{
		ID:           "chat_" + docID,
		DocumentID:   docID,
		Filenames:    "report.pdf",
		FileSizeMB:   1.5,
		LastAccessed: time.Now(),
	}
}

func TestSessionCreateAndGet(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	require.NoError(t, repo.Create(newSession("doc-1")))

	got, err := repo.GetByID("chat_doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, "report.pdf", got.Filenames)

	missing, err := repo.GetByID("chat_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionListAllOrdersByRecency(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)

	old := newSession("doc-old")
	old.LastAccessed = time.Now().Add(-72 * time.Hour)
	require.NoError(t, repo.Create(old))
	require.NoError(t, repo.Create(newSession("doc-new")))

	sessions, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "chat_doc-new", sessions[0].ID)
	assert.Equal(t, "chat_doc-old", sessions[1].ID)
}

func TestSessionTouchLastAccessed(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)

	session := newSession("doc-1")
	session.LastAccessed = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(session))

	require.NoError(t, repo.TouchLastAccessed(session.ID))

	got, err := repo.GetByID(session.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), got.LastAccessed, 5*time.Second)
}

func TestDeleteWithInteractionsIsAtomic(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	interactions := NewInteractionRepository(db)

	session := newSession("doc-1")
	require.NoError(t, sessions.Create(session))
	for i := 0; i < 3; i++ {
		require.NoError(t, interactions.Create(&model.Interaction{
			MessageID: fmt.Sprintf("msg-%d", i),
			SessionID: session.ID,
			Question:  fmt.Sprintf("q%d", i),
			Answer:    fmt.Sprintf("a%d", i),
		}))
	}

	require.NoError(t, sessions.DeleteWithInteractions(session.ID))

	got, err := sessions.GetByID(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	remaining, err := interactions.ListBySessionID(session.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestInteractionListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewInteractionRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 7; i++ {
		require.NoError(t, repo.Create(&model.Interaction{
			MessageID: fmt.Sprintf("msg-%d", i),
			SessionID: "chat_doc-1",
			Question:  fmt.Sprintf("q%d", i),
			Answer:    fmt.Sprintf("a%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.ListBySessionID("chat_doc-1")
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, "q7", all[0].Question)
	assert.Equal(t, "q1", all[6].Question)

	recent, err := repo.ListRecentBySessionID("chat_doc-1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "q7", recent[0].Question)
	assert.Equal(t, "q3", recent[4].Question)
}

func TestInteractionUsageRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewInteractionRepository(db)

	interaction := &model.Interaction{
		MessageID: "msg-1",
		SessionID: "chat_doc-1",
		Question:  "q",
		Answer:    "a",
	}
	require.NoError(t, interaction.SetUsage(model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}))
	require.NoError(t, repo.Create(interaction))

	got, err := repo.ListBySessionID("chat_doc-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, got[0].Usage())
}

func TestIsBusy(t *testing.T) {
	assert.False(t, isBusy(nil))
	assert.False(t, isBusy(fmt.Errorf("constraint violation")))
	assert.True(t, isBusy(fmt.Errorf("database is locked (5) (SQLITE_BUSY)")))
}

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/model"
)

func TestHistoryRoundTripKeepsTokenUsage(t *testing.T) {
	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	interaction := model.Interaction{
		ID:        7,
		MessageID: "11111111-2222-3333-4444-555555555555",
		SessionID: "chat_abc",
		Question:  "What does section 2 say?",
		Answer:    "Section 2 covers payment terms.",
		CreatedAt: created,
	}
	require.NoError(t, interaction.SetUsage(model.TokenUsage{
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
	}))

	payload, err := encodeHistory([]model.Interaction{interaction})
	require.NoError(t, err)

	decoded, err := decodeHistory(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	assert.Equal(t, interaction, decoded[0])
	assert.Equal(t, model.TokenUsage{
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
	}, decoded[0].Usage())
}

func TestHistoryRoundTripEmpty(t *testing.T) {
	payload, err := encodeHistory(nil)
	require.NoError(t, err)

	decoded, err := decodeHistory(payload)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

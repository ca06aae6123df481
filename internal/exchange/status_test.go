package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"voice-qa-service/internal/conversation"
)

func TestQueryStatusPrefersCacheOverStore(t *testing.T) {
	coordinator, _, questionCache := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coordinator.FinalizeAnswer(ctx, Finalization{
		ConversationID: "chat-1",
		Question:       "older question",
		Answer:         "older answer",
	})
	require.NoError(t, err)

	questionCache.Put("chat-1", "in-flight question")

	view, err := coordinator.QueryStatus(ctx, "chat-1")
	require.NoError(t, err)
	require.True(t, view.HasQuery)
	require.Equal(t, "in-flight question", view.Question)
	require.Equal(t, SourceCache, view.Source)
}

func TestQueryStatusFallsBackToStore(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coordinator.FinalizeAnswer(ctx, Finalization{
		ConversationID: "chat-1",
		Question:       "stored question",
		Answer:         "stored answer",
	})
	require.NoError(t, err)

	view, err := coordinator.QueryStatus(ctx, "chat-1")
	require.NoError(t, err)
	require.True(t, view.HasQuery)
	require.Equal(t, "stored question", view.Question)
	require.Equal(t, SourceStore, view.Source)
}

func TestQueryStatusUnknownConversation(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)

	view, err := coordinator.QueryStatus(context.Background(), "chat-unknown")
	require.NoError(t, err)
	require.False(t, view.HasQuery)
	require.Empty(t, view.Question)
	require.Empty(t, view.Source)
}

func TestQueryStatusIgnoresRecordsWithoutQuestion(t *testing.T) {
	coordinator, memory, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := memory.Create(ctx, &conversation.QARecord{
		ConversationID: "chat-1",
		Question:       "",
		Answer:         "orphan answer",
		State:          conversation.StateAnswered,
	})
	require.NoError(t, err)

	view, err := coordinator.QueryStatus(ctx, "chat-1")
	require.NoError(t, err)
	require.False(t, view.HasQuery)
}

func TestAnswerStatusTrustsStoreOverCache(t *testing.T) {
	coordinator, _, questionCache := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coordinator.FinalizeAnswer(ctx, Finalization{
		ConversationID: "chat-1",
		Question:       "What is the capital of France?",
		Answer:         "Paris",
	})
	require.NoError(t, err)

	// A stray cache entry must not mask the stored answer
	questionCache.Put("chat-1", "some newer question")

	view, err := coordinator.AnswerStatus(ctx, "chat-1")
	require.NoError(t, err)
	require.True(t, view.HasAnswer)
	require.False(t, view.IsProcessing)
	require.Equal(t, "What is the capital of France?", view.Question)
	require.Equal(t, "Paris", view.Answer)
}

func TestAnswerStatusPendingRecord(t *testing.T) {
	coordinator, _, questionCache := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coordinator.FinalizeAnswer(ctx, Finalization{
		ConversationID: "chat-1",
		Question:       "What is the capital of France?",
		Answer:         conversation.ProcessingSentinel,
	})
	require.NoError(t, err)

	// Cache entry alongside the placeholder, as during normal processing
	questionCache.Put("chat-1", "What is the capital of France?")

	view, err := coordinator.AnswerStatus(ctx, "chat-1")
	require.NoError(t, err)
	require.False(t, view.HasAnswer)
	require.True(t, view.IsProcessing)
	require.Equal(t, "What is the capital of France?", view.Question)
	require.Empty(t, view.Answer)
}

func TestAnswerStatusLegacySentinelRecord(t *testing.T) {
	coordinator, memory, _ := newTestCoordinator(t)
	ctx := context.Background()

	// Rows written before states were tagged carry the sentinel in the
	// answer field and no state at all.
	_, err := memory.Create(ctx, &conversation.QARecord{
		ConversationID: "chat-1",
		Question:       "legacy question",
		Answer:         conversation.ProcessingSentinel,
	})
	require.NoError(t, err)

	view, err := coordinator.AnswerStatus(ctx, "chat-1")
	require.NoError(t, err)
	require.False(t, view.HasAnswer)
	require.True(t, view.IsProcessing)
	require.Equal(t, "legacy question", view.Question)
}

func TestAnswerStatusFailedRecord(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coordinator.FinalizeAnswer(ctx, Finalization{
		ConversationID: "chat-1",
		Question:       "q",
		Answer:         "Sorry, something went wrong.",
		FailureReason:  "transcribe: timeout",
	})
	require.NoError(t, err)

	view, err := coordinator.AnswerStatus(ctx, "chat-1")
	require.NoError(t, err)
	require.True(t, view.HasAnswer)
	require.False(t, view.IsProcessing)
	require.Equal(t, "Sorry, something went wrong.", view.Answer)
}

func TestAnswerStatusCacheFallback(t *testing.T) {
	coordinator, _, questionCache := newTestCoordinator(t)

	questionCache.Put("chat-1", "cached question")

	view, err := coordinator.AnswerStatus(context.Background(), "chat-1")
	require.NoError(t, err)
	require.False(t, view.HasAnswer)
	require.False(t, view.IsProcessing)
	require.Equal(t, "cached question", view.Question)
}

func TestAnswerStatusUnknownConversation(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)

	view, err := coordinator.AnswerStatus(context.Background(), "chat-unknown")
	require.NoError(t, err)
	require.False(t, view.HasAnswer)
	require.False(t, view.IsProcessing)
	require.Empty(t, view.Question)
	require.Empty(t, view.Answer)
}

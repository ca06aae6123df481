package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voice-qa-service/internal/conversation"
)

// tick returns a clock that advances one second per call, so creation
// times are strictly ordered.
func tick(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestMemoryCreateAssignsIdentity(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	rec := &conversation.QARecord{
		ConversationID: "chat-1",
		Question:       "What is the capital of France?",
		Answer:         "Paris",
		State:          conversation.StateAnswered,
	}

	id, err := s.Create(ctx, rec)
	require.NoError(t, err)
	require.Len(t, id, 24)
	require.Equal(t, rec.ID.Hex(), id)
	require.False(t, rec.CreatedAt.IsZero())
	require.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	other := &conversation.QARecord{ConversationID: "chat-1", Question: "q", Answer: "a", State: conversation.StateAnswered}
	otherID, err := s.Create(ctx, other)
	require.NoError(t, err)
	require.NotEqual(t, id, otherID)
}

func TestMemoryFindByID(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	rec := &conversation.QARecord{ConversationID: "chat-1", Question: "q", Answer: "a", State: conversation.StateAnswered}
	id, err := s.Create(ctx, rec)
	require.NoError(t, err)

	found, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "chat-1", found.ConversationID)
	require.Equal(t, "q", found.Question)

	_, err = s.FindByID(ctx, "000000000000000000000000")
	require.Error(t, err)
	require.True(t, conversation.IsNotFound(err))
}

func TestMemoryFindLatest(t *testing.T) {
	s := NewMemory()
	s.now = tick(time.Now())
	ctx := context.Background()

	_, err := s.Create(ctx, &conversation.QARecord{ConversationID: "chat-1", Question: "first", Answer: "a1", State: conversation.StateAnswered})
	require.NoError(t, err)
	_, err = s.Create(ctx, &conversation.QARecord{ConversationID: "chat-2", Question: "other chat", Answer: "a", State: conversation.StateAnswered})
	require.NoError(t, err)
	_, err = s.Create(ctx, &conversation.QARecord{ConversationID: "chat-1", Question: "second", Answer: "a2", State: conversation.StateAnswered})
	require.NoError(t, err)

	latest, err := s.FindLatest(ctx, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, "second", latest.Question)

	// Unknown conversation yields no record and no error
	latest, err = s.FindLatest(ctx, "chat-99")
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestMemoryFindLatestTieBreaksOnInsertionOrder(t *testing.T) {
	s := NewMemory()
	fixed := time.Now()
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	_, err := s.Create(ctx, &conversation.QARecord{ConversationID: "chat-1", Question: "first", Answer: "a", State: conversation.StateAnswered})
	require.NoError(t, err)
	_, err = s.Create(ctx, &conversation.QARecord{ConversationID: "chat-1", Question: "second", Answer: "a", State: conversation.StateAnswered})
	require.NoError(t, err)

	latest, err := s.FindLatest(ctx, "chat-1")
	require.NoError(t, err)
	require.Equal(t, "second", latest.Question)
}

func TestMemoryFindByConversationNewestFirst(t *testing.T) {
	s := NewMemory()
	s.now = tick(time.Now())
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		_, err := s.Create(ctx, &conversation.QARecord{ConversationID: "chat-1", Question: q, Answer: "a", State: conversation.StateAnswered})
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, &conversation.QARecord{ConversationID: "chat-2", Question: "elsewhere", Answer: "a", State: conversation.StateAnswered})
	require.NoError(t, err)

	records, err := s.FindByConversation(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "third", records[0].Question)
	require.Equal(t, "second", records[1].Question)
	require.Equal(t, "first", records[2].Question)

	// Missing conversation yields an empty slice, not nil
	records, err = s.FindByConversation(ctx, "chat-99")
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestMemoryFindAllNewestFirst(t *testing.T) {
	s := NewMemory()
	s.now = tick(time.Now())
	ctx := context.Background()

	_, err := s.Create(ctx, &conversation.QARecord{ConversationID: "chat-1", Question: "first", Answer: "a", State: conversation.StateAnswered})
	require.NoError(t, err)
	_, err = s.Create(ctx, &conversation.QARecord{ConversationID: "chat-2", Question: "second", Answer: "a", State: conversation.StateAnswered})
	require.NoError(t, err)

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "second", records[0].Question)
	require.Equal(t, "first", records[1].Question)
}

func TestMemoryUpdateAnswer(t *testing.T) {
	s := NewMemory()
	s.now = tick(time.Now())
	ctx := context.Background()

	rec := &conversation.QARecord{ConversationID: "chat-1", Question: "q", Answer: "", State: conversation.StatePending}
	id, err := s.Create(ctx, rec)
	require.NoError(t, err)
	createdAt := rec.CreatedAt

	err = s.UpdateAnswer(ctx, id, "Paris", conversation.StateAnswered, "")
	require.NoError(t, err)

	updated, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Paris", updated.Answer)
	require.Equal(t, conversation.StateAnswered, updated.State)
	require.Equal(t, "q", updated.Question)
	require.Equal(t, createdAt, updated.CreatedAt)
	require.True(t, updated.UpdatedAt.After(createdAt))

	err = s.UpdateAnswer(ctx, "000000000000000000000000", "x", conversation.StateAnswered, "")
	require.Error(t, err)
	require.True(t, conversation.IsNotFound(err))
}

func TestMemoryDeleteAll(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, &conversation.QARecord{ConversationID: "chat-1", Question: "q", Answer: "a", State: conversation.StateAnswered})
		require.NoError(t, err)
	}

	deleted, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Empty(t, records)

	// Deleting an empty store reports zero
	deleted, err = s.DeleteAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)
}

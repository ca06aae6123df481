package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"voice-qa-service/internal/conversation"
)

// Memory is an in-memory record store. It mirrors the Mongo adapter's
// ordering and not-found semantics so the two are interchangeable
// behind the coordinator.
type Memory struct {
	mu      sync.RWMutex
	records []conversation.QARecord

	// now stamps creation/update times; overridable in tests
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Create appends a copy of rec, stamping its ID and timestamps, and
// returns the generated document ID.
func (s *Memory) Create(ctx context.Context, rec *conversation.QARecord) (string, error) {
	ts := s.now().UTC()
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts

	s.mu.Lock()
	s.records = append(s.records, *rec)
	s.mu.Unlock()

	return rec.ID.Hex(), nil
}

// FindByID fetches a single record by its document ID.
func (s *Memory) FindByID(ctx context.Context, id string) (*conversation.QARecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if s.records[i].ID.Hex() == id {
			rec := s.records[i]
			return &rec, nil
		}
	}

	return nil, conversation.NewError(conversation.ErrorNotFound, "record not found", nil)
}

// FindLatest returns the most recent record of a conversation, or nil
// when the conversation has none. Later inserts win creation-time ties.
func (s *Memory) FindLatest(ctx context.Context, conversationID string) (*conversation.QARecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *conversation.QARecord
	for i := range s.records {
		rec := &s.records[i]
		if rec.ConversationID != conversationID {
			continue
		}
		if latest == nil || !rec.CreatedAt.Before(latest.CreatedAt) {
			latest = rec
		}
	}

	if latest == nil {
		return nil, nil
	}

	out := *latest
	return &out, nil
}

// FindByConversation returns every record of a conversation, newest
// first.
func (s *Memory) FindByConversation(ctx context.Context, conversationID string) ([]conversation.QARecord, error) {
	s.mu.RLock()
	out := make([]conversation.QARecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].ConversationID == conversationID {
			out = append(out, s.records[i])
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// FindAll returns every stored record, newest first.
func (s *Memory) FindAll(ctx context.Context) ([]conversation.QARecord, error) {
	s.mu.RLock()
	out := make([]conversation.QARecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		out = append(out, s.records[i])
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst orders records by creation time descending. The input
// arrives newest-insertion-first, so the stable sort keeps insertion
// order for equal timestamps.
func sortNewestFirst(records []conversation.QARecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// UpdateAnswer sets the answer, state and failure reason of an existing
// record and bumps its update time.
func (s *Memory) UpdateAnswer(ctx context.Context, id string, answer string, state conversation.AnswerState, failureReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID.Hex() == id {
			s.records[i].Answer = answer
			s.records[i].State = state
			s.records[i].FailureReason = failureReason
			s.records[i].UpdatedAt = s.now().UTC()
			return nil
		}
	}

	return conversation.NewError(conversation.ErrorNotFound, "record not found", nil)
}

// DeleteAll removes every record and returns how many were deleted.
func (s *Memory) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	deleted := int64(len(s.records))
	s.records = nil
	s.mu.Unlock()

	return deleted, nil
}

// Ping always succeeds; the in-memory store has no connection to lose.
func (s *Memory) Ping(ctx context.Context) error {
	return nil
}

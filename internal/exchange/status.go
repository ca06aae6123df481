package exchange

import (
	"context"

	"voice-qa-service/internal/conversation"
)

// Query sources reported by QueryStatus.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// QueryView is the derived answer to "is a question pending or known
// for this conversation". It is computed on demand, never stored.
type QueryView struct {
	HasQuery bool
	Question string
	// Source names where the question was found: "cache" or "store".
	Source string
}

// QueryStatus prefers the volatile cache over the store, so a question
// still in flight is visible before any record for it exists.
func (c *Coordinator) QueryStatus(ctx context.Context, conversationID string) (QueryView, error) {
	if entry, exists := c.cache.Get(conversationID); exists {
		return QueryView{HasQuery: true, Question: entry.Question, Source: SourceCache}, nil
	}

	latest, err := c.store.FindLatest(ctx, conversationID)
	if err != nil {
		return QueryView{}, conversation.NewError(conversation.ErrorStore, "failed to check query status", err)
	}

	if latest != nil && latest.Question != "" {
		return QueryView{HasQuery: true, Question: latest.Question, Source: SourceStore}, nil
	}

	return QueryView{}, nil
}

// AnswerView is the derived answer to "has this conversation's latest
// exchange finished".
type AnswerView struct {
	HasAnswer    bool
	IsProcessing bool
	Question     string
	Answer       string
}

// AnswerStatus trusts the store first: a persisted record is the
// authority on whether the exchange finished. The cache is only
// consulted when no record exists yet.
func (c *Coordinator) AnswerStatus(ctx context.Context, conversationID string) (AnswerView, error) {
	latest, err := c.store.FindLatest(ctx, conversationID)
	if err != nil {
		return AnswerView{}, conversation.NewError(conversation.ErrorStore, "failed to check answer status", err)
	}

	if latest != nil {
		if latest.EffectiveState() == conversation.StatePending {
			return AnswerView{IsProcessing: true, Question: latest.Question}, nil
		}
		if latest.Answer != "" {
			return AnswerView{HasAnswer: true, Question: latest.Question, Answer: latest.Answer}, nil
		}
		return AnswerView{Question: latest.Question}, nil
	}

	if entry, exists := c.cache.Get(conversationID); exists {
		// The question was accepted but nothing is persisted yet
		return AnswerView{Question: entry.Question}, nil
	}

	return AnswerView{}, nil
}

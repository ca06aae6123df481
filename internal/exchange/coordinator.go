package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voice-qa-service/internal/cache"
	"voice-qa-service/internal/conversation"
	"voice-qa-service/internal/metrics"
)

// RecordStore is the persistence interface the coordinator works
// through. Both store.Mongo and store.Memory implement it.
type RecordStore interface {
	Create(ctx context.Context, rec *conversation.QARecord) (string, error)
	FindByID(ctx context.Context, id string) (*conversation.QARecord, error)
	FindLatest(ctx context.Context, conversationID string) (*conversation.QARecord, error)
	FindByConversation(ctx context.Context, conversationID string) ([]conversation.QARecord, error)
	FindAll(ctx context.Context) ([]conversation.QARecord, error)
	UpdateAnswer(ctx context.Context, id string, answer string, state conversation.AnswerState, failureReason string) error
	DeleteAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Coordinator owns the exchange between the volatile question cache and
// the persistent record store. It is safe for concurrent use.
type Coordinator struct {
	cache   *cache.Cache
	store   RecordStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCoordinator wires a coordinator. The metrics instance may be nil.
func NewCoordinator(questionCache *cache.Cache, recordStore RecordStore, logger *slog.Logger, m *metrics.Metrics) (*Coordinator, error) {
	if questionCache == nil {
		return nil, fmt.Errorf("exchange: cache must not be nil")
	}
	if recordStore == nil {
		return nil, fmt.Errorf("exchange: store must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("exchange: logger must not be nil")
	}

	return &Coordinator{
		cache:   questionCache,
		store:   recordStore,
		logger:  logger,
		metrics: m,
	}, nil
}

// AcceptQuestion publishes a recognized question as pending so status
// polls can show it before the answer arrives. An existing pending
// question for the conversation is overwritten.
func (c *Coordinator) AcceptQuestion(conversationID, question string) error {
	conversationID = strings.TrimSpace(conversationID)
	question = strings.TrimSpace(question)

	if conversationID == "" || question == "" {
		return conversation.NewError(conversation.ErrorValidation, "chatid and query are required", nil)
	}

	c.cache.Put(conversationID, question)

	c.logger.Info("Pending question accepted",
		slog.String("chatid", conversationID),
		slog.Int("question_length", len(question)),
	)

	return nil
}

// Finalization is the outcome of one pipeline run or webhook call.
type Finalization struct {
	ConversationID string
	Question       string
	Answer         string
	// FailureReason marks the record as failed when non-empty; the
	// answer text then carries the user-facing explanation.
	FailureReason string
}

// FinalizeAnswer persists the outcome and clears the conversation's
// pending question. It returns the document ID of the stored record.
//
// The legacy "PROCESSING" answer is normalized to a pending placeholder
// with empty answer text. When the latest record of the conversation is
// such a placeholder carrying the same question, a real answer
// completes it in place instead of stacking a duplicate, which makes
// the webhook contract idempotent.
func (c *Coordinator) FinalizeAnswer(ctx context.Context, f Finalization) (string, error) {
	conversationID := strings.TrimSpace(f.ConversationID)
	question := strings.TrimSpace(f.Question)
	answer := strings.TrimSpace(f.Answer)

	if conversationID == "" || question == "" || answer == "" {
		return "", conversation.NewError(conversation.ErrorValidation, "chatid, question and answer are required", nil)
	}

	state := conversation.StateAnswered
	switch {
	case f.FailureReason != "":
		state = conversation.StateFailed
	case answer == conversation.ProcessingSentinel:
		state = conversation.StatePending
		answer = ""
	}

	id, err := c.persist(ctx, conversationID, question, answer, state, f.FailureReason)

	// The pending entry is cleared even when persistence fails
	c.cache.Remove(conversationID)

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordStoreError()
		}
		return "", err
	}

	if c.metrics != nil {
		c.metrics.RecordRecordSaved(string(state))
	}

	c.logger.Info("Answer finalized",
		slog.String("chatid", conversationID),
		slog.String("doc_id", id),
		slog.String("state", string(state)),
	)

	return id, nil
}

// persist writes the finalization to the store, completing a pending
// placeholder in place when one matches.
func (c *Coordinator) persist(ctx context.Context, conversationID, question, answer string, state conversation.AnswerState, failureReason string) (string, error) {
	latest, err := c.store.FindLatest(ctx, conversationID)
	if err != nil {
		// A read failure must not block the write path
		c.logger.Warn("Could not check for a pending placeholder",
			slog.String("chatid", conversationID),
			slog.String("error", err.Error()),
		)
		latest = nil
	}

	if latest != nil && latest.EffectiveState() == conversation.StatePending && strings.TrimSpace(latest.Question) == question {
		if state == conversation.StatePending {
			// Repeated placeholder writes collapse into one record
			return latest.ID.Hex(), nil
		}

		if err := c.store.UpdateAnswer(ctx, latest.ID.Hex(), answer, state, failureReason); err != nil {
			return "", conversation.NewError(conversation.ErrorStore, "failed to save answer", err)
		}
		return latest.ID.Hex(), nil
	}

	rec := &conversation.QARecord{
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		State:          state,
		FailureReason:  failureReason,
	}

	id, err := c.store.Create(ctx, rec)
	if err != nil {
		return "", conversation.NewError(conversation.ErrorStore, "failed to save answer", err)
	}

	return id, nil
}

// History returns every record of one conversation, newest first.
func (c *Coordinator) History(ctx context.Context, conversationID string) ([]conversation.QARecord, error) {
	records, err := c.store.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, conversation.NewError(conversation.ErrorStore, "failed to load history", err)
	}
	return records, nil
}

// AllRecords returns every stored record, newest first.
func (c *Coordinator) AllRecords(ctx context.Context) ([]conversation.QARecord, error) {
	records, err := c.store.FindAll(ctx)
	if err != nil {
		return nil, conversation.NewError(conversation.ErrorStore, "failed to load records", err)
	}
	return records, nil
}

// Record returns a single record by its document ID.
func (c *Coordinator) Record(ctx context.Context, id string) (*conversation.QARecord, error) {
	rec, err := c.store.FindByID(ctx, id)
	if err != nil {
		if conversation.IsNotFound(err) {
			return nil, err
		}
		return nil, conversation.NewError(conversation.ErrorStore, "failed to load record", err)
	}
	return rec, nil
}

// ClearHistory deletes every record and reports how many were removed.
func (c *Coordinator) ClearHistory(ctx context.Context) (int64, error) {
	deleted, err := c.store.DeleteAll(ctx)
	if err != nil {
		return 0, conversation.NewError(conversation.ErrorStore, "failed to clear history", err)
	}

	c.logger.Info("History cleared",
		slog.Int64("deleted_count", deleted),
	)

	return deleted, nil
}

// StoreReady reports whether the record store is reachable.
func (c *Coordinator) StoreReady(ctx context.Context) error {
	return c.store.Ping(ctx)
}

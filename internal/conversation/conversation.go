package conversation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnswerState describes how far a question has progressed toward a
// persisted answer.
type AnswerState string

const (
	// StatePending marks a placeholder record whose answer has not
	// arrived yet.
	StatePending AnswerState = "pending"
	// StateAnswered marks a record carrying a real answer.
	StateAnswered AnswerState = "answered"
	// StateFailed marks a record whose processing ended in an error.
	// The answer text still carries the user-facing explanation.
	StateFailed AnswerState = "failed"
)

// ProcessingSentinel is the in-band marker older clients send in place
// of an answer to signal "not finished yet". It is still accepted on
// the wire and normalized to StatePending with an empty answer text.
const ProcessingSentinel = "PROCESSING"

// QARecord is the persisted outcome of one question/answer exchange.
// A conversation accumulates records over time; the latest by creation
// time is its canonical current state.
type QARecord struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"chatid" json:"chatid"`
	Question       string             `bson:"question" json:"question"`
	Answer         string             `bson:"answer" json:"answer"`
	State          AnswerState        `bson:"state" json:"state"`
	FailureReason  string             `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// EffectiveState returns the record's state, deriving one for records
// written before the state field existed: a literal "PROCESSING" answer
// means pending, anything else counts as answered.
func (r *QARecord) EffectiveState() AnswerState {
	if r.State != "" {
		return r.State
	}
	if r.Answer == ProcessingSentinel {
		return StatePending
	}
	return StateAnswered
}

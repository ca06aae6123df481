package conversation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEffectiveState(t *testing.T) {
	tests := []struct {
		name   string
		record QARecord
		want   AnswerState
	}{
		{
			name:   "explicit pending",
			record: QARecord{State: StatePending},
			want:   StatePending,
		},
		{
			name:   "explicit answered",
			record: QARecord{State: StateAnswered, Answer: "Paris"},
			want:   StateAnswered,
		},
		{
			name:   "explicit failed",
			record: QARecord{State: StateFailed, Answer: "Sorry, try again"},
			want:   StateFailed,
		},
		{
			name:   "legacy processing sentinel",
			record: QARecord{Answer: ProcessingSentinel},
			want:   StatePending,
		},
		{
			name:   "legacy record with answer",
			record: QARecord{Answer: "Paris"},
			want:   StateAnswered,
		},
		{
			name:   "legacy record with empty answer",
			record: QARecord{},
			want:   StateAnswered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.record.EffectiveState())
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")

	err := NewError(ErrorStore, "failed to save answer", cause)
	require.Equal(t, "conversation: failed to save answer (STORE): connection refused", err.Error())
	require.ErrorIs(t, err, cause)

	bare := NewError(ErrorValidation, "chatid is required", nil)
	require.Equal(t, "conversation: chatid is required (VALIDATION)", bare.Error())
	require.Nil(t, bare.Unwrap())
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, ErrorBusy, CodeOf(NewError(ErrorBusy, "queue is full", nil)))
	require.Equal(t, ErrorInternal, CodeOf(errors.New("plain error")))

	// Codes survive wrapping.
	wrapped := fmt.Errorf("handler: %w", NewError(ErrorNotFound, "record not found", nil))
	require.Equal(t, ErrorNotFound, CodeOf(wrapped))
	require.True(t, IsNotFound(wrapped))
}

func TestErrorPredicates(t *testing.T) {
	require.True(t, IsValidation(NewError(ErrorValidation, "audio data is empty", nil)))
	require.False(t, IsValidation(NewError(ErrorBusy, "queue is full", nil)))
	require.True(t, IsBusy(NewError(ErrorBusy, "queue is full", nil)))
	require.False(t, IsBusy(errors.New("plain error")))
}

func TestReasonOf(t *testing.T) {
	require.Equal(t, "audio data is empty", ReasonOf(NewError(ErrorValidation, "audio data is empty", nil)))
	require.Equal(t, "", ReasonOf(errors.New("plain error")))
}

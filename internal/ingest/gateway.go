package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-qa-service/internal/audio"
	"voice-qa-service/internal/conversation"
	"voice-qa-service/internal/dispatch"
	"voice-qa-service/internal/metrics"
)

// Enqueuer accepts jobs for background processing.
type Enqueuer interface {
	Enqueue(job dispatch.Job) error
}

// Config contains gateway configuration
type Config struct {
	SpoolDir     string
	MaxAudioSize int // decoded bytes
}

// SubmitRequest is one recording submission. ConversationID is optional.
type SubmitRequest struct {
	ConversationID string
	AudioData      string
}

// SubmitResult reports the conversation the recording was filed under.
type SubmitResult struct {
	ConversationID string
}

// Gateway validates submissions and spools them for the dispatch pool.
type Gateway struct {
	config  Config
	queue   Enqueuer
	logger  *slog.Logger
	metrics *metrics.Metrics

	newConversationID func() string
}

// NewGateway creates a gateway. The metrics recorder may be nil.
func NewGateway(config Config, queue Enqueuer, logger *slog.Logger, m *metrics.Metrics) (*Gateway, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if config.SpoolDir == "" {
		config.SpoolDir = os.TempDir()
	}
	if config.MaxAudioSize <= 0 {
		config.MaxAudioSize = 25 << 20
	}

	return &Gateway{
		config:            config,
		queue:             queue,
		logger:            logger,
		metrics:           m,
		newConversationID: uuid.NewString,
	}, nil
}

// Submit decodes and spools a recording, then enqueues it. It returns as
// soon as the job is queued; no external service is called on this path.
func (g *Gateway) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = g.newConversationID()
	}

	audioData, err := decodeAudio(req.AudioData)
	if err != nil {
		g.recordRejection("invalid_audio")
		return SubmitResult{}, err
	}

	if len(audioData) > g.config.MaxAudioSize {
		g.recordRejection("too_large")
		return SubmitResult{}, conversation.NewError(conversation.ErrorValidation,
			fmt.Sprintf("audio payload exceeds %d bytes", g.config.MaxAudioSize), nil)
	}

	path, err := g.spool(audioData)
	if err != nil {
		g.recordRejection("spool_failed")
		return SubmitResult{}, conversation.NewError(conversation.ErrorInternal, "failed to spool recording", err)
	}

	job := dispatch.Job{
		ConversationID: conversationID,
		AudioPath:      path,
		EnqueuedAt:     time.Now(),
	}
	if err := g.queue.Enqueue(job); err != nil {
		// The worker will never see this job, so the spool file goes now
		if removeErr := os.Remove(path); removeErr != nil {
			g.logger.Warn("Failed to remove spooled recording",
				slog.String("path", path),
				slog.String("error", removeErr.Error()),
			)
		}
		g.recordRejection("busy")
		return SubmitResult{}, err
	}

	g.logger.Info("Recording accepted",
		slog.String("chatid", conversationID),
		slog.Int("audio_bytes", len(audioData)),
		slog.String("path", path),
	)
	if g.metrics != nil {
		g.metrics.RecordSubmissionAccepted()
	}

	return SubmitResult{ConversationID: conversationID}, nil
}

// decodeAudio turns the submitted payload into raw bytes. Browsers send
// data URLs; the base64 payload follows the first comma.
func decodeAudio(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, conversation.NewError(conversation.ErrorValidation, "no audio data provided", nil)
	}

	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, conversation.NewError(conversation.ErrorValidation, "audio data is not valid base64", err)
	}
	if len(data) == 0 {
		return nil, conversation.NewError(conversation.ErrorValidation, "no audio data provided", nil)
	}

	return data, nil
}

// spool writes the decoded recording to the spool directory. The extension
// follows the sniffed container format.
func (g *Gateway) spool(data []byte) (string, error) {
	pattern := "recording-*" + audio.DetectFormat(data).Extension()

	f, err := os.CreateTemp(g.config.SpoolDir, pattern)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}

func (g *Gateway) recordRejection(reason string) {
	if g.metrics != nil {
		g.metrics.RecordSubmissionRejected(reason)
	}
}

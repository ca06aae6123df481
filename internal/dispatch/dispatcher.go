package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"voice-qa-service/internal/conversation"
	"voice-qa-service/internal/exchange"
	"voice-qa-service/internal/extraction"
	"voice-qa-service/internal/metrics"
	"voice-qa-service/internal/transcription"
)

// Pipeline stage labels used in logs, metrics and failure reasons.
const (
	stageTranscribe = "transcribe"
	stageExtract    = "extract"
	stageResolve    = "resolve"
	stageFinalize   = "finalize"
)

// Terminal job outcomes.
const (
	outcomeAnswered  = "answered"
	outcomeClarified = "clarified"
	outcomeFailed    = "failed"
)

// Texts written to the conversation record when the pipeline cannot produce
// a real answer.
const (
	noQuestionQuestion       = "No question detected"
	noQuestionAnswer         = "I could not find a question in your recording. Please try asking again."
	transcribeFailedQuestion = "(unintelligible recording)"
	dependencyFailedAnswer   = "Sorry, something went wrong while processing your recording. Please try again."
)

// Transcriber turns a spooled recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, conversationID string) (*transcription.Response, error)
}

// Extractor decides whether a transcript contains a question.
type Extractor interface {
	ExtractQuery(ctx context.Context, transcript string) (*extraction.Result, error)
}

// Resolver produces an answer for an extracted question.
type Resolver interface {
	Resolve(ctx context.Context, conversationID, question string) (string, error)
}

// Coordinator publishes in-flight questions and finalizes answers.
type Coordinator interface {
	AcceptQuestion(conversationID, question string) error
	FinalizeAnswer(ctx context.Context, f exchange.Finalization) (string, error)
}

// Job is one spooled recording waiting for pipeline processing.
type Job struct {
	ConversationID string
	AudioPath      string
	EnqueuedAt     time.Time
}

// Config contains dispatcher configuration
type Config struct {
	Workers           int
	QueueSize         int
	TranscribeTimeout time.Duration
	ExtractTimeout    time.Duration
	ResolveTimeout    time.Duration
	FinalizeTimeout   time.Duration
}

// Dispatcher owns the worker pool and the bounded job queue.
type Dispatcher struct {
	config      Config
	transcriber Transcriber
	extractor   Extractor
	resolver    Resolver
	coordinator Coordinator
	logger      *slog.Logger
	metrics     *metrics.Metrics

	jobs chan Job
	wg   sync.WaitGroup

	// Statistics
	stopped       bool
	jobsEnqueued  uint64
	jobsRejected  uint64
	jobsProcessed uint64
	jobsFailed    uint64
	mu            sync.RWMutex
}

// Stats represents dispatcher statistics
type Stats struct {
	JobsEnqueued  uint64 `json:"jobs_enqueued"`
	JobsRejected  uint64 `json:"jobs_rejected"`
	JobsProcessed uint64 `json:"jobs_processed"`
	JobsFailed    uint64 `json:"jobs_failed"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Workers       int    `json:"workers"`
}

// New creates a dispatcher. The metrics recorder may be nil.
func New(config Config, transcriber Transcriber, extractor Extractor, resolver Resolver, coordinator Coordinator, logger *slog.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.TranscribeTimeout <= 0 {
		config.TranscribeTimeout = 30 * time.Second
	}
	if config.ExtractTimeout <= 0 {
		config.ExtractTimeout = 15 * time.Second
	}
	if config.ResolveTimeout <= 0 {
		config.ResolveTimeout = 120 * time.Second
	}
	if config.FinalizeTimeout <= 0 {
		config.FinalizeTimeout = 10 * time.Second
	}

	return &Dispatcher{
		config:      config,
		transcriber: transcriber,
		extractor:   extractor,
		resolver:    resolver,
		coordinator: coordinator,
		logger:      logger,
		metrics:     m,
		jobs:        make(chan Job, config.QueueSize),
	}, nil
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.logger.Info("Dispatch pool started",
		slog.Int("workers", d.config.Workers),
		slog.Int("queue_capacity", d.config.QueueSize),
	)
}

// Stop closes the queue, waits for in-flight jobs to reach their terminal
// finalize, and logs final statistics. Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	d.logger.Info("Stopping dispatch pool...")
	d.wg.Wait()

	d.mu.RLock()
	processed := d.jobsProcessed
	failed := d.jobsFailed
	rejected := d.jobsRejected
	d.mu.RUnlock()

	d.logger.Info("Dispatch pool stopped",
		slog.Uint64("jobs_processed", processed),
		slog.Uint64("jobs_failed", failed),
		slog.Uint64("jobs_rejected", rejected),
	)
}

// Enqueue adds a job to the queue without blocking. A full queue or a
// stopped dispatcher yields a busy error for the submitter to surface.
func (d *Dispatcher) Enqueue(job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return conversation.NewError(conversation.ErrorBusy, "service is shutting down", nil)
	}

	select {
	case d.jobs <- job:
		d.jobsEnqueued++
		if d.metrics != nil {
			d.metrics.SetQueueDepth(len(d.jobs))
		}
		return nil
	default:
		d.jobsRejected++
		d.logger.Warn("Dispatch queue full, rejecting recording",
			slog.String("chatid", job.ConversationID),
			slog.Int("queue_capacity", d.config.QueueSize),
		)
		return conversation.NewError(conversation.ErrorBusy, "processing queue is full", nil)
	}
}

// worker consumes jobs until the queue is closed.
func (d *Dispatcher) worker(workerID int) {
	defer d.wg.Done()

	d.logger.Debug("Dispatch worker started", slog.Int("worker_id", workerID))

	for job := range d.jobs {
		d.process(job, workerID)
	}

	d.logger.Debug("Dispatch worker stopped", slog.Int("worker_id", workerID))
}

// process runs one job through the pipeline. Every path ends in exactly one
// finalize call, and the spooled recording is removed on every exit.
func (d *Dispatcher) process(job Job, workerID int) {
	started := time.Now()

	defer func() {
		if err := os.Remove(job.AudioPath); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("Failed to remove spooled recording",
				slog.String("path", job.AudioPath),
				slog.String("error", err.Error()),
			)
		}
		if d.metrics != nil {
			d.metrics.SetQueueDepth(len(d.jobs))
		}
	}()

	d.logger.Info("Processing recording",
		slog.String("chatid", job.ConversationID),
		slog.String("path", job.AudioPath),
		slog.Duration("queue_wait", time.Since(job.EnqueuedAt)),
		slog.Int("worker_id", workerID),
	)

	transcript, err := d.transcribe(job)
	if err != nil {
		d.logger.Error("Transcription failed",
			slog.String("chatid", job.ConversationID),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
		)
		d.finalize(job, transcribeFailedQuestion, dependencyFailedAnswer,
			fmt.Sprintf("%s: %v", stageTranscribe, err), outcomeFailed, workerID)
		return
	}

	if transcript == "" {
		d.logger.Info("Recording produced an empty transcript",
			slog.String("chatid", job.ConversationID),
			slog.Int("worker_id", workerID),
		)
		d.finalize(job, noQuestionQuestion, noQuestionAnswer, "", outcomeClarified, workerID)
		return
	}

	result, err := d.extract(job, transcript)
	if err != nil {
		d.logger.Error("Query extraction failed",
			slog.String("chatid", job.ConversationID),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
		)
		d.finalize(job, transcript, dependencyFailedAnswer,
			fmt.Sprintf("%s: %v", stageExtract, err), outcomeFailed, workerID)
		return
	}

	question := strings.TrimSpace(result.Question)
	if !result.IsQuery || question == "" {
		d.logger.Info("Transcript contains no question",
			slog.String("chatid", job.ConversationID),
			slog.Int("transcript_length", len(transcript)),
			slog.Int("worker_id", workerID),
		)
		d.finalize(job, noQuestionQuestion, noQuestionAnswer, "", outcomeClarified, workerID)
		return
	}

	// Publish the in-flight question so status polls see it immediately
	if err := d.coordinator.AcceptQuestion(job.ConversationID, question); err != nil {
		d.logger.Warn("Failed to publish in-flight question",
			slog.String("chatid", job.ConversationID),
			slog.String("error", err.Error()),
		)
	}

	answer, err := d.resolve(job, question)
	if err != nil {
		d.logger.Error("Answer resolution failed",
			slog.String("chatid", job.ConversationID),
			slog.String("question", question),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
		)
		d.finalize(job, question, dependencyFailedAnswer,
			fmt.Sprintf("%s: %v", stageResolve, err), outcomeFailed, workerID)
		return
	}

	d.finalize(job, question, answer, "", outcomeAnswered, workerID)

	d.logger.Info("Recording processed",
		slog.String("chatid", job.ConversationID),
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("worker_id", workerID),
	)
}

func (d *Dispatcher) transcribe(job Job) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.TranscribeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.transcriber.Transcribe(ctx, job.AudioPath, job.ConversationID)
	d.observeStage(stageTranscribe, start, err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (d *Dispatcher) extract(job Job, transcript string) (*extraction.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.ExtractTimeout)
	defer cancel()

	start := time.Now()
	result, err := d.extractor.ExtractQuery(ctx, transcript)
	d.observeStage(stageExtract, start, err)
	return result, err
}

func (d *Dispatcher) resolve(job Job, question string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.ResolveTimeout)
	defer cancel()

	start := time.Now()
	answer, err := d.resolver.Resolve(ctx, job.ConversationID, question)
	d.observeStage(stageResolve, start, err)
	return answer, err
}

// finalize writes the terminal record for a job. A store failure here is
// logged and counted, not retried.
func (d *Dispatcher) finalize(job Job, question, answer, failureReason, outcome string, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.FinalizeTimeout)
	defer cancel()

	start := time.Now()
	docID, err := d.coordinator.FinalizeAnswer(ctx, exchange.Finalization{
		ConversationID: job.ConversationID,
		Question:       question,
		Answer:         answer,
		FailureReason:  failureReason,
	})
	d.observeStage(stageFinalize, start, err)
	if err != nil {
		d.logger.Error("Failed to finalize answer",
			slog.String("chatid", job.ConversationID),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
		)
		d.recordOutcome(outcomeFailed)
		return
	}

	d.recordOutcome(outcome)

	d.logger.Info("Answer finalized",
		slog.String("chatid", job.ConversationID),
		slog.String("doc_id", docID),
		slog.String("outcome", outcome),
		slog.Int("worker_id", workerID),
	)
}

func (d *Dispatcher) observeStage(stage string, start time.Time, err error) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordStageDuration(stage, time.Since(start).Seconds())
	if err != nil {
		d.metrics.RecordStageFailure(stage)
	}
}

func (d *Dispatcher) recordOutcome(outcome string) {
	d.mu.Lock()
	d.jobsProcessed++
	if outcome == outcomeFailed {
		d.jobsFailed++
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.RecordJobCompleted(outcome)
	}
}

// GetStats returns current dispatcher statistics
func (d *Dispatcher) GetStats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Stats{
		JobsEnqueued:  d.jobsEnqueued,
		JobsRejected:  d.jobsRejected,
		JobsProcessed: d.jobsProcessed,
		JobsFailed:    d.jobsFailed,
		QueueDepth:    len(d.jobs),
		QueueCapacity: cap(d.jobs),
		Workers:       d.config.Workers,
	}
}

// Package session implements the per-call streaming state machine: it
// accumulates inbound audio chunks, decides when enough evidence exists
// to classify, and emits verdicts until one is confident enough to end
// the session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/outdial/amd/internal/log"
	"github.com/outdial/amd/pkg/audio"
	"github.com/outdial/amd/pkg/classify"
)

// State is the session lifecycle phase.
type State int

const (
	// StateAwaitingAudio is the initial state before any chunk.
	StateAwaitingAudio State = iota
	// StateBuffering accumulates chunks below the duration threshold.
	StateBuffering
	// StateClassifying runs preprocessing and the classifier.
	StateClassifying
	// StateDone is terminal.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingAudio:
		return "awaiting_audio"
	case StateBuffering:
		return "buffering"
	case StateClassifying:
		return "classifying"
	case StateDone:
		return "done"
	default:
		return "invalid"
	}
}

// ReasonTimeout tags verdicts forced by the idle timeout rather than
// the duration threshold.
const ReasonTimeout = "timeout"

// Result is the outbound verdict message.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	DurationMs int     `json:"duration_ms"`
	Reason     string  `json:"reason,omitempty"`
}

// Conn abstracts the bidirectional transport under a session, so the
// state machine is testable without a live websocket.
type Conn interface {
	// ReadChunk blocks for the next binary audio frame until deadline.
	// A deadline expiry must surface as a timeout error (net.Error
	// with Timeout() true, or os.ErrDeadlineExceeded).
	ReadChunk(deadline time.Time) ([]byte, error)

	// WriteResult sends a verdict to the client.
	WriteResult(Result) error

	// Close terminates the transport.
	Close() error
}

// Session drives one audio stream from connect to terminal verdict.
// It owns its buffer exclusively; the classifier and nothing else is
// shared with other sessions.
type Session struct {
	id         string
	conn       Conn
	classifier classify.Classifier
	cfg        Config

	buffer *audio.Buffer
	state  State
	logger *slog.Logger
}

// New creates a session over conn. The buffer starts empty.
func New(conn Conn, classifier classify.Classifier, cfg Config) *Session {
	id := uuid.NewString()
	return &Session{
		id:         id,
		conn:       conn,
		classifier: classifier,
		cfg:        cfg,
		buffer:     audio.NewBuffer(cfg.SampleRate, cfg.Channels),
		state:      StateAwaitingAudio,
		logger:     log.With("session", id),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Run processes the stream until a terminal verdict, idle expiry, or
// disconnect. Chunks are handled strictly in arrival order. A
// disconnect discards the buffer and returns nil; the client simply
// never receives a final verdict.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("stream started",
		"sample_rate", s.cfg.SampleRate,
		"threshold_ms", s.cfg.BufferThresholdMs)
	defer s.conn.Close()

	for s.state != StateDone {
		if err := ctx.Err(); err != nil {
			s.abandon("context cancelled")
			return nil
		}

		chunk, err := s.conn.ReadChunk(time.Now().Add(s.cfg.IdleTimeout))
		if err != nil {
			if isTimeout(err) {
				s.onIdleTimeout()
				continue
			}
			// Disconnect or transport failure: best-effort cleanup,
			// no final verdict.
			s.abandon("disconnected")
			return nil
		}

		s.buffer.Append(chunk)
		if s.state == StateAwaitingAudio {
			s.state = StateBuffering
		}

		if s.buffer.DurationMs() >= s.cfg.BufferThresholdMs {
			if err := s.classifyAndEmit(ctx, ""); err != nil {
				s.abandon("write failed")
				return err
			}
		}
	}

	return nil
}

// onIdleTimeout forces a classification over whatever audio arrived,
// or ends an entirely silent session.
func (s *Session) onIdleTimeout() {
	if s.buffer.IsEmpty() {
		s.logger.Info("idle timeout with no audio, closing")
		s.state = StateDone
		return
	}

	s.logger.Info("idle timeout, classifying buffered audio",
		"duration_ms", s.buffer.DurationMs())
	if err := s.classifyAndEmit(context.Background(), ReasonTimeout); err != nil {
		s.logger.Warn("failed to deliver timeout verdict", "error", err)
	}
	// Timeout-forced classification always terminates, regardless of
	// confidence: no more audio is coming.
	s.state = StateDone
}

// classifyAndEmit preprocesses the buffer, classifies it, and sends
// the verdict. The returned error is a transport failure only;
// classification failures arrive as unknown verdicts.
func (s *Session) classifyAndEmit(ctx context.Context, reason string) error {
	s.state = StateClassifying
	durationMs := s.buffer.DurationMs()

	samples := s.preprocess(s.buffer.Samples())
	verdict := s.classifier.Classify(ctx, samples, s.cfg.SampleRate)

	result := Result{
		Label:      string(verdict.Label),
		Confidence: verdict.Confidence,
		DurationMs: durationMs,
		Reason:     reason,
	}
	if err := s.conn.WriteResult(result); err != nil {
		return err
	}

	s.logger.Info("verdict emitted",
		"label", result.Label,
		"confidence", result.Confidence,
		"duration_ms", result.DurationMs,
		"reason", reason,
		"latency", verdict.ProcessingTime)

	if verdict.Confidence > s.cfg.DecisionThreshold {
		s.logger.Info("decision threshold reached, closing")
		s.state = StateDone
		return nil
	}

	// Not confident yet: discard the evidence and keep listening.
	s.buffer.Clear()
	s.state = StateBuffering
	return nil
}

func (s *Session) preprocess(samples []float32) []float32 {
	if s.cfg.Preprocess {
		samples = audio.TrimSilence(samples, s.cfg.SilenceThreshold)
		samples = audio.Normalize(samples, s.cfg.TargetPeak)
	}
	return audio.Truncate(samples, s.cfg.SampleRate, s.cfg.MaxAudioSeconds)
}

func (s *Session) abandon(why string) {
	s.logger.Info("stream ended", "reason", why, "state", s.state.String())
	s.buffer.Clear()
	s.state = StateDone
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

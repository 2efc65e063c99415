package session

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/outdial/amd/pkg/classify"
)

// timeoutErr mimics a read-deadline expiry.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "read timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// fakeConn feeds a scripted chunk sequence and records emitted
// results. Once the script is exhausted, ReadChunk returns exhausted.
type fakeConn struct {
	mu        sync.Mutex
	chunks    [][]byte
	exhausted error
	results   []Result
	closed    bool
}

func (f *fakeConn) ReadChunk(deadline time.Time) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.chunks) == 0 {
		return nil, f.exhausted
	}
	c := f.chunks[0]
	f.chunks = f.chunks[1:]
	return c, nil
}

func (f *fakeConn) WriteResult(r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) Results() []Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Result(nil), f.results...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 20 * time.Millisecond
	cfg.Preprocess = false
	return cfg
}

func TestSession_BelowThreshold_NoClassification(t *testing.T) {
	// 3 x 6000 bytes at 16kHz = 562ms, under the 3000ms threshold:
	// the session must not classify before more audio arrives.
	conn := &fakeConn{
		chunks:    [][]byte{make([]byte, 6000), make([]byte, 6000), make([]byte, 6000)},
		exhausted: io.EOF,
	}
	mock := classify.NewMock(classify.Verdict{Label: classify.LabelHuman, Confidence: 0.99})

	s := New(conn, mock, testConfig())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if mock.Calls() != 0 {
		t.Errorf("expected no classification, got %d", mock.Calls())
	}
	if len(conn.Results()) != 0 {
		t.Errorf("expected no results, got %d", len(conn.Results()))
	}
	if s.State() != StateDone {
		t.Errorf("expected done after disconnect, got %s", s.State())
	}
	if !conn.closed {
		t.Error("connection should be closed")
	}
}

func TestSession_IdleTimeout_ForcesVerdict(t *testing.T) {
	// 500ms of audio, then silence: the idle timeout must force
	// exactly one verdict tagged "timeout" and close the session.
	conn := &fakeConn{
		chunks:    [][]byte{make([]byte, 16000)},
		exhausted: timeoutErr{},
	}
	mock := classify.NewMock(classify.Verdict{Label: classify.LabelVoicemail, Confidence: 0.4})

	s := New(conn, mock, testConfig())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	results := conn.Results()
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
	if results[0].Reason != ReasonTimeout {
		t.Errorf("expected reason %q, got %q", ReasonTimeout, results[0].Reason)
	}
	if results[0].DurationMs != 500 {
		t.Errorf("expected duration 500ms, got %d", results[0].DurationMs)
	}
	// Low confidence, but timeout-forced verdicts still terminate.
	if s.State() != StateDone {
		t.Errorf("expected done, got %s", s.State())
	}
	if !conn.closed {
		t.Error("connection should be closed")
	}
}

func TestSession_IdleTimeout_EmptyBuffer(t *testing.T) {
	conn := &fakeConn{exhausted: timeoutErr{}}
	mock := classify.NewMock(classify.Verdict{Label: classify.LabelHuman, Confidence: 0.9})

	s := New(conn, mock, testConfig())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if mock.Calls() != 0 {
		t.Error("silent session should not classify")
	}
	if len(conn.Results()) != 0 {
		t.Error("silent session should emit no verdict")
	}
}

func TestSession_HighConfidence_Closes(t *testing.T) {
	cfg := testConfig()
	cfg.BufferThresholdMs = 100
	cfg.DecisionThreshold = 0.7

	// One 100ms chunk reaches the threshold immediately.
	conn := &fakeConn{
		chunks:    [][]byte{make([]byte, 3200)},
		exhausted: timeoutErr{},
	}
	mock := classify.NewMock(classify.Verdict{Label: classify.LabelVoicemail, Confidence: 0.95})

	s := New(conn, mock, cfg)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	results := conn.Results()
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
	if results[0].Reason != "" {
		t.Errorf("threshold-triggered verdict should carry no reason, got %q", results[0].Reason)
	}
	if results[0].Label != "voicemail" || results[0].Confidence != 0.95 {
		t.Errorf("unexpected result %+v", results[0])
	}
	if mock.Calls() != 1 {
		t.Errorf("expected 1 classification, got %d", mock.Calls())
	}
}

func TestSession_LowConfidence_ClearsAndContinues(t *testing.T) {
	cfg := testConfig()
	cfg.BufferThresholdMs = 100
	cfg.DecisionThreshold = 0.7

	// First verdict at 0.6 must clear the buffer and keep listening;
	// the second at 0.95 closes the session.
	conn := &fakeConn{
		chunks:    [][]byte{make([]byte, 3200), make([]byte, 3200)},
		exhausted: timeoutErr{},
	}
	mock := classify.NewMock(
		classify.Verdict{Label: classify.LabelHuman, Confidence: 0.6},
		classify.Verdict{Label: classify.LabelHuman, Confidence: 0.95},
	)

	s := New(conn, mock, cfg)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	results := conn.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Confidence != 0.6 || results[1].Confidence != 0.95 {
		t.Errorf("unexpected confidences %f, %f", results[0].Confidence, results[1].Confidence)
	}
	// The buffer was cleared between attempts, so the second verdict
	// covers only the second chunk.
	if results[1].DurationMs != 100 {
		t.Errorf("expected second verdict over 100ms, got %d", results[1].DurationMs)
	}
	if mock.Calls() != 2 {
		t.Errorf("expected 2 classifications, got %d", mock.Calls())
	}
}

func TestSession_TruncatesBeforeClassification(t *testing.T) {
	cfg := testConfig()
	cfg.BufferThresholdMs = 1000
	cfg.MaxAudioSeconds = 1

	// 2 seconds of audio in one chunk; the classifier must see at
	// most 1 second.
	conn := &fakeConn{
		chunks:    [][]byte{make([]byte, 64000)},
		exhausted: timeoutErr{},
	}
	mock := classify.NewMock(classify.Verdict{Label: classify.LabelHuman, Confidence: 0.99})

	s := New(conn, mock, cfg)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(mock.LastSamples) != 16000 {
		t.Errorf("expected classifier input capped at 16000 samples, got %d", len(mock.LastSamples))
	}
}

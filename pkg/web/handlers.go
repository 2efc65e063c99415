package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/outdial/amd/internal/log"
	"github.com/outdial/amd/pkg/audio"
	"github.com/outdial/amd/pkg/classify"
)

// PredictResponse is the one-shot local-model prediction result.
type PredictResponse struct {
	Label            string         `json:"label"`
	Confidence       float64        `json:"confidence"`
	Reasoning        string         `json:"reasoning,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	AudioMetrics     *audio.Metrics `json:"audioMetrics,omitempty"`
	CallSid          string         `json:"callSid,omitempty"`
}

// GeminiResponse mirrors the remote classifier's uppercase result
// vocabulary.
type GeminiResponse struct {
	Result           string  `json:"result"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning,omitempty"`
	ProcessingTimeMs int64   `json:"processingTimeMs"`
}

// handlePredict runs the one-shot local-model path: admission, header
// and payload validation, preprocessing, classification.
func (s *Server) handlePredict(c *fiber.Ctx) error {
	if !s.admit(c, s.opts.PredictLimiter) {
		return nil
	}
	s.predictRequests.Add(1)

	callSid := c.Get("X-Call-SID")
	if !validCallSID(callSid) {
		return badRequest(c, "invalid Call SID format")
	}
	if callSid == "" {
		callSid = "unknown"
	}

	if s.opts.Local == nil {
		return serviceUnavailable(c, "local model not configured")
	}
	if s.opts.Loader != nil {
		// Surface a load failure as 503 instead of a degraded
		// verdict; the next request retries the load.
		if err := s.opts.Loader.EnsureLoaded(); err != nil {
			log.Error("model unavailable", "error", err)
			return serviceUnavailable(c, "model unavailable")
		}
	}

	data, errResp := s.readUpload(c)
	if data == nil {
		return errResp
	}

	preprocess := c.QueryBool("preprocess", true)
	log.Info("processing prediction",
		"call_sid", callSid,
		"client_ip", clientIP(c),
		"bytes", len(data),
		"preprocess", preprocess)

	sampleRate := s.opts.SessionConfig.SampleRate
	samples, rate, err := audio.Decode(data, sampleRate)
	if err != nil {
		return badRequest(c, fmt.Sprintf("could not decode audio: %v", err))
	}

	metrics := audio.ComputeMetrics(samples, rate)
	if preprocess {
		samples = audio.TrimSilence(samples, s.opts.SessionConfig.SilenceThreshold)
		samples = audio.Normalize(samples, s.opts.SessionConfig.TargetPeak)
	}
	samples = audio.Truncate(samples, rate, s.opts.SessionConfig.MaxAudioSeconds)

	verdict := s.opts.Local.Classify(c.Context(), samples, rate)
	s.countVerdict(verdict.Label)

	log.Info("prediction result",
		"call_sid", callSid,
		"label", verdict.Label,
		"confidence", verdict.Confidence,
		"latency", verdict.ProcessingTime)

	return c.JSON(PredictResponse{
		Label:            string(verdict.Label),
		Confidence:       verdict.Confidence,
		Reasoning:        verdict.Reasoning,
		ProcessingTimeMs: verdict.ProcessingTime.Milliseconds(),
		AudioMetrics:     &metrics,
		CallSid:          callSid,
	})
}

// handleGemini runs the one-shot remote path.
func (s *Server) handleGemini(c *fiber.Ctx) error {
	if !s.admit(c, s.opts.PredictLimiter) {
		return nil
	}
	s.predictRequests.Add(1)

	callSid := c.Get("X-Call-SID")
	if !validCallSID(callSid) {
		return badRequest(c, "invalid Call SID format")
	}
	if callSid == "" {
		callSid = "unknown"
	}

	if s.opts.Gemini == nil {
		return serviceUnavailable(c, "Gemini API key not configured")
	}

	data, errResp := s.readUpload(c)
	if data == nil {
		return errResp
	}

	log.Info("processing Gemini prediction", "call_sid", callSid, "client_ip", clientIP(c))

	sampleRate := s.opts.SessionConfig.SampleRate
	samples, rate, err := audio.Decode(data, sampleRate)
	if err != nil {
		return badRequest(c, fmt.Sprintf("could not decode audio: %v", err))
	}

	verdict := s.opts.Gemini.Classify(c.Context(), samples, rate)
	s.countVerdict(verdict.Label)

	log.Info("Gemini result",
		"call_sid", callSid,
		"label", verdict.Label,
		"confidence", verdict.Confidence)

	return c.JSON(GeminiResponse{
		Result:           upper(verdict.Label),
		Confidence:       verdict.Confidence,
		Reasoning:        verdict.Reasoning,
		ProcessingTimeMs: verdict.ProcessingTime.Milliseconds(),
	})
}

// readUpload validates and reads the multipart "audio" field. On
// failure it writes the error response and returns nil data.
func (s *Server) readUpload(c *fiber.Ctx) ([]byte, error) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return nil, badRequest(c, "missing audio file field")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedContentType(contentType) {
		return nil, badRequest(c, fmt.Sprintf(
			"unsupported audio format: %s (supported: WAV, MP3, MP4, raw PCM)", contentType))
	}

	if s.opts.MaxUploadBytes > 0 && fileHeader.Size > s.opts.MaxUploadBytes {
		return nil, c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("file too large, maximum size %d bytes", s.opts.MaxUploadBytes),
		})
	}

	data, err := readFile(fileHeader)
	if err != nil {
		return nil, badRequest(c, "could not read audio file")
	}

	if int64(len(data)) < s.opts.MinUploadBytes {
		return nil, badRequest(c, fmt.Sprintf(
			"audio file too small (< %d bytes)", s.opts.MinUploadBytes))
	}
	return data, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleHealth is the cheap liveness probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "amd-service",
		"version": s.opts.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleDetailedHealth reports per-backend readiness. It has its own,
// looser rate limit so monitoring cannot starve predictions.
func (s *Server) handleDetailedHealth(c *fiber.Ctx) error {
	if !s.admit(c, s.opts.HealthLimiter) {
		return nil
	}

	local := fiber.Map{
		"configured": s.opts.Local != nil,
		"loaded":     false,
		"status":     "not_configured",
	}
	if s.opts.Local != nil {
		local["status"] = "ready"
	}
	if s.opts.Loader != nil && s.opts.Loader.Configured() {
		local["loaded"] = s.opts.Loader.Loaded()
		if s.opts.Loader.Loaded() {
			local["status"] = "ready"
		} else {
			local["status"] = "not_loaded"
		}
	}

	gemini := fiber.Map{
		"configured": s.opts.Gemini != nil,
		"status":     "not_configured",
	}
	if s.opts.Gemini != nil {
		gemini["status"] = "ready"
	}

	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": s.opts.Version,
		"services": fiber.Map{
			"local":  local,
			"gemini": gemini,
		},
	})
}

// handleModelInfo reports local model metadata. Read-only.
func (s *Server) handleModelInfo(c *fiber.Ctx) error {
	resp := fiber.Map{
		"configured":           s.opts.Loader != nil && s.opts.Loader.Configured(),
		"loaded":               false,
		"sample_rate":          s.opts.SessionConfig.SampleRate,
		"confidence_threshold": s.opts.SessionConfig.DecisionThreshold,
	}
	if s.opts.Loader != nil {
		if info, ok := s.opts.Loader.Info(); ok {
			resp["loaded"] = true
			resp["model"] = info
		}
	}
	return c.JSON(resp)
}

// handleMetrics exposes counters in Prometheus text exposition format.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/plain; charset=utf-8")
	return c.SendString(fmt.Sprintf(`# HELP amd_predict_requests Total one-shot prediction requests
# TYPE amd_predict_requests counter
amd_predict_requests %d

# HELP amd_stream_sessions Total streaming sessions accepted
# TYPE amd_stream_sessions counter
amd_stream_sessions %d

# HELP amd_active_sessions Streaming sessions currently running
# TYPE amd_active_sessions gauge
amd_active_sessions %d

# HELP amd_rate_limited Requests denied by the rate limiter
# TYPE amd_rate_limited counter
amd_rate_limited %d

# HELP amd_verdicts Verdicts by label
# TYPE amd_verdicts counter
amd_verdicts{label="human"} %d
amd_verdicts{label="voicemail"} %d
amd_verdicts{label="unknown"} %d
`,
		s.predictRequests.Load(),
		s.streamSessions.Load(),
		s.activeSessions.Load(),
		s.rateLimited.Load(),
		s.verdictsHuman.Load(),
		s.verdictsMachine.Load(),
		s.verdictsUnknown.Load(),
	))
}

// upper maps canonical labels onto the remote route's result
// vocabulary.
func upper(label classify.Label) string {
	switch label {
	case classify.LabelHuman:
		return "HUMAN"
	case classify.LabelVoicemail:
		return "MACHINE"
	default:
		return "UNDECIDED"
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func serviceUnavailable(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": msg})
}

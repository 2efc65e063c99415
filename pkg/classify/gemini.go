package classify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/outdial/amd/pkg/audio"
)

// Gemini classifies call audio with the Gemini Files API: the recording
// is uploaded, polled until the remote side finishes ingesting it, sent
// through one generateContent call, and deleted again regardless of the
// outcome.
type Gemini struct {
	client *genai.Client
	cfg    *Config
}

// NewGemini creates the remote classifier. Returns ErrNoAPIKey when
// apiKey is empty so callers can report the backend as unconfigured
// instead of failing at request time.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: gemini client: %w", err)
	}

	return &Gemini{client: client, cfg: cfg}, nil
}

// Name identifies the backend.
func (g *Gemini) Name() string { return "gemini" }

// Classify uploads the samples as WAV and asks the model for a verdict.
// Failures come back as unknown verdicts, never as errors.
func (g *Gemini) Classify(ctx context.Context, samples []float32, sampleRate int) Verdict {
	start := time.Now()

	if len(samples) == 0 {
		return failureVerdict(start, ErrEmptyAudio)
	}

	wav := audio.EncodeWAV(samples, sampleRate)
	verdict, err := g.analyze(ctx, wav)
	if err != nil {
		g.cfg.Logger.Error("gemini classification failed", "error", err)
		return failureVerdict(start, err)
	}

	verdict.ProcessingTime = time.Since(start)
	return verdict
}

func (g *Gemini) analyze(ctx context.Context, wav []byte) (Verdict, error) {
	file, err := g.client.Files.Upload(ctx, bytes.NewReader(wav), &genai.UploadFileConfig{
		MIMEType:    "audio/wav",
		DisplayName: "call_" + uuid.NewString(),
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("upload: %w", err)
	}

	// The upload must be removed on every path. Classification calls
	// are synchronous, so a short background deadline is enough even
	// when the request context is already cancelled.
	defer func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := g.client.Files.Delete(delCtx, file.Name, nil); err != nil {
			g.cfg.Logger.Warn("failed to delete uploaded audio", "file", file.Name, "error", err)
		}
	}()

	// Poll until the remote side finishes processing the upload. There
	// is deliberately no attempt cap; the caller's context bounds us.
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		case <-time.After(g.cfg.PollInterval):
		}
		file, err = g.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return Verdict{}, fmt.Errorf("poll upload: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		return Verdict{}, ErrProcessingFailed
	}

	genCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(genCtx, g.cfg.Model, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: classificationPrompt},
				{FileData: &genai.FileData{FileURI: file.URI, MIMEType: file.MIMEType}},
			},
		},
	}, g.generateConfig())
	if err != nil {
		return Verdict{}, fmt.Errorf("generate: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		// Safety filters blocked the response. Not an error: the call
		// gets an undecided verdict instead.
		g.cfg.Logger.Warn("gemini response blocked", "finish_reason", finishReason(resp))
		return Verdict{
			Label:      LabelUnknown,
			Confidence: 0.5,
			Reasoning:  "response blocked by safety filters",
		}, nil
	}

	label, confidence, reasoning := ParseResponse(text)
	return Verdict{Label: label, Confidence: confidence, Reasoning: reasoning}, nil
}

func (g *Gemini) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.cfg.Temperature),
		TopP:            genai.Ptr(g.cfg.TopP),
		TopK:            genai.Ptr(g.cfg.TopK),
		MaxOutputTokens: g.cfg.MaxOutputTokens,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return "unknown"
	}
	return string(resp.Candidates[0].FinishReason)
}

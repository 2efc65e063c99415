package classify

import (
	"encoding/json"
	"regexp"
	"strings"
)

// jsonObject matches the first brace-delimited object in a model
// response, which may be wrapped in prose or markdown fences.
var jsonObject = regexp.MustCompile(`(?s)\{.*?\}`)

type modelResponse struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// ParseResponse interprets a generative model's text response as a
// classification. It prefers the structured JSON contract and falls
// back to keyword matching when the model diverges from it. The
// returned confidence is always clamped to [0, 1].
func ParseResponse(text string) (Label, float64, string) {
	if match := jsonObject.FindString(text); match != "" {
		var r modelResponse
		if err := json.Unmarshal([]byte(match), &r); err == nil {
			if label, ok := canonicalLabel(r.Classification); ok {
				return label, clampConfidence(r.Confidence), r.Reasoning
			}
		}
	}

	// Keyword fallback for free-text answers.
	lower := strings.ToLower(text)
	hasHuman := strings.Contains(lower, "human")
	hasMachine := strings.Contains(lower, "machine") || strings.Contains(lower, "voicemail")

	switch {
	case hasHuman && !hasMachine:
		return LabelHuman, 0.7, "detected human from text analysis"
	case hasMachine:
		return LabelVoicemail, 0.7, "detected machine from text analysis"
	}

	return LabelUnknown, 0.3, "could not parse response"
}

// canonicalLabel maps the model's uppercase vocabulary onto wire
// labels.
func canonicalLabel(classification string) (Label, bool) {
	switch strings.ToUpper(strings.TrimSpace(classification)) {
	case "HUMAN":
		return LabelHuman, true
	case "MACHINE", "VOICEMAIL":
		return LabelVoicemail, true
	case "UNDECIDED", "UNKNOWN":
		return LabelUnknown, true
	}
	return "", false
}

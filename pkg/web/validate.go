package web

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// callSIDPattern matches dialer call identifiers (e.g. Twilio call
// SIDs), case-insensitive.
var callSIDPattern = regexp.MustCompile(`(?i)^CA[a-f0-9]{32}$`)

// allowedContentTypes lists the upload MIME types accepted by the
// one-shot endpoints. Dialers occasionally send recordings as plain
// octet-stream, so that passes too.
var allowedContentTypes = map[string]bool{
	"audio/wav":                true,
	"audio/x-wav":              true,
	"audio/wave":               true,
	"audio/mpeg":               true,
	"audio/mp3":                true,
	"audio/mp4":                true,
	"application/octet-stream": true,
}

// clientIP extracts the caller's address, preferring proxy headers so
// rate limiting keys on the real client behind a load balancer.
func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}

// validCallSID reports whether sid is empty (the header is optional)
// or matches the call identifier pattern.
func validCallSID(sid string) bool {
	return sid == "" || callSIDPattern.MatchString(sid)
}

// allowedContentType checks the upload MIME type against the
// allow-list, ignoring any charset suffix.
func allowedContentType(contentType string) bool {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return allowedContentTypes[strings.TrimSpace(strings.ToLower(contentType))]
}

// Package redact masks vendor credentials in text that is about to be logged.
// Vendor error bodies sometimes echo the key that was sent.
package redact

import (
	"regexp"

	"go.uber.org/zap"
)

// Mask replaces every detected secret
const Mask = "[REDACTED]"

// keyPatterns matches the credential formats of the supported vendors plus
// bearer headers. Longer, more specific prefixes come first.
var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`\bsk-or-v1-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`\bxai-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`),
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-\.]{20,}`),
}

// apiKeyParam catches keys passed as query parameters (key=..., api_key=...)
var apiKeyParam = regexp.MustCompile(`(?i)\b((?:api[_\-]?)?key=)[^&\s"']{8,}`)

// String returns s with vendor credentials masked
func String(s string) string {
	for _, pattern := range keyPatterns {
		s = pattern.ReplaceAllString(s, Mask)
	}
	return apiKeyParam.ReplaceAllString(s, "${1}"+Mask)
}

// Contains reports whether s holds anything String would mask
func Contains(s string) bool {
	return String(s) != s
}

// Error is zap.Error with the message passed through String
func Error(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", String(err.Error()))
}

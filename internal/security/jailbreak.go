package security

import "strings"

// JailbreakDetector scans messages for known prompt-injection phrasing.
// Matching is case-insensitive substring search; detection leaks no detail
// to the caller beyond a generic rejection.
type JailbreakDetector struct {
	patterns []string
}

// NewJailbreakDetector creates a detector with the fixed pattern list
func NewJailbreakDetector() *JailbreakDetector {
	return &JailbreakDetector{
		patterns: []string{
			"ignore previous instructions",
			"ignore all previous",
			"disregard previous",
			"forget everything",
			"new instructions",
			"you are now",
			"act as if",
			"pretend you are",
			"system:",
			"override",
			"sudo mode",
			"admin mode",
			"developer mode",
			"god mode",
		},
	}
}

// Detect reports whether the message matches any known injection pattern
func (d *JailbreakDetector) Detect(message string) bool {
	lower := strings.ToLower(message)
	for _, p := range d.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

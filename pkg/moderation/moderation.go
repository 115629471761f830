// Package moderation classifies outgoing chat text. It is pure: no state,
// no I/O, same answer for the same input.
package moderation

import (
	"regexp"
	"strings"

	"live-classroom/constant"
)

// RedactionToken replaces a matched contact detail in the sanitized text.
const RedactionToken = "[redacted]"

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

var (
	// Local part, @ (ASCII or full-width, with optional surrounding
	// whitespace), domain, dot, TLD of 2+ letters.
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+\s*[@＠]\s*[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,}`)

	// Candidate digit runs with phone-style separators; digit count decides
	// whether a candidate actually reads as a phone number.
	phoneCandidate = regexp.MustCompile(`\+?\(?\d[\d\s.\-()]*\d`)
)

type Result struct {
	Blocked   bool
	Reason    constant.ModerationReason
	Sanitized string
}

// Moderate decides block/allow for one message and returns the sanitized
// variant. Email wins over phone when both match. Empty or whitespace-only
// input passes through trimmed.
func Moderate(message string) Result {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Result{Sanitized: trimmed}
	}

	if emailPattern.MatchString(trimmed) {
		return Result{
			Blocked:   true,
			Reason:    constant.ReasonEmailDetected,
			Sanitized: emailPattern.ReplaceAllString(trimmed, RedactionToken),
		}
	}

	blocked := false
	sanitized := phoneCandidate.ReplaceAllStringFunc(trimmed, func(candidate string) string {
		if !looksLikePhone(candidate) {
			return candidate
		}
		blocked = true
		return RedactionToken
	})
	if blocked {
		return Result{
			Blocked:   true,
			Reason:    constant.ReasonPhoneDetected,
			Sanitized: sanitized,
		}
	}

	return Result{Sanitized: trimmed}
}

func looksLikePhone(candidate string) bool {
	digits := 0
	for _, r := range candidate {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

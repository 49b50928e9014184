// Package annotation derives campaign tags and a short summary from free-text
// campaign descriptions. Providers are total: they never return an error, and
// fall back to a deterministic local result when the external model is
// unavailable or replies with something unusable.
package annotation

import (
	"context"
	"strings"
)

// SummaryLimit is the maximum number of description characters carried into a
// fallback summary before truncation.
const SummaryLimit = 100

// FallbackTags are the tags applied when annotation is unavailable.
var FallbackTags = []string{"default", "fallback"}

// Result holds the derived tags and summary for a campaign description.
type Result struct {
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

// Provider derives tags and a summary from a campaign description.
//
// Annotate must always return a usable Result. Failures of the underlying
// model (network, timeout, malformed output) are absorbed and replaced by
// Fallback; subscription creation is never blocked by annotation trouble.
type Provider interface {
	Annotate(ctx context.Context, description string) Result
}

// Fallback builds the substitute result used when annotation fails: fixed
// tags and the first SummaryLimit characters of the description, with an
// ellipsis marker when truncated.
func Fallback(description string) Result {
	return Result{
		Tags:    append([]string(nil), FallbackTags...),
		Summary: Truncate(description, SummaryLimit),
	}
}

// Truncate returns at most limit characters of s, appending "..." when
// anything was cut off.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// StripFences removes an enclosing markdown code fence, including an optional
// language hint on the opening fence, from a model reply. Text without fences
// is returned unchanged apart from surrounding whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}

	// Drop the opening fence line (```, ```json, ...) and a matching
	// closing fence if present.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

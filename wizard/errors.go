package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	ErrNotTerminalPage = errors.New("submit is only allowed on the last page")
	ErrPageIncomplete  = errors.New("current page has unset fields")
)

// ValidationError rejects a field update. The state is left unchanged.
type ValidationError struct {
	Field      string
	Value      any
	Reason     string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// suggest returns the candidate closest to input, or "" when nothing is
// close enough to be a plausible typo.
func suggest(input string, candidates []string) string {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return ""
	}
	best := ""
	bestDistance := -1
	for _, candidate := range candidates {
		distance := levenshtein.ComputeDistance(needle, strings.ToLower(candidate))
		if bestDistance == -1 || distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}
	limit := len(best) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDistance > limit {
		return ""
	}
	return best
}

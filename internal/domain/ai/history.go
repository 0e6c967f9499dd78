package ai

import "strings"

// Role of a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of a chat transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ParseRole maps client role names onto the two provider roles.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "model", "assistant", "ai", "bot":
		return RoleModel
	default:
		return RoleUser
	}
}

// NormalizeHistory prepares stored turns for a provider call. Providers require
// the first turn to come from the user, so leading model turns are dropped, and
// a trailing user turn equal to the new message is dropped to avoid sending it twice.
func NormalizeHistory(history []Turn, message string) []Turn {
	out := make([]Turn, 0, len(history))
	for _, t := range history {
		t.Role = ParseRole(string(t.Role))
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if len(out) == 0 && t.Role == RoleModel {
			continue
		}
		out = append(out, t)
	}
	if n := len(out); n > 0 && message != "" {
		last := out[n-1]
		if last.Role == RoleUser && strings.TrimSpace(last.Content) == strings.TrimSpace(message) {
			out = out[:n-1]
		}
	}
	return out
}

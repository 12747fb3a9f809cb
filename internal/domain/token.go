/**
 * @description
 * Callback action tokens. Inline keyboard buttons carry an opaque token that
 * encodes {verb, checklistID, taskIndex} as a colon-delimited string. Tokens
 * must stay under the platform callback-data ceiling (64 bytes), which a
 * verb, a UUID and a two-digit index comfortably fit.
 */
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Verbs understood by the callback dispatcher.
const (
	VerbToggle    = "toggle"
	VerbSubmit    = "submit"
	VerbRefresh   = "refresh"
	VerbSubscribe = "subscribe"
)

// ActionToken is the decoded form of a callback button payload.
type ActionToken struct {
	Verb        string
	ChecklistID string
	TaskIndex   int // -1 when the verb does not address a task
}

// Button is one inline keyboard button: a label plus its action token.
type Button struct {
	Label string
	Token string
}

// EncodeActionToken builds the wire form of an action token.
func EncodeActionToken(verb, checklistID string, taskIndex int) string {
	if taskIndex < 0 {
		return verb + ":" + checklistID
	}
	return verb + ":" + checklistID + ":" + strconv.Itoa(taskIndex)
}

// DecodeActionToken parses a callback payload back into an ActionToken.
func DecodeActionToken(raw string) (ActionToken, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ActionToken{}, fmt.Errorf("malformed action token %q", raw)
	}

	token := ActionToken{Verb: parts[0], ChecklistID: parts[1], TaskIndex: -1}
	switch token.Verb {
	case VerbToggle, VerbSubmit, VerbRefresh, VerbSubscribe:
	default:
		return ActionToken{}, fmt.Errorf("unknown action verb %q", token.Verb)
	}
	if token.ChecklistID == "" {
		return ActionToken{}, fmt.Errorf("action token %q missing checklist id", raw)
	}

	if len(parts) == 3 {
		idx, err := strconv.Atoi(parts[2])
		if err != nil || idx < 0 {
			return ActionToken{}, fmt.Errorf("invalid task index in token %q", raw)
		}
		token.TaskIndex = idx
	}
	return token, nil
}

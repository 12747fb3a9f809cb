package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestActionTokenRoundTrip(t *testing.T) {
	id := uuid.New().String()

	cases := []struct {
		name  string
		verb  string
		index int
	}{
		{"toggle with index", VerbToggle, 3},
		{"toggle first task", VerbToggle, 0},
		{"submit without index", VerbSubmit, -1},
		{"refresh without index", VerbRefresh, -1},
		{"subscribe without index", VerbSubscribe, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := EncodeActionToken(tc.verb, id, tc.index)
			token, err := DecodeActionToken(raw)
			if err != nil {
				t.Fatalf("decode %q: %v", raw, err)
			}
			if token.Verb != tc.verb || token.ChecklistID != id || token.TaskIndex != tc.index {
				t.Fatalf("decoded %+v from %q", token, raw)
			}
		})
	}
}

func TestDecodeActionTokenRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"verb only", "toggle"},
		{"unknown verb", "explode:cl-1:0"},
		{"missing checklist id", "toggle::0"},
		{"non-numeric index", "toggle:cl-1:abc"},
		{"negative index", "toggle:cl-1:-1"},
		{"too many parts", "toggle:cl-1:0:extra"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeActionToken(tc.raw); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

// Telegram caps callback data at 64 bytes; a verb plus a UUID plus a
// two-digit index must always fit.
func TestEncodeActionTokenStaysWithinCallbackLimit(t *testing.T) {
	id := uuid.New().String()
	for _, verb := range []string{VerbToggle, VerbSubmit, VerbRefresh, VerbSubscribe} {
		raw := EncodeActionToken(verb, id, 99)
		if len(raw) > 64 {
			t.Fatalf("token %q is %d bytes", raw, len(raw))
		}
	}
}

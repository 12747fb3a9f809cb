package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/focusly/coach-service/internal/domain"
)

func TestDispatchRendersEachAction(t *testing.T) {
	user := &domain.User{TelegramID: 7, Focus: "ship the launch"}
	checklist := &domain.Checklist{
		ID:     uuid.New().String(),
		UserID: 7,
		Tasks:  []domain.Task{{Text: "Write intro"}, {Text: "Walk", Completed: true, CarriedOver: true}},
	}

	cases := []struct {
		name         string
		action       Action
		dctx         DispatchContext
		wantFragment string
		wantKeyboard bool
	}{
		{"set focus", ActionPromptSetFocus, DispatchContext{}, "/focus", false},
		{"submit tasks", ActionPromptSubmitTasks, DispatchContext{}, "/generate", false},
		{"check in with checklist", ActionPromptCheckIn, DispatchContext{Checklist: checklist}, "check in", true},
		{"check in without checklist", ActionPromptCheckIn, DispatchContext{}, "/checkin", false},
		{"weekly with plan", ActionGenerateWeeklyChecklist, DispatchContext{Checklist: checklist}, "ship the launch", true},
		{"weekly without plan", ActionGenerateWeeklyChecklist, DispatchContext{}, "/generate", false},
		{"reflection", ActionWeeklyReflection, DispatchContext{}, "reflection", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			channel := &channelStub{}
			d := NewDispatcher(channel, testLogger())

			if err := d.Dispatch(context.Background(), user, tc.action, tc.dctx); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if len(channel.sent) != 1 {
				t.Fatalf("expected 1 message, got %d", len(channel.sent))
			}
			msg := channel.sent[0]
			if msg.userID != 7 {
				t.Fatalf("sent to user %d, want 7", msg.userID)
			}
			if !strings.Contains(strings.ToLower(msg.text), strings.ToLower(tc.wantFragment)) {
				t.Fatalf("message %q does not mention %q", msg.text, tc.wantFragment)
			}
			if tc.wantKeyboard && len(msg.keyboard) == 0 {
				t.Fatal("expected an inline keyboard")
			}
			if !tc.wantKeyboard && len(msg.keyboard) != 0 {
				t.Fatal("expected no keyboard")
			}
		})
	}
}

func TestDispatchSilentActionsSendNothing(t *testing.T) {
	channel := &channelStub{}
	d := NewDispatcher(channel, testLogger())
	user := &domain.User{TelegramID: 7}

	for _, action := range []Action{ActionNone, ActionResetCheckInFlag} {
		if err := d.Dispatch(context.Background(), user, action, DispatchContext{}); err != nil {
			t.Fatalf("Dispatch(%s): %v", action, err)
		}
	}
	if len(channel.sent) != 0 {
		t.Fatalf("expected no messages, got %d", len(channel.sent))
	}
}

func TestDispatchSwallowsSendFailure(t *testing.T) {
	channel := &channelStub{failFor: map[int64]error{7: errors.New("blocked by user")}}
	d := NewDispatcher(channel, testLogger())
	user := &domain.User{TelegramID: 7}

	if err := d.Dispatch(context.Background(), user, ActionPromptSetFocus, DispatchContext{}); err != nil {
		t.Fatalf("send failure must not propagate, got %v", err)
	}
}

func TestChecklistKeyboardLayout(t *testing.T) {
	checklist := &domain.Checklist{
		ID:     uuid.New().String(),
		UserID: 7,
		Tasks: []domain.Task{
			{Text: "Write intro"},
			{Text: "Walk 30 minutes", Completed: true},
			{Text: "Email mentor", CarriedOver: true},
		},
	}

	rows := ChecklistKeyboard(checklist)
	if len(rows) != 4 {
		t.Fatalf("expected 3 task rows + action row, got %d", len(rows))
	}

	if !strings.HasPrefix(rows[0][0].Label, "☐") {
		t.Fatalf("open task label %q should start with an empty box", rows[0][0].Label)
	}
	if !strings.HasPrefix(rows[1][0].Label, "✅") {
		t.Fatalf("completed task label %q should start with a check", rows[1][0].Label)
	}
	if !strings.HasSuffix(rows[2][0].Label, "↻") {
		t.Fatalf("carried task label %q should be marked", rows[2][0].Label)
	}

	for i := 0; i < 3; i++ {
		token, err := domain.DecodeActionToken(rows[i][0].Token)
		if err != nil {
			t.Fatalf("row %d token: %v", i, err)
		}
		if token.Verb != domain.VerbToggle || token.ChecklistID != checklist.ID || token.TaskIndex != i {
			t.Fatalf("row %d decoded %+v", i, token)
		}
	}

	last := rows[3]
	if len(last) != 2 {
		t.Fatalf("action row has %d buttons, want 2", len(last))
	}
	submit, err := domain.DecodeActionToken(last[0].Token)
	if err != nil || submit.Verb != domain.VerbSubmit {
		t.Fatalf("submit token %q decoded %+v err %v", last[0].Token, submit, err)
	}
	refresh, err := domain.DecodeActionToken(last[1].Token)
	if err != nil || refresh.Verb != domain.VerbRefresh {
		t.Fatalf("refresh token %q decoded %+v err %v", last[1].Token, refresh, err)
	}

	// UUID checklist IDs must leave the tokens inside Telegram's 64-byte
	// callback-data ceiling.
	for _, row := range rows {
		for _, b := range row {
			if len(b.Token) > 64 {
				t.Fatalf("token %q is %d bytes", b.Token, len(b.Token))
			}
		}
	}
}

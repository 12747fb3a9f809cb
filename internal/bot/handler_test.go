package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

type checklistStoreStub struct {
	byID map[string]*domain.Checklist
}

func (s *checklistStoreStub) GetByID(ctx context.Context, id string) (*domain.Checklist, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrChecklistNotFound
	}
	return c, nil
}

func (s *checklistStoreStub) GetByUserAndDate(ctx context.Context, userID int64, day time.Time) (*domain.Checklist, error) {
	return nil, domain.ErrChecklistNotFound
}

func (s *checklistStoreStub) Create(ctx context.Context, c *domain.Checklist) (*domain.Checklist, error) {
	return c, nil
}

func (s *checklistStoreStub) Save(ctx context.Context, c *domain.Checklist) error {
	return nil
}

func TestCallbackChecklistRejectsForeignOwner(t *testing.T) {
	owned := &domain.Checklist{ID: "cl-1", UserID: 7, Tasks: []domain.Task{{Text: "A"}}}
	h := &Handler{checklists: &checklistStoreStub{byID: map[string]*domain.Checklist{"cl-1": owned}}}
	token := domain.ActionToken{Verb: domain.VerbToggle, ChecklistID: "cl-1", TaskIndex: 0}

	// The owner resolves their own checklist.
	got, err := h.callbackChecklist(context.Background(), token, 7)
	if err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if got.ID != "cl-1" {
		t.Fatalf("resolved checklist %q, want cl-1", got.ID)
	}

	// A crafted token carrying someone else's checklist id is refused before
	// any toggle or check-in can touch it.
	if _, err := h.callbackChecklist(context.Background(), token, 8); !errors.Is(err, domain.ErrChecklistNotFound) {
		t.Fatalf("foreign caller got %v, want ErrChecklistNotFound", err)
	}
	if owned.Tasks[0].Completed {
		t.Fatal("foreign lookup must not mutate the checklist")
	}
}

func TestCallbackChecklistUnknownID(t *testing.T) {
	h := &Handler{checklists: &checklistStoreStub{byID: map[string]*domain.Checklist{}}}
	token := domain.ActionToken{Verb: domain.VerbRefresh, ChecklistID: "cl-missing", TaskIndex: -1}

	if _, err := h.callbackChecklist(context.Background(), token, 7); !errors.Is(err, domain.ErrChecklistNotFound) {
		t.Fatalf("expected ErrChecklistNotFound, got %v", err)
	}
}

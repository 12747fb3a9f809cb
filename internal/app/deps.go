/**
 * @description
 * Interfaces for the external collaborators the application layer depends on.
 * Storage, messaging and AI handles are always passed in explicitly — nothing
 * in this package reaches for an ambient singleton.
 */
package app

import (
	"context"
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

// UserStore defines the user persistence operations the service needs.
type UserStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	FindOrCreate(ctx context.Context, telegramID int64) (*domain.User, error)
	Save(ctx context.Context, u *domain.User) error
	ListAll(ctx context.Context) ([]domain.User, error)
	ResetCheckInFlags(ctx context.Context) error
	ExpireLapsedSubscriptions(ctx context.Context, now time.Time) ([]int64, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ChecklistStore defines the checklist persistence operations the service needs.
type ChecklistStore interface {
	GetByID(ctx context.Context, id string) (*domain.Checklist, error)
	GetByUserAndDate(ctx context.Context, userID int64, day time.Time) (*domain.Checklist, error)
	Create(ctx context.Context, c *domain.Checklist) (*domain.Checklist, error)
	Save(ctx context.Context, c *domain.Checklist) error
}

// Completer is the outbound AI completion provider.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// MessagingChannel sends a message, optionally with an inline keyboard, to a
// user on the external messaging platform.
type MessagingChannel interface {
	SendMessage(ctx context.Context, userID int64, text string, keyboard [][]domain.Button) error
}

// EventPublisher publishes internal events to the message broker. A nil
// publisher is tolerated everywhere it is used.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

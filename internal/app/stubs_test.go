package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memUsers struct {
	byID      map[int64]*domain.User
	saveCalls int
	saveErr   error

	resetCalls int
	expiredIDs []int64
	pruned     int64
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{byID: make(map[int64]*domain.User)}
	for _, u := range users {
		m.byID[u.TelegramID] = u
	}
	return m
}

func (m *memUsers) GetByTelegramID(ctx context.Context, id int64) (*domain.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) FindOrCreate(ctx context.Context, id int64) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	u := &domain.User{TelegramID: id, SubscriptionStatus: domain.StatusTrial, SubscriptionPlan: domain.PlanNone}
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) Save(ctx context.Context, u *domain.User) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.byID[u.TelegramID] = u
	return nil
}

func (m *memUsers) ListAll(ctx context.Context) ([]domain.User, error) {
	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.byID[id])
	}
	return out, nil
}

func (m *memUsers) ResetCheckInFlags(ctx context.Context) error {
	m.resetCalls++
	for _, u := range m.byID {
		u.HasCheckedInToday = false
	}
	return nil
}

func (m *memUsers) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) ([]int64, error) {
	return m.expiredIDs, nil
}

func (m *memUsers) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.pruned, nil
}

type memChecklists struct {
	byID    map[string]*domain.Checklist
	getErr  map[int64]error // per-user GetByUserAndDate failure injection
	saveErr error
	saves   int
	created int
}

func newMemChecklists(lists ...*domain.Checklist) *memChecklists {
	m := &memChecklists{byID: make(map[string]*domain.Checklist), getErr: make(map[int64]error)}
	for _, c := range lists {
		if c.ID == "" {
			c.ID = fmt.Sprintf("cl-%d", len(m.byID)+1)
		}
		m.byID[c.ID] = c
	}
	return m
}

func (m *memChecklists) GetByID(ctx context.Context, id string) (*domain.Checklist, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrChecklistNotFound
	}
	return c, nil
}

func (m *memChecklists) GetByUserAndDate(ctx context.Context, userID int64, day time.Time) (*domain.Checklist, error) {
	if err, ok := m.getErr[userID]; ok {
		return nil, err
	}
	key := day.Format(domain.DayFormat)
	for _, c := range m.byID {
		if c.UserID == userID && c.Date.Format(domain.DayFormat) == key {
			return c, nil
		}
	}
	return nil, domain.ErrChecklistNotFound
}

func (m *memChecklists) Create(ctx context.Context, c *domain.Checklist) (*domain.Checklist, error) {
	if existing, err := m.GetByUserAndDate(ctx, c.UserID, c.Date); err == nil {
		return existing, nil
	}
	m.created++
	if c.ID == "" {
		c.ID = fmt.Sprintf("cl-%d", len(m.byID)+1)
	}
	m.byID[c.ID] = c
	return c, nil
}

func (m *memChecklists) Save(ctx context.Context, c *domain.Checklist) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.byID[c.ID] = c
	return nil
}

type completerStub struct {
	response   string
	err        error
	calls      int
	lastPrompt string
	lastModel  string
}

func (s *completerStub) Complete(ctx context.Context, prompt, model string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	s.lastModel = model
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type sentMessage struct {
	userID   int64
	text     string
	keyboard [][]domain.Button
}

type channelStub struct {
	sent    []sentMessage
	failFor map[int64]error
}

func (s *channelStub) SendMessage(ctx context.Context, userID int64, text string, keyboard [][]domain.Button) error {
	if err, ok := s.failFor[userID]; ok {
		return err
	}
	s.sent = append(s.sent, sentMessage{userID: userID, text: text, keyboard: keyboard})
	return nil
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type publisherStub struct {
	events []publishedEvent
	err    error
}

func (s *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

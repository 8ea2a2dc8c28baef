package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// MemoryStore keeps users and tickets in process memory. It backs local
// runs without Postgres and the service tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	tickets map[string]domain.Ticket
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		tickets: make(map[string]domain.Ticket),
		now:     monotonicClock(),
	}
}

// monotonicClock hands out strictly increasing timestamps so ordering by
// creation time is stable even within one clock tick.
func monotonicClock() func() time.Time {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := time.Now().UTC()
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
		last = t
		return t
	}
}

// Users exposes the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Tickets exposes the store as a TicketRepository.
func (s *MemoryStore) Tickets() TicketRepository { return memoryTickets{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	email := normalizeEmail(user.Email)
	for _, u := range m.s.users {
		if u.Email == email {
			return domain.ErrConflict
		}
	}
	now := m.s.now()
	user.ID = uuid.NewString()
	user.Email = email
	user.Skills = nonNil(user.Skills)
	user.CreatedAt, user.UpdatedAt = now, now
	m.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (m memoryUsers) Update(_ context.Context, user *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	current, ok := m.s.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	email := normalizeEmail(user.Email)
	for id, u := range m.s.users {
		if id != user.ID && u.Email == email {
			return domain.ErrConflict
		}
	}
	user.Email = email
	user.Skills = nonNil(user.Skills)
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = m.s.now()
	m.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (m memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (m memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	email = normalizeEmail(email)
	for _, u := range m.s.users {
		if u.Email == email {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memoryUsers) List(_ context.Context, filter UserFilter) ([]domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []domain.User
	for _, u := range m.s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if len(filter.AnySkills) > 0 && !u.HasAnySkill(filter.AnySkills) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

type memoryTickets struct{ s *MemoryStore }

func (m memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[ticket.CreatedBy]; !ok {
		return domain.ErrNotFound
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusTodo
	}
	now := m.s.now()
	ticket.ID = uuid.NewString()
	ticket.RelatedSkills = nonNil(ticket.RelatedSkills)
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	m.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (m memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	t, ok := m.s.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneTicket(t)
	return &out, nil
}

func (m memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []domain.Ticket
	for _, t := range m.s.tickets {
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (m memoryTickets) TransitionStatus(_ context.Context, id string, from, to domain.TicketStatus) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.tickets[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = m.s.now()
	m.s.tickets[id] = t
	return true, nil
}

func (m memoryTickets) ApplyTriage(_ context.Context, id string, update domain.TriageUpdate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	priority := update.Priority
	t.Priority = &priority
	t.HelpfulNotes = update.HelpfulNotes
	t.RelatedSkills = append([]string{}, update.RelatedSkills...)
	if t.Status == domain.TicketStatusTodo {
		t.Status = domain.TicketStatusInProgress
	}
	t.UpdatedAt = m.s.now()
	m.s.tickets[id] = t
	return nil
}

func (m memoryTickets) Assign(_ context.Context, id, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := m.s.users[userID]; !ok {
		return domain.ErrNotFound
	}
	assignee := userID
	t.AssignedTo = &assignee
	t.UpdatedAt = m.s.now()
	m.s.tickets[id] = t
	return nil
}

func (m memoryTickets) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.tickets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.s.tickets, id)
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	l, o := pageBounds(limit, offset)
	if o >= uint64(len(items)) {
		return nil
	}
	end := o + l
	if end > uint64(len(items)) {
		end = uint64(len(items))
	}
	return items[o:end]
}

func cloneUser(u domain.User) domain.User {
	u.Skills = append([]string{}, u.Skills...)
	return u
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.RelatedSkills = append([]string{}, t.RelatedSkills...)
	if t.AssignedTo != nil {
		a := *t.AssignedTo
		t.AssignedTo = &a
	}
	if t.Priority != nil {
		p := *t.Priority
		t.Priority = &p
	}
	return t
}

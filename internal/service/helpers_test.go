package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-ai/internal/config"
	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/events"
	"github.com/spec-kit/ticket-ai/internal/notify"
	"github.com/spec-kit/ticket-ai/internal/repository"
	"github.com/spec-kit/ticket-ai/internal/triage"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

var fastPipeline = config.PipelineConfig{
	StepRetries:   1,
	NotifyRetries: 1,
	Backoff:       time.Millisecond,
	MaxBackoff:    5 * time.Millisecond,
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req triage.Request) (triage.Assessment, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(triage.Assessment), args.Error(1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message{}, n.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

var errBoom = errors.New("boom")

func seedUser(t *testing.T, users repository.UserRepository, email string, role domain.Role, skills ...string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", Role: role, Skills: skills}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func seedTicket(t *testing.T, tickets repository.TicketRepository, creator *domain.User, title, description string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{Title: title, Description: description, CreatedBy: creator.ID}
	require.NoError(t, tickets.Create(context.Background(), ticket))
	return ticket
}

func errCode(err error) string {
	if de := util.ToDomainError(err); de != nil {
		return de.Code
	}
	return ""
}

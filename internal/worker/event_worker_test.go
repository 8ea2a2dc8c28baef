package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ai/internal/events"
	"github.com/spec-kit/ticket-ai/internal/service"
)

type fakeIntake struct {
	mu     sync.Mutex
	calls  []string
	result service.IntakeResult
}

func (f *fakeIntake) Process(_ context.Context, ticketID string) service.IntakeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ticketID)
	res := f.result
	res.TicketID = ticketID
	return res
}

func (f *fakeIntake) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeWelcome struct {
	mu     sync.Mutex
	calls  []string
	result service.WelcomeResult
}

func (f *fakeWelcome) Process(_ context.Context, email string) service.WelcomeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, email)
	return f.result
}

func (f *fakeWelcome) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func mustEvent(t *testing.T, typ events.EventType, payload any) events.Event {
	t.Helper()
	e, err := events.NewEvent(typ, payload)
	require.NoError(t, err)
	return e
}

func TestEventWorker_DeliversToPipelines(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(8, zap.NewNop())
	intake := &fakeIntake{result: service.IntakeResult{Success: true}}
	welcome := &fakeWelcome{result: service.WelcomeResult{Success: true}}
	w := NewEventWorker(dispatcher, intake, welcome, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, dispatcher.Publish(ctx, mustEvent(t, events.EventTicketCreated, events.TicketCreatedPayload{TicketID: "t-1"})))
	require.NoError(t, dispatcher.Publish(ctx, mustEvent(t, events.EventUserSignup, events.UserSignupPayload{Email: "ann@example.com"})))

	assert.Eventually(t, func() bool {
		return len(intake.seen()) == 1 && len(welcome.seen()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"t-1"}, intake.seen())
	assert.Equal(t, []string{"ann@example.com"}, welcome.seen())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestEventWorker_RetryableFailureRequestsRedelivery(t *testing.T) {
	intake := &fakeIntake{result: service.IntakeResult{Error: "step triage failed", Retryable: true}}
	w := NewEventWorker(events.NewInMemoryDispatcher(1, zap.NewNop()), intake, nil, zap.NewNop())

	err := w.handleTicketCreated(context.Background(), mustEvent(t, events.EventTicketCreated, events.TicketCreatedPayload{TicketID: "t-1"}))
	assert.ErrorIs(t, err, ErrRetry)
}

func TestEventWorker_PermanentFailureIsAcknowledged(t *testing.T) {
	intake := &fakeIntake{result: service.IntakeResult{Error: "ticket not found"}}
	welcome := &fakeWelcome{result: service.WelcomeResult{Error: "mail failed"}}
	w := NewEventWorker(events.NewInMemoryDispatcher(1, zap.NewNop()), intake, welcome, zap.NewNop())

	assert.NoError(t, w.handleTicketCreated(context.Background(), mustEvent(t, events.EventTicketCreated, events.TicketCreatedPayload{TicketID: "gone"})))
	assert.NoError(t, w.handleUserSignup(context.Background(), mustEvent(t, events.EventUserSignup, events.UserSignupPayload{Email: "a@b.c"})))
}

func TestEventWorker_MalformedPayloadIsDropped(t *testing.T) {
	intake := &fakeIntake{}
	w := NewEventWorker(events.NewInMemoryDispatcher(1, zap.NewNop()), intake, nil, zap.NewNop())

	bad := events.Event{ID: "e-1", Type: events.EventTicketCreated, Payload: json.RawMessage(`"nope"`)}
	assert.NoError(t, w.handleTicketCreated(context.Background(), bad))
	assert.Empty(t, intake.seen())
}

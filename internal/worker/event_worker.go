package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ai/internal/events"
	"github.com/spec-kit/ticket-ai/internal/service"
)

// IntakeProcessor runs the ticket intake pipeline.
type IntakeProcessor interface {
	Process(ctx context.Context, ticketID string) service.IntakeResult
}

// WelcomeProcessor runs the welcome pipeline.
type WelcomeProcessor interface {
	Process(ctx context.Context, email string) service.WelcomeResult
}

// ErrRetry marks a delivery that should be attempted again.
var ErrRetry = errors.New("pipeline run failed, redelivery requested")

// EventWorker binds pipeline services to a dispatcher.
type EventWorker struct {
	dispatcher events.Dispatcher
	intake     IntakeProcessor
	welcome    WelcomeProcessor
	logger     *zap.Logger
}

// NewEventWorker creates the worker and subscribes its handlers.
func NewEventWorker(dispatcher events.Dispatcher, intake IntakeProcessor, welcome WelcomeProcessor, logger *zap.Logger) *EventWorker {
	w := &EventWorker{dispatcher: dispatcher, intake: intake, welcome: welcome, logger: logger}
	if intake != nil {
		dispatcher.Subscribe(events.EventTicketCreated, w.handleTicketCreated)
	}
	if welcome != nil {
		dispatcher.Subscribe(events.EventUserSignup, w.handleUserSignup)
	}
	return w
}

// Run consumes events until ctx is cancelled.
func (w *EventWorker) Run(ctx context.Context) error {
	w.logger.Info("event worker started")
	err := w.dispatcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.logger.Info("event worker stopped")
	return err
}

func (w *EventWorker) handleTicketCreated(ctx context.Context, event events.Event) error {
	var payload events.TicketCreatedPayload
	if err := event.Decode(&payload); err != nil || payload.TicketID == "" {
		w.logger.Warn("dropping malformed ticket event", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	res := w.intake.Process(ctx, payload.TicketID)
	if res.Success {
		return nil
	}
	if res.Retryable {
		return fmt.Errorf("%w: ticket %s: %s", ErrRetry, payload.TicketID, res.Error)
	}
	w.logger.Warn("intake abandoned", zap.String("ticket_id", payload.TicketID), zap.String("error", res.Error))
	return nil
}

func (w *EventWorker) handleUserSignup(ctx context.Context, event events.Event) error {
	var payload events.UserSignupPayload
	if err := event.Decode(&payload); err != nil || payload.Email == "" {
		w.logger.Warn("dropping malformed signup event", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	res := w.welcome.Process(ctx, payload.Email)
	if res.Success {
		return nil
	}
	if res.Retryable {
		return fmt.Errorf("%w: welcome %s: %s", ErrRetry, payload.Email, res.Error)
	}
	w.logger.Warn("welcome abandoned", zap.String("email", payload.Email), zap.String("error", res.Error))
	return nil
}

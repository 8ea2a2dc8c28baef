package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/events"
	"github.com/spec-kit/ticket-ai/internal/repository"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

// TicketView pairs a ticket with its resolved assignee, if any.
type TicketView struct {
	Ticket   domain.Ticket
	Assignee *domain.User
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets   repository.TicketRepository
	users     repository.UserRepository
	publisher Publisher
	logger    *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, users repository.UserRepository, publisher Publisher, logger *zap.Logger) *TicketService {
	return &TicketService{tickets: tickets, users: users, publisher: publisher, logger: logger}
}

// CreateTicket stores a TODO ticket owned by caller and enqueues intake.
// The ticket is returned even when enqueueing fails.
func (s *TicketService) CreateTicket(ctx context.Context, caller *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, util.NewValidationError("title and description are required", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusTodo,
		CreatedBy:   caller.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.NewInternalError(err)
	}

	s.publishCreated(ctx, ticket.ID)
	return ticket, nil
}

// ListTickets returns the tickets visible to caller, newest first.
func (s *TicketService) ListTickets(ctx context.Context, caller *domain.User, limit, offset int) ([]TicketView, error) {
	filter := repository.TicketFilter{Limit: limit, Offset: offset}
	if !caller.Role.IsStaff() {
		filter.CreatedBy = &caller.ID
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	views := make([]TicketView, 0, len(tickets))
	cache := make(map[string]*domain.User)
	for _, t := range tickets {
		view := TicketView{Ticket: t}
		if caller.Role.IsStaff() {
			view.Assignee = s.resolveAssignee(ctx, t.AssignedTo, cache)
		}
		views = append(views, view)
	}
	return views, nil
}

// GetTicket returns one ticket. Plain users get NotFound for tickets they
// did not create.
func (s *TicketService) GetTicket(ctx context.Context, caller *domain.User, id string) (*TicketView, error) {
	ticket, err := s.visibleTicket(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	view := &TicketView{Ticket: *ticket}
	if caller.Role.IsStaff() {
		view.Assignee = s.resolveAssignee(ctx, ticket.AssignedTo, nil)
	}
	return view, nil
}

// DeleteTicket removes a ticket. Only its creator or an admin may do so.
func (s *TicketService) DeleteTicket(ctx context.Context, caller *domain.User, id string) error {
	ticket, err := s.visibleTicket(ctx, caller, id)
	if err != nil {
		return err
	}
	if ticket.CreatedBy != caller.ID && caller.Role != domain.RoleAdmin {
		return util.NewForbidden("only the creator or an admin can delete a ticket")
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return util.NewNotFound("ticket", map[string]any{"id": id})
		}
		return util.NewInternalError(err)
	}
	return nil
}

func (s *TicketService) visibleTicket(ctx context.Context, caller *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, util.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, util.NewInternalError(err)
	}
	if !caller.Role.IsStaff() && ticket.CreatedBy != caller.ID {
		return nil, util.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

// resolveAssignee looks up the assignee. Lookup failures are logged and
// leave the assignee empty rather than failing the read.
func (s *TicketService) resolveAssignee(ctx context.Context, id *string, cache map[string]*domain.User) *domain.User {
	if id == nil {
		return nil
	}
	if u, ok := cache[*id]; ok {
		return u
	}
	u, err := s.users.GetByID(ctx, *id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("resolve assignee failed", zap.String("user_id", *id), zap.Error(err))
		}
		u = nil
	}
	if cache != nil {
		cache[*id] = u
	}
	return u
}

func (s *TicketService) publishCreated(ctx context.Context, ticketID string) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewEvent(events.EventTicketCreated, events.TicketCreatedPayload{TicketID: ticketID})
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Error("enqueue intake failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

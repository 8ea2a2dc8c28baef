package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-ai/internal/api/dto"
	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/service"
)

// TicketsHandler manages ticket endpoints. The response shape depends on the
// caller's role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), user, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":    dto.NewTicketSummary(ticket),
		"message": "ticket created and queued for processing",
	})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	views, err := h.service.ListTickets(c.UserContext(), user, limit, offset)
	if err != nil {
		return err
	}

	items := make([]any, 0, len(views))
	for i := range views {
		items = append(items, ticketView(user, &views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketView(user, view)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func ticketView(user *domain.User, view *service.TicketView) any {
	if user.Role.IsStaff() {
		return dto.NewTicketDetail(&view.Ticket, view.Assignee)
	}
	return dto.NewTicketSummary(&view.Ticket)
}

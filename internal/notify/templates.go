package notify

import (
	"fmt"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// TicketAssigned tells an assignee about a ticket routed to them.
func TicketAssigned(to string, t *domain.Ticket) Message {
	priority := "unset"
	if t.Priority != nil {
		priority = string(*t.Priority)
	}
	return Message{
		To:      to,
		Subject: "Ticket Assigned",
		Body: fmt.Sprintf("A new ticket has been assigned to you:\n\nTitle: %s\nDescription: %s\nPriority: %s\nStatus: %s",
			t.Title, t.Description, priority, t.Status),
	}
}

// Welcome greets a newly registered account.
func Welcome(email string) Message {
	return Message{
		To:      email,
		Subject: "Welcome to Ticket AI System",
		Body: fmt.Sprintf("Hello,\n\nWelcome to the Ticket AI System. Your account has been created with the email: %s\n\nBest regards,\nThe Ticket AI Team",
			email),
	}
}

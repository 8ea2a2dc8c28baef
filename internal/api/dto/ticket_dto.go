package dto

import (
	"time"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
}

// TicketSummary is what a plain user sees of their own tickets.
type TicketSummary struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AssigneeResponse identifies the account a ticket is assigned to.
type AssigneeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TicketDetailResponse is the staff view with triage fields and assignee.
type TicketDetailResponse struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Status        domain.TicketStatus    `json:"status"`
	Priority      *domain.TicketPriority `json:"priority"`
	HelpfulNotes  string                 `json:"helpful_notes"`
	RelatedSkills []string               `json:"related_skills"`
	CreatedBy     string                 `json:"created_by"`
	AssignedTo    *AssigneeResponse      `json:"assigned_to"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewTicketSummary maps the reduced view.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

// NewTicketDetail maps the staff view. assignee may be nil.
func NewTicketDetail(t *domain.Ticket, assignee *domain.User) TicketDetailResponse {
	skills := t.RelatedSkills
	if skills == nil {
		skills = []string{}
	}
	resp := TicketDetailResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		HelpfulNotes:  t.HelpfulNotes,
		RelatedSkills: skills,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if assignee != nil {
		resp.AssignedTo = &AssigneeResponse{ID: assignee.ID, Email: assignee.Email}
	}
	return resp
}

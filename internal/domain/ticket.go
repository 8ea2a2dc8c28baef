package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "TODO"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusDone       TicketStatus = "DONE"
)

// TicketPriority is the urgency assigned by triage.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// ParsePriority maps free-form input onto a known priority.
// The second return value is false when raw is not one of low, medium, high.
func ParsePriority(raw string) (TicketPriority, bool) {
	switch p := TicketPriority(strings.ToLower(strings.TrimSpace(raw))); p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return p, true
	}
	return TicketPriorityMedium, false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Status        TicketStatus
	CreatedBy     string
	AssignedTo    *string
	Priority      *TicketPriority
	HelpfulNotes  string
	RelatedSkills []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TriageUpdate carries the fields written by the intake pipeline's triage step.
type TriageUpdate struct {
	Priority      TicketPriority
	HelpfulNotes  string
	RelatedSkills []string
}

// NormalizeSkill folds a skill name for comparisons.
func NormalizeSkill(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

// CleanSkills trims entries and drops empties and duplicates, keeping order.
func CleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := NormalizeSkill(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Package triage asks a language model to assess support tickets.
package triage

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// FallbackNotes is stored when the model could not assess a ticket.
const FallbackNotes = "AI analysis failed. Please review manually."

// ErrDisabled is returned by analyzers that have no model configured.
var ErrDisabled = errors.New("triage model not configured")

// Request is the ticket content sent to the model.
type Request struct {
	Title       string
	Description string
}

// Assessment is a validated triage result.
type Assessment struct {
	Summary       string
	Priority      domain.TicketPriority
	HelpfulNotes  string
	RelatedSkills []string
	// Fallback is set when the assessment was substituted after a failure.
	Fallback bool
}

// Update converts the assessment into the fields persisted on the ticket.
func (a Assessment) Update() domain.TriageUpdate {
	return domain.TriageUpdate{
		Priority:      a.Priority,
		HelpfulNotes:  a.HelpfulNotes,
		RelatedSkills: append([]string{}, a.RelatedSkills...),
	}
}

// Fallback is the assessment used when the model fails.
func Fallback() Assessment {
	return Assessment{
		Summary:       "Failed to analyze ticket",
		Priority:      domain.TicketPriorityMedium,
		HelpfulNotes:  FallbackNotes,
		RelatedSkills: []string{},
		Fallback:      true,
	}
}

// Analyzer produces an assessment or an error.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Assessment, error)
}

// AnalyzeOrFallback never fails: any analyzer error yields Fallback.
func AnalyzeOrFallback(ctx context.Context, a Analyzer, req Request) (Assessment, error) {
	if a == nil {
		return Fallback(), ErrDisabled
	}
	res, err := a.Analyze(ctx, req)
	if err != nil {
		return Fallback(), err
	}
	return res, nil
}

type disabled struct{}

func (disabled) Analyze(context.Context, Request) (Assessment, error) {
	return Assessment{}, ErrDisabled
}

package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ai/internal/config"
	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/notify"
	"github.com/spec-kit/ticket-ai/internal/pipeline"
	"github.com/spec-kit/ticket-ai/internal/repository"
	"github.com/spec-kit/ticket-ai/internal/triage"
)

// IntakePipelineName labels intake logs and metrics.
const IntakePipelineName = "ticket-intake"

// Intake step names.
const (
	StepFetchTicket  = "fetch-ticket"
	StepMarkStarted  = "mark-intake-started"
	StepTriage       = "triage"
	StepAssign       = "assign-moderator"
	StepNotifyAssign = "send-email-notification"
)

// IntakeResult is the outcome of one intake run.
type IntakeResult struct {
	TicketID   string `json:"ticket_id"`
	AssigneeID string `json:"assignee_id,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	// Retryable is set when a redelivery of the event may succeed.
	Retryable bool `json:"-"`
}

// IntakeService turns a new ticket into a triaged, assigned one.
type IntakeService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	assignment *AssignmentService
	analyzer   triage.Analyzer
	notifier   notify.Notifier
	runner     *pipeline.Runner
	steps      config.PipelineConfig
	logger     *zap.Logger
}

// IntakeDependencies bundles collaborators for the intake pipeline.
type IntakeDependencies struct {
	Tickets  repository.TicketRepository
	Users    repository.UserRepository
	Analyzer triage.Analyzer
	Notifier notify.Notifier
	Recorder pipeline.Recorder
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies, cfg config.PipelineConfig, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		tickets:    deps.Tickets,
		users:      deps.Users,
		assignment: NewAssignmentService(deps.Users),
		analyzer:   deps.Analyzer,
		notifier:   deps.Notifier,
		runner:     pipeline.NewRunner(IntakePipelineName, logger, deps.Recorder),
		steps:      cfg,
		logger:     logger,
	}
}

// intakeRun holds transient per-run results. It is discarded after Process.
type intakeRun struct {
	ticketID   string
	assessment *triage.Assessment
	assignee   *domain.User
}

// Process runs the intake pipeline for ticketID. It never panics on a
// missing ticket; failures are reported in the result.
func (s *IntakeService) Process(ctx context.Context, ticketID string) IntakeResult {
	run := &intakeRun{ticketID: ticketID}
	err := s.runner.Execute(ctx, ticketID, s.buildSteps(run))

	res := IntakeResult{TicketID: ticketID, Success: err == nil}
	if run.assignee != nil {
		res.AssigneeID = run.assignee.ID
	}
	if err != nil {
		res.Error = err.Error()
		res.Retryable = !pipeline.IsPermanent(err)
	}
	return res
}

func (s *IntakeService) policy() pipeline.Policy {
	return pipeline.Policy{MaxRetries: s.steps.StepRetries, Backoff: s.steps.Backoff, MaxBackoff: s.steps.MaxBackoff}
}

func (s *IntakeService) buildSteps(run *intakeRun) []pipeline.Step {
	notifyPolicy := s.policy()
	notifyPolicy.MaxRetries = s.steps.NotifyRetries

	return []pipeline.Step{
		{Name: StepFetchTicket, Policy: s.policy(), Run: func(ctx context.Context) error {
			_, err := s.tickets.GetByID(ctx, run.ticketID)
			return err
		}},
		{Name: StepMarkStarted, Policy: s.policy(), Run: func(ctx context.Context) error {
			_, err := s.tickets.TransitionStatus(ctx, run.ticketID, domain.TicketStatusTodo, domain.TicketStatusInProgress)
			return err
		}},
		{Name: StepTriage, Policy: s.policy(), Run: func(ctx context.Context) error {
			return s.triage(ctx, run)
		}},
		{Name: StepAssign, Policy: s.policy(), Run: func(ctx context.Context) error {
			return s.assign(ctx, run)
		}},
		{
			Name:       StepNotifyAssign,
			Policy:     notifyPolicy,
			BestEffort: true,
			When:       func() bool { return run.assignee != nil },
			Run: func(ctx context.Context) error {
				return s.notifyAssignee(ctx, run)
			},
		},
	}
}

// triage asks the model once per run; retries of this step only repeat
// the write.
func (s *IntakeService) triage(ctx context.Context, run *intakeRun) error {
	if run.assessment == nil {
		ticket, err := s.tickets.GetByID(ctx, run.ticketID)
		if err != nil {
			return err
		}
		assessment, err := triage.AnalyzeOrFallback(ctx, s.analyzer, triage.Request{
			Title:       ticket.Title,
			Description: ticket.Description,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("triage failed; using fallback assessment",
				zap.String("ticket_id", run.ticketID),
				zap.Error(err),
			)
		}
		run.assessment = &assessment
	}
	return s.tickets.ApplyTriage(ctx, run.ticketID, run.assessment.Update())
}

func (s *IntakeService) assign(ctx context.Context, run *intakeRun) error {
	ticket, err := s.tickets.GetByID(ctx, run.ticketID)
	if err != nil {
		return err
	}
	assignee, err := s.assignment.SelectAssignee(ctx, ticket.ID, ticket.RelatedSkills)
	if err != nil {
		return err
	}
	if assignee == nil {
		s.logger.Info("no moderator or admin available; ticket left unassigned",
			zap.String("ticket_id", run.ticketID))
		run.assignee = nil
		return nil
	}
	if err := s.tickets.Assign(ctx, run.ticketID, assignee.ID); err != nil {
		return err
	}
	run.assignee = assignee
	return nil
}

func (s *IntakeService) notifyAssignee(ctx context.Context, run *intakeRun) error {
	ticket, err := s.tickets.GetByID(ctx, run.ticketID)
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return errors.New("no notifier configured")
	}
	return s.notifier.Send(ctx, notify.TicketAssigned(run.assignee.Email, ticket))
}

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
)

// WelcomePipelineName labels welcome-flow logs and metrics.
const WelcomePipelineName = "user-welcome"

// Welcome step names.
const (
	StepGetUser     = "get-user"
	StepSendWelcome = "send-welcome-email"
)

// WelcomeResult is the outcome of one welcome run.
type WelcomeResult struct {
	Email     string
	Success   bool
	Error     string
	Retryable bool
}

// WelcomeService emails newly registered users.
type WelcomeService struct {
	users    repository.UserRepository
	notifier notify.Notifier
	runner   *pipeline.Runner
	steps    config.PipelineConfig
}

// NewWelcomeService constructs the service.
func NewWelcomeService(users repository.UserRepository, notifier notify.Notifier, recorder pipeline.Recorder, cfg config.PipelineConfig, logger *zap.Logger) *WelcomeService {
	return &WelcomeService{
		users:    users,
		notifier: notifier,
		runner:   pipeline.NewRunner(WelcomePipelineName, logger, recorder),
		steps:    cfg,
	}
}

// Process sends the welcome email to the account registered with email.
func (s *WelcomeService) Process(ctx context.Context, email string) WelcomeResult {
	var user *domain.User
	base := pipeline.Policy{MaxRetries: s.steps.StepRetries, Backoff: s.steps.Backoff, MaxBackoff: s.steps.MaxBackoff}
	send := base
	send.MaxRetries = s.steps.NotifyRetries

	err := s.runner.Execute(ctx, email, []pipeline.Step{
		{Name: StepGetUser, Policy: base, Run: func(ctx context.Context) error {
			u, err := s.users.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			user = u
			return nil
		}},
		{Name: StepSendWelcome, Policy: send, Run: func(ctx context.Context) error {
			return s.notifier.Send(ctx, notify.Welcome(user.Email))
		}},
	})

	res := WelcomeResult{Email: email, Success: err == nil}
	if err != nil {
		res.Error = err.Error()
		// a mail failure has already used its retries
		var stepErr *pipeline.StepError
		res.Retryable = !pipeline.IsPermanent(err) &&
			!(errors.As(err, &stepErr) && stepErr.Step == StepSendWelcome)
	}
	return res
}

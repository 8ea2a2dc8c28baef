package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-ai/internal/config"
	"github.com/spec-kit/ticket-ai/internal/domain"
)

func TestTicketAssigned(t *testing.T) {
	high := domain.TicketPriorityHigh
	msg := TicketAssigned("mod@example.com", &domain.Ticket{
		Title:       "VPN fails",
		Description: "Cannot connect to corporate VPN",
		Priority:    &high,
		Status:      domain.TicketStatusInProgress,
	})

	assert.Equal(t, "mod@example.com", msg.To)
	assert.Equal(t, "Ticket Assigned", msg.Subject)
	assert.Contains(t, msg.Body, "Title: VPN fails")
	assert.Contains(t, msg.Body, "Description: Cannot connect to corporate VPN")
	assert.Contains(t, msg.Body, "Priority: high")
	assert.Contains(t, msg.Body, "Status: IN_PROGRESS")
}

func TestWelcome(t *testing.T) {
	msg := Welcome("ann@example.com")
	assert.Equal(t, "Welcome to Ticket AI System", msg.Subject)
	assert.Contains(t, msg.Body, "ann@example.com")
	assert.Contains(t, msg.Body, "The Ticket AI Team")
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), Welcome("ann@example.com")))
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ann@example.com", entries[0].ContextMap()["to"])

	assert.ErrorIs(t, n.Send(context.Background(), Message{Subject: "x"}), ErrNoRecipient)
}

func TestNew_SelectsByHost(t *testing.T) {
	n, err := New(config.MailConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	n, err = New(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "pass",
		From:     "noreply@example.com",
		FromName: "Ticket AI System",
		Timeout:  time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPNotifier{}, n)
}

func TestSMTPNotifier_BuildMessage(t *testing.T) {
	n, err := NewSMTPNotifier(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "noreply@example.com",
		FromName: "Ticket AI System",
	}, zap.NewNop())
	require.NoError(t, err)

	m, err := n.build(Welcome("ann@example.com"))
	require.NoError(t, err)
	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@example.com"}, rcpts)

	_, err = n.build(Message{To: "not an address"})
	assert.Error(t, err)

	_, err = n.build(Message{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestSMTPNotifier_SendFailsWithoutServer(t *testing.T) {
	n, err := NewSMTPNotifier(config.MailConfig{
		Host:    "127.0.0.1",
		Port:    1,
		From:    "noreply@example.com",
		Timeout: 500 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, n.Send(ctx, Welcome("ann@example.com")))
}

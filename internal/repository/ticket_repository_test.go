package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

var ticketRowColumns = []string{
	"id", "title", "description", "status", "created_by", "assigned_to",
	"priority", "helpful_notes", "related_skills", "created_at", "updated_at",
}

func TestTicketRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewTicketRepository(mock)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO tickets").
		WithArgs("VPN down", "Cannot connect", "TODO", "u-1", "", []string{}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("t-1", now, now))

	ticket := &domain.Ticket{Title: "VPN down", Description: "Cannot connect", CreatedBy: "u-1"}
	require.NoError(t, repo.Create(context.Background(), ticket))
	assert.Equal(t, "t-1", ticket.ID)
	assert.Equal(t, domain.TicketStatusTodo, ticket.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewTicketRepository(mock)

	now := time.Now()
	high := "high"
	assignee := "u-2"
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id = \\$1").
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows(ticketRowColumns).
			AddRow("t-1", "VPN down", "Cannot connect", "IN_PROGRESS", "u-1", &assignee, &high, "check tunnel", []string{"vpn"}, now, now))

	ticket, err := repo.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, ticket.Priority)
	assert.Equal(t, domain.TicketPriorityHigh, *ticket.Priority)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "u-2", *ticket.AssignedTo)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_GetByIDUntriaged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewTicketRepository(mock)

	now := time.Now()
	var none *string
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id = \\$1").
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows(ticketRowColumns).
			AddRow("t-1", "VPN down", "Cannot connect", "TODO", "u-1", none, none, "", []string{}, now, now))

	ticket, err := repo.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, ticket.Priority)
	assert.Nil(t, ticket.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_ListByCreator(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewTicketRepository(mock)

	now := time.Now()
	var none *string
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE created_by = \\$1 ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 40").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows(ticketRowColumns).
			AddRow("t-2", "b", "b", "TODO", "u-1", none, none, "", []string{}, now, now).
			AddRow("t-1", "a", "a", "TODO", "u-1", none, none, "", []string{}, now.Add(-time.Minute), now))

	creator := "u-1"
	tickets, err := repo.List(context.Background(), TicketFilter{CreatedBy: &creator, Limit: 20, Offset: 40})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "t-2", tickets[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_TransitionStatus(t *testing.T) {
	t.Run("advances a TODO ticket", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := NewTicketRepository(mock)

		mock.ExpectExec("UPDATE tickets SET status = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2 AND status = \\$3").
			WithArgs("IN_PROGRESS", "t-1", "TODO").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		changed, err := repo.TransitionStatus(context.Background(), "t-1", domain.TicketStatusTodo, domain.TicketStatusInProgress)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves an advanced ticket alone", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := NewTicketRepository(mock)

		mock.ExpectExec("UPDATE tickets").
			WithArgs("IN_PROGRESS", "t-1", "TODO").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery("SELECT 1 FROM tickets WHERE id = \\$1").
			WithArgs("t-1").
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

		changed, err := repo.TransitionStatus(context.Background(), "t-1", domain.TicketStatusTodo, domain.TicketStatusInProgress)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a missing ticket", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := NewTicketRepository(mock)

		mock.ExpectExec("UPDATE tickets").
			WithArgs("IN_PROGRESS", "t-1", "TODO").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery("SELECT 1 FROM tickets WHERE id = \\$1").
			WithArgs("t-1").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.TransitionStatus(context.Background(), "t-1", domain.TicketStatusTodo, domain.TicketStatusInProgress)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTicketRepository_ApplyTriage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewTicketRepository(mock)

	mock.ExpectExec("UPDATE tickets SET priority = \\$1, helpful_notes = \\$2, related_skills = \\$3, status = CASE WHEN status = \\$4 THEN \\$5 ELSE status END").
		WithArgs("high", "check tunnel", []string{"vpn"}, "TODO", "IN_PROGRESS", "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.ApplyTriage(context.Background(), "t-1", domain.TriageUpdate{
		Priority:      domain.TicketPriorityHigh,
		HelpfulNotes:  "check tunnel",
		RelatedSkills: []string{"vpn"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_AssignAndDeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewTicketRepository(mock)

	mock.ExpectExec("UPDATE tickets SET assigned_to = \\$1").
		WithArgs("u-2", "t-404").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("DELETE FROM tickets WHERE id = \\$1").
		WithArgs("t-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Assign(context.Background(), "t-404", "u-2"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "t-404"), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	CreatedBy *string
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// List returns tickets newest first.
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// TransitionStatus moves a ticket from one status to another only if it
	// currently holds from. It reports whether the row changed.
	TransitionStatus(ctx context.Context, id string, from, to domain.TicketStatus) (bool, error)
	// ApplyTriage stores the assessment and advances TODO tickets to IN_PROGRESS.
	ApplyTriage(ctx context.Context, id string, update domain.TriageUpdate) error
	Assign(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id string) error
}

var ticketColumns = []string{
	"id", "title", "description", "status", "created_by", "assigned_to",
	"priority", "helpful_notes", "related_skills", "created_at", "updated_at",
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusTodo
	}
	query, args, err := psql.Insert("tickets").
		Columns("title", "description", "status", "created_by", "helpful_notes", "related_skills").
		Values(ticket.Title, ticket.Description, string(ticket.Status), ticket.CreatedBy,
			ticket.HelpfulNotes, nonNil(ticket.RelatedSkills)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query, args...).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate("insert ticket", err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args, err := psql.Select(ticketColumns...).From("tickets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate("get ticket", err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	builder := psql.Select(ticketColumns...).From("tickets").
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).Offset(offset)
	if filter.CreatedBy != nil {
		builder = builder.Where(sq.Eq{"created_by": *filter.CreatedBy})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list tickets", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, translate("scan ticket", err)
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, translate("list tickets", rows.Err())
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, id string, from, to domain.TicketStatus) (bool, error) {
	query, args, err := psql.Update("tickets").
		Set("status", string(to)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, translate("transition ticket", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	// distinguish "already moved on" from "gone"
	if err := r.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *ticketRepository) ApplyTriage(ctx context.Context, id string, update domain.TriageUpdate) error {
	query, args, err := psql.Update("tickets").
		Set("priority", string(update.Priority)).
		Set("helpful_notes", update.HelpfulNotes).
		Set("related_skills", nonNil(update.RelatedSkills)).
		Set("status", sq.Expr("CASE WHEN status = ? THEN ? ELSE status END",
			string(domain.TicketStatusTodo), string(domain.TicketStatusInProgress))).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "apply triage", query, args)
}

func (r *ticketRepository) Assign(ctx context.Context, id, userID string) error {
	query, args, err := psql.Update("tickets").
		Set("assigned_to", userID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "assign ticket", query, args)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("tickets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, "delete ticket", query, args)
}

func (r *ticketRepository) execOne(ctx context.Context, op, query string, args []any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translate(op, err)
	}
	if tag.RowsAffected() == 0 {
		return translate(op, pgx.ErrNoRows)
	}
	return nil
}

func (r *ticketRepository) exists(ctx context.Context, id string) error {
	query, args, err := psql.Select("1").From("tickets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	var one int
	return translate("get ticket", r.db.QueryRow(ctx, query, args...).Scan(&one))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		status   string
		priority *string
		skills   []string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&status,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&priority,
		&ticket.HelpfulNotes,
		&skills,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	if priority != nil {
		p := domain.TicketPriority(*priority)
		ticket.Priority = &p
	}
	ticket.RelatedSkills = nonNil(skills)
	return &ticket, nil
}

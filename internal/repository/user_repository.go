package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// UserFilter narrows user listings. Zero values match everything.
type UserFilter struct {
	Role      *domain.Role
	AnySkills []string
	Limit     int
	Offset    int
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns users ordered by creation time, oldest first.
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

var userColumns = []string{"id", "email", "password_hash", "role", "skills", "created_at", "updated_at"}

type userRepository struct {
	db DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query, args, err := psql.Insert("users").
		Columns("email", "password_hash", "role", "skills").
		Values(normalizeEmail(user.Email), user.PasswordHash, string(user.Role), nonNil(user.Skills)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate("insert user", err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query, args, err := psql.Update("users").
		Set("email", normalizeEmail(user.Email)).
		Set("password_hash", user.PasswordHash).
		Set("role", string(user.Role)).
		Set("skills", nonNil(user.Skills)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": user.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query, args...).Scan(&user.UpdatedAt)
	return translate("update user", err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "get user", sq.Eq{"id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "get user by email", sq.Expr("lower(email) = ?", normalizeEmail(email)))
}

func (r *userRepository) getOne(ctx context.Context, op string, pred sq.Sqlizer) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(pred).ToSql()
	if err != nil {
		return nil, err
	}
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(op, err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	builder := psql.Select(userColumns...).From("users").
		OrderBy("created_at ASC", "id ASC").
		Limit(limit).Offset(offset)
	if filter.Role != nil {
		builder = builder.Where(sq.Eq{"role": string(*filter.Role)})
	}
	if len(filter.AnySkills) > 0 {
		builder = builder.Where(sq.Expr("EXISTS (SELECT 1 FROM unnest(skills) AS s WHERE lower(s) = ANY(?))", lowerAll(filter.AnySkills)))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translate("scan user", err)
		}
		users = append(users, *user)
	}
	return users, translate("list users", rows.Err())
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user   domain.User
		role   string
		skills []string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&role,
		&skills,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	user.Skills = nonNil(skills)
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lowerAll folds skills for the case-insensitive overlap query.
func lowerAll(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if n := domain.NormalizeSkill(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

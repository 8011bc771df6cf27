package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skolara/skolara/internal/shared"
)

// Repository defines read access to user accounts.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const identityColumns = `id, username, email, password_hash, role, status, school_id, created_at, updated_at`

// FindByUsername fetches an account by its unique username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM users WHERE username = $1`, username)
	return scanIdentity(row)
}

// FindByID fetches an account by its id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM users WHERE id = $1`, id)
	return scanIdentity(row)
}

func scanIdentity(row pgx.Row) (*Identity, error) {
	var (
		ident     Identity
		role      string
		status    string
		schoolID  pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&ident.ID, &ident.Username, &ident.Email, &ident.PasswordHash, &role, &status, &schoolID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	ident.Role = Role(role)
	ident.Status = Status(status)
	if schoolID.Valid {
		ident.SchoolID = &schoolID.String
	}
	ident.CreatedAt = createdAt.Time
	ident.UpdatedAt = updatedAt.Time
	return &ident, nil
}

var _ Repository = (*PGRepository)(nil)

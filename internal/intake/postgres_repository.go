package intake

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const intakeColumns = `id, user_id, amount, source, note, taken_at, created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL intake repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a new intake.
func (r *PostgresRepository) Create(ctx context.Context, in *Intake) error {
	query := `
		INSERT INTO intakes (` + intakeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		in.ID,
		in.UserID,
		in.Amount,
		in.Source,
		in.Note,
		in.Timestamp,
		in.CreatedAt,
		in.UpdatedAt,
	)
	return err
}

// Get retrieves an intake by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Intake, error) {
	query := `SELECT ` + intakeColumns + ` FROM intakes WHERE id = $1`

	in, err := scanIntake(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntakeNotFound
		}
		return nil, err
	}
	return in, nil
}

// ListByRange returns the user's intakes in [from, to), newest first.
func (r *PostgresRepository) ListByRange(ctx context.Context, userID string, from, to time.Time) ([]*Intake, error) {
	query := `
		SELECT ` + intakeColumns + `
		FROM intakes
		WHERE user_id = $1 AND taken_at >= $2 AND taken_at < $3
		ORDER BY taken_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*Intake, 0)
	for rows.Next() {
		in, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanIntake(row pgx.Row) (*Intake, error) {
	var in Intake
	err := row.Scan(
		&in.ID,
		&in.UserID,
		&in.Amount,
		&in.Source,
		&in.Note,
		&in.Timestamp,
		&in.CreatedAt,
		&in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// UpdateAmount changes the amount of an intake.
func (r *PostgresRepository) UpdateAmount(ctx context.Context, id string, amount int, updatedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE intakes SET amount = $2, updated_at = $3 WHERE id = $1`, id, amount, updatedAt)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrIntakeNotFound
	}

	return nil
}

// Delete removes an intake.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM intakes WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrIntakeNotFound
	}

	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

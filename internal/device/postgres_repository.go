package device

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deviceColumns = `id, user_id, platform, fcm_token, apns_token, device_info, is_active, last_used_at, created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID retrieves a device by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, deviceID string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	return scanDevice(r.pool.QueryRow(ctx, query, deviceID))
}

// FindByUserToken finds a user's device holding either token.
func (r *PostgresRepository) FindByUserToken(ctx context.Context, userID string, fcmToken, apnsToken *string) (*Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE user_id = $1
		  AND ((fcm_token IS NOT NULL AND fcm_token = $2) OR (apns_token IS NOT NULL AND apns_token = $3))
		ORDER BY last_used_at DESC
		LIMIT 1
	`
	return scanDevice(r.pool.QueryRow(ctx, query, userID, fcmToken, apnsToken))
}

// ListByUser retrieves a user's devices, most recently used first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 ORDER BY last_used_at DESC`
	return r.query(ctx, query, userID)
}

// ListActiveByUser retrieves a user's active devices.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 AND is_active ORDER BY last_used_at DESC`
	return r.query(ctx, query, userID)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...interface{}) ([]*Device, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]*Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

func scanDevice(row pgx.Row) (*Device, error) {
	var device Device
	err := row.Scan(
		&device.ID,
		&device.UserID,
		&device.Platform,
		&device.FCMToken,
		&device.APNSToken,
		&device.DeviceInfo,
		&device.IsActive,
		&device.LastUsedAt,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

// Create creates a new device.
func (r *PostgresRepository) Create(ctx context.Context, device *Device) error {
	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		device.ID,
		device.UserID,
		device.Platform,
		device.FCMToken,
		device.APNSToken,
		device.DeviceInfo,
		device.IsActive,
		device.LastUsedAt,
		device.CreatedAt,
		device.UpdatedAt,
	)
	return err
}

// Update updates an existing device.
func (r *PostgresRepository) Update(ctx context.Context, device *Device) error {
	query := `
		UPDATE devices SET
			platform = $2,
			fcm_token = $3,
			apns_token = $4,
			device_info = $5,
			is_active = $6,
			last_used_at = $7,
			updated_at = $8
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		device.ID,
		device.Platform,
		device.FCMToken,
		device.APNSToken,
		device.DeviceInfo,
		device.IsActive,
		device.LastUsedAt,
		device.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete deletes a device.
func (r *PostgresRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, deviceID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// DeleteByFCMToken deletes every device holding the FCM token.
func (r *PostgresRepository) DeleteByFCMToken(ctx context.Context, token string) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE fcm_token = $1`, token)
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aniscope/aniscope/internal/domain"
)

// UsersRepository persists the user dimension, one row per ingested user.
type UsersRepository struct {
	pool *pgxpool.Pool
}

// Upsert inserts or refreshes the user row keyed by user id.
func (r *UsersRepository) Upsert(ctx context.Context, user domain.UserInfo) error {
	const query = `
        INSERT INTO user_info (user_id, user_name, request_date)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id)
        DO UPDATE SET user_name = EXCLUDED.user_name,
                      request_date = EXCLUDED.request_date
    `
	if _, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.RequestDate); err != nil {
		return fmt.Errorf("upsert user %d: %w", user.ID, err)
	}
	return nil
}

// GetByID fetches one user row.
func (r *UsersRepository) GetByID(ctx context.Context, id int) (domain.UserInfo, error) {
	const query = `
        SELECT user_id, user_name, request_date
        FROM user_info WHERE user_id = $1
    `
	var user domain.UserInfo
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Name, &user.RequestDate)
	if err != nil {
		if isNoRows(err) {
			return domain.UserInfo{}, ErrNotFound
		}
		return domain.UserInfo{}, err
	}
	return user, nil
}

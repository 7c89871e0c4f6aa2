package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aniscope/aniscope/internal/domain"
)

// ScoresRepository persists the user-title score facts with their validity
// windows. At most one row per (user, title) pair has a NULL end_date.
type ScoresRepository struct {
	pool *pgxpool.Pool
}

// Replace applies full-replace-per-user semantics: when no rows exist for
// the user the fresh rows are inserted; otherwise every row for the user is
// deleted first. Fresh rows open a new validity window at insertedAt. The
// delete and the inserts are separate statements; a failure in between
// leaves a partially applied state for the caller to re-run (refreshes are
// idempotent and convergent).
func (r *ScoresRepository) Replace(ctx context.Context, format domain.Format, userID int, facts []domain.UserScore, insertedAt time.Time) error {
	existsQuery := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1)`, format.ScoreTable())

	var exists bool
	if err := r.pool.QueryRow(ctx, existsQuery, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check existing scores for user %d: %w", userID, err)
	}

	if exists {
		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, format.ScoreTable())
		if _, err := r.pool.Exec(ctx, deleteQuery, userID); err != nil {
			return fmt.Errorf("delete scores for user %d: %w", userID, err)
		}
	}

	insertQuery := fmt.Sprintf(`
        INSERT INTO %s (user_id, %s, user_score, start_date, end_date)
        VALUES ($1,$2,$3,$4,NULL)
    `, format.ScoreTable(), format.IDColumn())

	for _, fact := range facts {
		if _, err := r.pool.Exec(ctx, insertQuery, userID, fact.TitleID, fact.Score, insertedAt); err != nil {
			return fmt.Errorf("insert score for user %d title %d: %w", userID, fact.TitleID, err)
		}
	}
	return nil
}

// CurrentByUser returns the user's current fact rows, ordered by title id.
func (r *ScoresRepository) CurrentByUser(ctx context.Context, format domain.Format, userID int) ([]domain.UserScore, error) {
	query := fmt.Sprintf(`
        SELECT user_id, %s, user_score, start_date, end_date
        FROM %s
        WHERE user_id = $1 AND end_date IS NULL
        ORDER BY %s
    `, format.IDColumn(), format.ScoreTable(), format.IDColumn())

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.UserScore
	for rows.Next() {
		var fact domain.UserScore
		if err := rows.Scan(&fact.UserID, &fact.TitleID, &fact.Score, &fact.StartDate, &fact.EndDate); err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

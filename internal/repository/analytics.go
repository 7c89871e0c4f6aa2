package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aniscope/aniscope/internal/domain"
)

// AnalyticsRepository runs the population-wide aggregate queries that feed
// the snapshot cache. Only current fact rows (open validity window)
// participate.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// PopulationScore is one current fact row joined with the title's average
// score, the unit of the deviation snapshot.
type PopulationScore struct {
	TitleID      int
	UserID       int
	UserScore    int
	AverageScore int
}

// CurrentScores returns every user's current ratings joined against the
// title dimension.
func (r *AnalyticsRepository) CurrentScores(ctx context.Context, format domain.Format) ([]PopulationScore, error) {
	query := fmt.Sprintf(`
        SELECT s.%s, s.user_id, s.user_score, i.average_score
        FROM %s AS s
        JOIN %s AS i ON i.%s = s.%s
        WHERE s.end_date IS NULL AND s.start_date IS NOT NULL
    `, format.IDColumn(), format.ScoreTable(), format.InfoTable(), format.IDColumn(), format.IDColumn())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query population scores: %w", err)
	}
	defer rows.Close()

	var result []PopulationScore
	for rows.Next() {
		var row PopulationScore
		if err := rows.Scan(&row.TitleID, &row.UserID, &row.UserScore, &row.AverageScore); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// PopularityByUser returns each user's mean title popularity over their
// current ratings, the population distribution behind the obscurity view.
func (r *AnalyticsRepository) PopularityByUser(ctx context.Context, format domain.Format) ([]int, error) {
	query := fmt.Sprintf(`
        SELECT ROUND(AVG(i.popularity))::int AS average_popularity
        FROM %s AS i
        LEFT JOIN %s AS s ON i.%s = s.%s
        WHERE s.end_date IS NULL
          AND s.start_date IS NOT NULL
          AND i.popularity IS NOT NULL
        GROUP BY s.user_id
    `, format.InfoTable(), format.ScoreTable(), format.IDColumn(), format.IDColumn())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query population popularity: %w", err)
	}
	defer rows.Close()

	var result []int
	for rows.Next() {
		var pop int
		if err := rows.Scan(&pop); err != nil {
			return nil, err
		}
		result = append(result, pop)
	}
	return result, rows.Err()
}

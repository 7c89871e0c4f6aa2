package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aniscope/aniscope/internal/domain"
)

// TitlesRepository persists the title dimension for both media formats.
type TitlesRepository struct {
	pool *pgxpool.Pool
}

// Upsert merges title rows into the format's info table: new ids are
// inserted, existing ids are updated, rows absent from the incoming set stay
// untouched. Re-running with identical input is a no-op.
func (r *TitlesRepository) Upsert(ctx context.Context, format domain.Format, titles []domain.TitleInfo) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (%s, average_score, title_romaji, popularity, genres)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (%s)
        DO UPDATE SET average_score = EXCLUDED.average_score,
                      title_romaji = EXCLUDED.title_romaji,
                      popularity = EXCLUDED.popularity,
                      genres = EXCLUDED.genres
    `, format.InfoTable(), format.IDColumn(), format.IDColumn())

	for _, title := range titles {
		genres, err := json.Marshal(title.Genres)
		if err != nil {
			return fmt.Errorf("encode genres for title %d: %w", title.ID, err)
		}
		if _, err := r.pool.Exec(ctx, query, title.ID, title.AverageScore, title.Title, title.Popularity, genres); err != nil {
			return fmt.Errorf("upsert title %d: %w", title.ID, err)
		}
	}
	return nil
}

// GetByID fetches one title row, mostly for tests and spot checks.
func (r *TitlesRepository) GetByID(ctx context.Context, format domain.Format, id int) (domain.TitleInfo, error) {
	query := fmt.Sprintf(`
        SELECT %s, average_score, title_romaji, popularity, genres
        FROM %s WHERE %s = $1
    `, format.IDColumn(), format.InfoTable(), format.IDColumn())

	var (
		title     domain.TitleInfo
		rawGenres []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&title.ID, &title.AverageScore, &title.Title, &title.Popularity, &rawGenres)
	if err != nil {
		if isNoRows(err) {
			return domain.TitleInfo{}, ErrNotFound
		}
		return domain.TitleInfo{}, err
	}
	if len(rawGenres) > 0 {
		if err := json.Unmarshal(rawGenres, &title.Genres); err != nil {
			return domain.TitleInfo{}, fmt.Errorf("decode genres for title %d: %w", id, err)
		}
	}
	return title, nil
}

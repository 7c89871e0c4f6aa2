package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aniscope/aniscope/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// Repository aggregates all domain-specific repositories. Each table
// operation is its own unit of work; the pipeline does not span transactions
// across tables.
type Repository struct {
	Titles    *TitlesRepository
	Users     *UsersRepository
	Scores    *ScoresRepository
	Analytics *AnalyticsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Titles:    &TitlesRepository{pool: pool},
		Users:     &UsersRepository{pool: pool},
		Scores:    &ScoresRepository{pool: pool},
		Analytics: &AnalyticsRepository{pool: pool},
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

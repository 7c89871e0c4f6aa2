package repository

import (
	"context"
	"time"

	"github.com/aniscope/aniscope/internal/domain"
)

// Convenience pass-throughs so the ingestion pipeline can depend on a single
// narrow persistence interface.

// UpsertTitles merges title rows into the format's dimension table.
func (r *Repository) UpsertTitles(ctx context.Context, format domain.Format, titles []domain.TitleInfo) error {
	return r.Titles.Upsert(ctx, format, titles)
}

// UpsertUser inserts or refreshes the user dimension row.
func (r *Repository) UpsertUser(ctx context.Context, user domain.UserInfo) error {
	return r.Users.Upsert(ctx, user)
}

// ReplaceUserScores applies full-replace-per-user fact semantics.
func (r *Repository) ReplaceUserScores(ctx context.Context, format domain.Format, userID int, facts []domain.UserScore, insertedAt time.Time) error {
	return r.Scores.Replace(ctx, format, userID, facts, insertedAt)
}

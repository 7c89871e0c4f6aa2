// Package pipeline orchestrates one ingestion run: paginated fetch,
// normalization, filtering, persistence, and analytics assembly.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aniscope/aniscope/internal/analytics"
	"github.com/aniscope/aniscope/internal/anilist"
	"github.com/aniscope/aniscope/internal/domain"
	"github.com/aniscope/aniscope/internal/ingest"
)

// Store is the persistence contract the pipeline requires. Each call is its
// own unit of work; atomicity across tables is not part of the contract.
type Store interface {
	UpsertTitles(ctx context.Context, format domain.Format, titles []domain.TitleInfo) error
	UpsertUser(ctx context.Context, user domain.UserInfo) error
	ReplaceUserScores(ctx context.Context, format domain.Format, userID int, facts []domain.UserScore, insertedAt time.Time) error
}

// Snapshots is the analytics-cache contract.
type Snapshots interface {
	DeviationBuckets(ctx context.Context, format domain.Format, userAbsDiff, userAvgDiff float64) ([]domain.DeviationBucket, []domain.DeviationBucket, error)
	Popularity(ctx context.Context, format domain.Format, userPop int) ([]domain.PopularityEntry, error)
}

// Runner wires one ingestion run end to end.
type Runner struct {
	client  anilist.Client
	store   Store
	cache   Snapshots
	quality *ingest.Suite
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRunner constructs the pipeline.
func NewRunner(client anilist.Client, store Store, cache Snapshots, logger zerolog.Logger) *Runner {
	return &Runner{
		client:  client,
		store:   store,
		cache:   cache,
		quality: ingest.NewSuite(),
		logger:  logger,
		now:     time.Now,
	}
}

// Run ingests one user's rating history for the given format and returns the
// assembled analysis. Transport failures, empty results, and quality
// violations surface as errors carrying user and format context.
func (r *Runner) Run(ctx context.Context, username string, format domain.Format) (*domain.Analysis, error) {
	fail := func(err error) (*domain.Analysis, error) {
		return nil, &anilist.RequestError{Username: username, Format: format.String(), Err: err}
	}

	userID, err := r.resolveUserID(ctx, username)
	if err != nil {
		return fail(err)
	}

	userInfo, facts, err := r.fetchUserScores(ctx, userID, format)
	if err != nil {
		return fail(err)
	}

	titles, err := r.fetchTitles(ctx, facts, format)
	if err != nil {
		return fail(err)
	}

	titles, facts = ingest.FilterConsistent(titles, facts)
	if len(facts) == 0 {
		return fail(ingest.ErrNoScores)
	}

	if err := r.runQualityChecks(userInfo, titles, facts); err != nil {
		return fail(err)
	}

	if err := r.persist(ctx, format, userInfo, titles, facts); err != nil {
		return nil, err
	}

	return r.assemble(ctx, username, format, facts, titles)
}

func (r *Runner) resolveUserID(ctx context.Context, username string) (int, error) {
	query, err := anilist.LoadQuery(anilist.QueryGetID)
	if err != nil {
		return 0, err
	}
	resp, _, err := r.client.Fetch(ctx, query, map[string]any{"name": username})
	if err != nil {
		return 0, err
	}
	if resp.Data.User == nil {
		return 0, anilist.ErrNotFound
	}
	return resp.Data.User.ID, nil
}

func (r *Runner) fetchUserScores(ctx context.Context, userID int, format domain.Format) (domain.UserInfo, []domain.UserScore, error) {
	query, err := anilist.LoadQuery(anilist.UserQuery(format))
	if err != nil {
		return domain.UserInfo{}, nil, err
	}
	resp, meta, err := r.client.Fetch(ctx, query, map[string]any{"page": 1, "id": userID})
	if err != nil {
		return domain.UserInfo{}, nil, err
	}
	return ingest.NormalizeUser(resp.Data.Page, format, meta)
}

func (r *Runner) fetchTitles(ctx context.Context, facts []domain.UserScore, format domain.Format) ([]domain.TitleInfo, error) {
	query, err := anilist.LoadQuery(anilist.QueryMedia)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(facts))
	for i, fact := range facts {
		ids[i] = fact.TitleID
	}

	records, _, err := anilist.NewPaginator(r.client, query, ids).Run(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("format", format.String()).Int("titles", len(records)).Msg("title pages fetched")
	return ingest.NormalizeTitles(records), nil
}

func (r *Runner) runQualityChecks(user domain.UserInfo, titles []domain.TitleInfo, facts []domain.UserScore) error {
	if err := r.quality.CheckUser(user); err != nil {
		return err
	}
	if err := r.quality.CheckTitles(titles); err != nil {
		return err
	}
	return r.quality.CheckScores(facts)
}

func (r *Runner) persist(ctx context.Context, format domain.Format, user domain.UserInfo, titles []domain.TitleInfo, facts []domain.UserScore) error {
	if err := r.store.UpsertTitles(ctx, format, titles); err != nil {
		return fmt.Errorf("persist titles: %w", err)
	}
	if err := r.store.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	if err := r.store.ReplaceUserScores(ctx, format, user.ID, facts, r.now().UTC()); err != nil {
		return fmt.Errorf("persist scores: %w", err)
	}
	return nil
}

func (r *Runner) assemble(ctx context.Context, username string, format domain.Format, facts []domain.UserScore, titles []domain.TitleInfo) (*domain.Analysis, error) {
	rows := analytics.Merge(facts, titles)
	scale := ingest.DetectScale(facts)

	most, least := analytics.Divergence(rows)
	meanDiff := analytics.MeanScoreDiff(rows)
	meanAbsDiff := analytics.MeanAbsScoreDiff(rows)
	userPop := analytics.UserPopularity(rows)

	absDev, avgDev, err := r.cache.DeviationBuckets(ctx, format, meanAbsDiff, meanDiff)
	if err != nil {
		return nil, err
	}
	popularity, err := r.cache.Popularity(ctx, format, userPop)
	if err != nil {
		return nil, err
	}

	analysis := &domain.Analysis{
		UserName:      username,
		Format:        format.String(),
		MeanScoreDiff: meanDiff,
		MaxDivergence: r.divergencePick(ctx, most),
		MinDivergence: r.divergencePick(ctx, least),
		Histogram:     analytics.Histogram(rows, scale),
		ScoreTable:    analytics.ScoreTable(rows),
		GenreStats:    analytics.GenreStats(rows),
		AbsDeviation:  absDev,
		AvgDeviation:  avgDev,
		Popularity:    popularity,
		UserPop:       userPop,
	}
	return analysis, nil
}

// divergencePick decorates a divergence row with its cover image. The image
// lookup is best effort: the analysis is still useful without it.
func (r *Runner) divergencePick(ctx context.Context, row domain.ScoredTitle) domain.DivergencePick {
	pick := domain.DivergencePick{
		TitleID:      row.TitleID,
		Title:        row.Title,
		UserScore:    row.UserScore,
		AverageScore: row.AverageScore,
	}

	query, err := anilist.LoadQuery(anilist.QueryImage)
	if err != nil {
		return pick
	}
	resp, _, err := r.client.Fetch(ctx, query, map[string]any{"id": row.TitleID})
	if err != nil {
		r.logger.Warn().Err(err).Int("title_id", row.TitleID).Msg("cover image lookup failed")
		return pick
	}
	if resp.Data.Media != nil {
		pick.CoverImage = resp.Data.Media.CoverImage.ExtraLarge
	}
	return pick
}

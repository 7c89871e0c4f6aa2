package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/aniscope/aniscope/internal/anilist"
	"github.com/aniscope/aniscope/internal/domain"
)

// ErrNoScores indicates the upstream returned a user with zero ratings in
// the requested format. It is a validation failure, not a transport failure.
var ErrNoScores = errors.New("ingest: no scores in response")

// requestDateLayout matches the HTTP Date response header (RFC 1123).
const requestDateLayout = "Mon, 02 Jan 2006 15:04:05 MST"

// NormalizeUser flattens one user-statistics page into a user row and fact
// rows. Each score entry is exploded into one row per referenced title, all
// carrying the shared user id. Scores on the native 0-10 scale are lifted to
// 0-100 so storage uses a single scale. No rows are dropped here; filtering
// is the consistency filter's job.
func NormalizeUser(page *anilist.PagePayload, format domain.Format, meta anilist.Meta) (domain.UserInfo, []domain.UserScore, error) {
	if page == nil || len(page.Users) == 0 {
		return domain.UserInfo{}, nil, fmt.Errorf("normalize: response carries no user payload")
	}
	user := page.Users[0]

	stats := user.Statistics.Anime
	if format == domain.FormatManga {
		stats = user.Statistics.Manga
	}

	var rows []domain.UserScore
	maxScore := 0
	for _, entry := range stats.Scores {
		for _, id := range entry.MediaIDs {
			rows = append(rows, domain.UserScore{
				UserID:  user.ID,
				TitleID: id,
				Score:   entry.Score,
			})
		}
		if entry.Score > maxScore {
			maxScore = entry.Score
		}
	}
	if len(rows) == 0 {
		return domain.UserInfo{}, nil, ErrNoScores
	}

	if maxScore <= 10 {
		for i := range rows {
			rows[i].Score *= 10
		}
	}

	requestDate, err := ParseRequestDate(meta.Date)
	if err != nil {
		return domain.UserInfo{}, nil, err
	}

	info := domain.UserInfo{
		ID:          user.ID,
		Name:        user.Name,
		RequestDate: requestDate,
	}
	return info, rows, nil
}

// ParseRequestDate parses the HTTP Date header and strips the timezone,
// keeping the literal wall-clock value as a naive timestamp.
func ParseRequestDate(header string) (time.Time, error) {
	t, err := time.Parse(requestDateLayout, header)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse request date %q: %w", header, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

// NormalizeTitles converts media page records into title-dimension rows,
// renaming fields to their canonical relational names and turning the genre
// list into an index-keyed set.
func NormalizeTitles(records []anilist.MediaPayload) []domain.TitleInfo {
	titles := make([]domain.TitleInfo, 0, len(records))
	for _, rec := range records {
		genres := make(domain.GenreSet, len(rec.Genres))
		for i, name := range rec.Genres {
			genres[i] = name
		}
		titles = append(titles, domain.TitleInfo{
			ID:           rec.ID,
			AverageScore: rec.AverageScore,
			Title:        rec.Title.Romaji,
			Popularity:   rec.Popularity,
			Genres:       genres,
		})
	}
	return titles
}

package domain

import (
	"fmt"
	"time"
)

// Format selects which media pipeline a request runs against. The two
// pipelines are structurally identical; the format only chooses table names
// and query templates.
type Format int

const (
	FormatAnime Format = iota
	FormatManga
)

// ParseFormat converts the external string representation into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "anime":
		return FormatAnime, nil
	case "manga":
		return FormatManga, nil
	default:
		return 0, fmt.Errorf("unknown media format %q", s)
	}
}

// String returns the lowercase name used in URLs, table names, and templates.
func (f Format) String() string {
	if f == FormatManga {
		return "manga"
	}
	return "anime"
}

// InfoTable returns the title-dimension table for this format.
func (f Format) InfoTable() string {
	return f.String() + "_info"
}

// ScoreTable returns the fact table for this format.
func (f Format) ScoreTable() string {
	return "user_" + f.String() + "_score"
}

// IDColumn returns the natural-key column shared by the info and fact tables.
func (f Format) IDColumn() string {
	return f.String() + "_id"
}

// GenreSet is an ordered index -> genre name mapping, stored as a flat JSON
// object so the relational schema stays free of array columns.
type GenreSet map[int]string

// TitleInfo is one row of the title dimension. Pointer fields are nil when
// the upstream omitted the value; the consistency filter removes such rows
// before persistence.
type TitleInfo struct {
	ID           int
	AverageScore *int
	Title        *string
	Popularity   *int
	Genres       GenreSet
}

// UserInfo is the single user-dimension row produced per ingestion run.
type UserInfo struct {
	ID          int
	Name        string
	RequestDate time.Time
}

// UserScore is one fact row: the user's rating for a single title. Scores
// are always stored on the 0-100 scale. EndDate is nil for the current row.
type UserScore struct {
	UserID    int
	TitleID   int
	Score     int
	StartDate time.Time
	EndDate   *time.Time
}

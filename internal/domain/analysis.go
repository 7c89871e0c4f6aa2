package domain

// ScoredTitle is one merged row of the user's rating joined with the title
// dimension, the unit the analytics layer works on.
type ScoredTitle struct {
	TitleID      int
	Title        string
	UserScore    int
	AverageScore int
	ScoreDiff    int
	Popularity   int
	Genres       GenreSet
}

// DivergencePick highlights the title where the user agrees or disagrees
// most with the population average.
type DivergencePick struct {
	TitleID      int    `json:"-"`
	Title        string `json:"title"`
	UserScore    int    `json:"userScore"`
	AverageScore int    `json:"averageScore"`
	CoverImage   string `json:"coverImage,omitempty"`
}

// HistogramBucket is one score bucket with the user's rating count and the
// rounded-average rating count. Buckets with zero counts are always present.
type HistogramBucket struct {
	Score        int `json:"score"`
	UserCount    int `json:"userCount"`
	AverageCount int `json:"averageCount"`
}

// ScoreTableRow is one row of the per-title divergence table, sorted by
// absolute score difference.
type ScoreTableRow struct {
	Title        string `json:"title"`
	ScoreDiff    int    `json:"scoreDiff"`
	UserScore    int    `json:"userScore"`
	AverageScore int    `json:"averageScore"`
}

// GenreStat is the genre-weighted deviation for a single genre.
type GenreStat struct {
	Genre           string  `json:"genre"`
	WeightedUser    float64 `json:"weightedUser"`
	WeightedAverage float64 `json:"weightedAverage"`
	WeightedDiff    float64 `json:"weightedDiff"`
}

// DeviationBucket is one bucket of the population-wide mean-deviation
// histogram read from the analytics snapshot.
type DeviationBucket struct {
	ScoreDiff int `json:"scoreDiff"`
	Count     int `json:"count"`
}

// PopularityEntry is one user's mean title popularity within the population
// distribution, sorted descending.
type PopularityEntry struct {
	AveragePopularity int `json:"averagePopularity"`
}

// Analysis is the full result payload for one user/format ingestion run.
type Analysis struct {
	UserName      string            `json:"userName"`
	Format        string            `json:"format"`
	MeanScoreDiff float64           `json:"meanScoreDiff"`
	MaxDivergence DivergencePick    `json:"maxDivergence"`
	MinDivergence DivergencePick    `json:"minDivergence"`
	Histogram     []HistogramBucket `json:"histogram"`
	ScoreTable    []ScoreTableRow   `json:"scoreTable"`
	GenreStats    []GenreStat       `json:"genreStats"`
	AbsDeviation  []DeviationBucket `json:"absDeviation"`
	AvgDeviation  []DeviationBucket `json:"avgDeviation"`
	Popularity    []PopularityEntry `json:"popularity"`
	UserPop       int               `json:"userPopularity"`
}

package analytics

import (
	"math"
	"sort"

	"github.com/aniscope/aniscope/internal/domain"
	"github.com/aniscope/aniscope/internal/ingest"
)

// Merge joins the user's fact rows against the title dimension and attaches
// the per-title score difference.
func Merge(facts []domain.UserScore, titles []domain.TitleInfo) []domain.ScoredTitle {
	byID := make(map[int]domain.TitleInfo, len(titles))
	for _, title := range titles {
		byID[title.ID] = title
	}

	rows := make([]domain.ScoredTitle, 0, len(facts))
	for _, fact := range facts {
		title, ok := byID[fact.TitleID]
		if !ok {
			continue
		}
		rows = append(rows, domain.ScoredTitle{
			TitleID:      fact.TitleID,
			Title:        *title.Title,
			UserScore:    fact.Score,
			AverageScore: *title.AverageScore,
			ScoreDiff:    fact.Score - *title.AverageScore,
			Popularity:   *title.Popularity,
			Genres:       title.Genres,
		})
	}
	return rows
}

// MeanScoreDiff is the user's mean signed deviation from the population
// average.
func MeanScoreDiff(rows []domain.ScoredTitle) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, row := range rows {
		sum += row.ScoreDiff
	}
	return float64(sum) / float64(len(rows))
}

// MeanAbsScoreDiff is the user's mean absolute deviation.
func MeanAbsScoreDiff(rows []domain.ScoredTitle) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, row := range rows {
		sum += abs(row.ScoreDiff)
	}
	return float64(sum) / float64(len(rows))
}

// Divergence returns the rows where the user disagrees most and least with
// the population average. Ties resolve to the first row in input order.
func Divergence(rows []domain.ScoredTitle) (most, least domain.ScoredTitle) {
	for i, row := range rows {
		if i == 0 {
			most, least = row, row
			continue
		}
		if abs(row.ScoreDiff) > abs(most.ScoreDiff) {
			most = row
		}
		if abs(row.ScoreDiff) < abs(least.ScoreDiff) {
			least = row
		}
	}
	return most, least
}

// Histogram counts user scores and bucket-rounded average scores over the
// detected bucket set. Every bucket appears, zero counts included; observed
// values outside the set are kept too.
func Histogram(rows []domain.ScoredTitle, scale ingest.BucketSet) []domain.HistogramBucket {
	userCounts := make(map[int]int)
	avgCounts := make(map[int]int)
	for _, row := range rows {
		userCounts[row.UserScore]++
		avgCounts[scale.Round(row.AverageScore)]++
	}

	scores := make(map[int]bool)
	for _, s := range scale.Scores() {
		scores[s] = true
	}
	for s := range userCounts {
		scores[s] = true
	}
	for s := range avgCounts {
		scores[s] = true
	}

	ordered := make([]int, 0, len(scores))
	for s := range scores {
		ordered = append(ordered, s)
	}
	sort.Ints(ordered)

	buckets := make([]domain.HistogramBucket, len(ordered))
	for i, s := range ordered {
		buckets[i] = domain.HistogramBucket{
			Score:        s,
			UserCount:    userCounts[s],
			AverageCount: avgCounts[s],
		}
	}
	return buckets
}

// ScoreTable lists every title sorted by absolute score difference,
// strongest disagreement first.
func ScoreTable(rows []domain.ScoredTitle) []domain.ScoreTableRow {
	table := make([]domain.ScoreTableRow, len(rows))
	for i, row := range rows {
		table[i] = domain.ScoreTableRow{
			Title:        row.Title,
			ScoreDiff:    row.ScoreDiff,
			UserScore:    row.UserScore,
			AverageScore: row.AverageScore,
		}
	}
	sort.SliceStable(table, func(i, j int) bool {
		return abs(table[i].ScoreDiff) > abs(table[j].ScoreDiff)
	})
	return table
}

// GenreStats weights each genre's mean user/average score by the genre's
// share of the user's titles and sorts by absolute weighted deviation.
func GenreStats(rows []domain.ScoredTitle) []domain.GenreStat {
	type genreAgg struct {
		count   int
		userSum int
		avgSum  int
	}
	aggs := make(map[string]*genreAgg)
	total := 0
	for _, row := range rows {
		for _, genre := range row.Genres {
			agg := aggs[genre]
			if agg == nil {
				agg = &genreAgg{}
				aggs[genre] = agg
			}
			agg.count++
			agg.userSum += row.UserScore
			agg.avgSum += row.AverageScore
			total++
		}
	}
	if total == 0 {
		return nil
	}

	stats := make([]domain.GenreStat, 0, len(aggs))
	for genre, agg := range aggs {
		weight := float64(agg.count) / float64(total)
		weightedUser := float64(agg.userSum) / float64(agg.count) * weight
		weightedAvg := float64(agg.avgSum) / float64(agg.count) * weight
		stats = append(stats, domain.GenreStat{
			Genre:           genre,
			WeightedUser:    round1(weightedUser),
			WeightedAverage: round1(weightedAvg),
			WeightedDiff:    round2(weightedUser - weightedAvg),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return math.Abs(stats[i].WeightedDiff) > math.Abs(stats[j].WeightedDiff)
	})
	return stats
}

// UserPopularity is the rounded mean popularity over the user's titles.
func UserPopularity(rows []domain.ScoredTitle) int {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, row := range rows {
		sum += row.Popularity
	}
	return int(math.Round(float64(sum) / float64(len(rows))))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

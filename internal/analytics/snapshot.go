package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aniscope/aniscope/internal/domain"
	"github.com/aniscope/aniscope/internal/repository"
)

// staleAfter is the snapshot refresh interval. A snapshot older than this is
// rebuilt from the primary store; a fresher one is read as-is.
const staleAfter = 24 * time.Hour

// AggregateSource provides the population-wide aggregates the snapshots are
// built from.
type AggregateSource interface {
	CurrentScores(ctx context.Context, format domain.Format) ([]repository.PopulationScore, error)
	PopularityByUser(ctx context.Context, format domain.Format) ([]int, error)
}

// Cache maintains the daily-refreshed snapshot files. Two concurrent
// refreshers can race on the same file; the race is acceptable because a
// refresh is a deterministic function of the store and the last writer wins.
type Cache struct {
	dir    string
	source AggregateSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewCache builds a snapshot cache rooted at dir.
func NewCache(dir string, source AggregateSource, logger zerolog.Logger) *Cache {
	return &Cache{dir: dir, source: source, logger: logger, now: time.Now}
}

func (c *Cache) deviationPath(format domain.Format) string {
	return filepath.Join(c.dir, "existing_"+format.String()+"_data.csv")
}

func (c *Cache) popularityPath(format domain.Format) string {
	return filepath.Join(c.dir, "existing_"+format.String()+"_pop_data.csv")
}

func (c *Cache) stale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return c.now().Sub(info.ModTime()) >= staleAfter
}

// DeviationBuckets returns the population histograms of mean absolute and
// mean signed score deviation per user, refreshing the snapshot when stale.
// The calling user's own values are folded into the histograms when absent
// so their data point is represented before the next refresh.
func (c *Cache) DeviationBuckets(ctx context.Context, format domain.Format, userAbsDiff, userAvgDiff float64) ([]domain.DeviationBucket, []domain.DeviationBucket, error) {
	path := c.deviationPath(format)
	if c.stale(path) {
		scores, err := c.source.CurrentScores(ctx, format)
		if err != nil {
			return nil, nil, fmt.Errorf("refresh deviation snapshot: %w", err)
		}
		if err := c.writeDeviationSnapshot(path, scores); err != nil {
			return nil, nil, err
		}
		c.logger.Info().Str("format", format.String()).Int("rows", len(scores)).Msg("deviation snapshot refreshed")
	}

	scores, err := c.readDeviationSnapshot(path)
	if err != nil {
		return nil, nil, err
	}

	abs := deviationHistogram(scores, true, int(math.Round(userAbsDiff)))
	avg := deviationHistogram(scores, false, int(math.Round(userAvgDiff)))
	return abs, avg, nil
}

// Popularity returns the population distribution of mean title popularity,
// sorted descending, with the calling user's value inserted when absent.
func (c *Cache) Popularity(ctx context.Context, format domain.Format, userPop int) ([]domain.PopularityEntry, error) {
	path := c.popularityPath(format)
	if c.stale(path) {
		pops, err := c.source.PopularityByUser(ctx, format)
		if err != nil {
			return nil, fmt.Errorf("refresh popularity snapshot: %w", err)
		}
		if err := c.writePopularitySnapshot(path, pops); err != nil {
			return nil, err
		}
		c.logger.Info().Str("format", format.String()).Int("rows", len(pops)).Msg("popularity snapshot refreshed")
	}

	pops, err := c.readPopularitySnapshot(path)
	if err != nil {
		return nil, err
	}

	found := false
	for _, pop := range pops {
		if pop == userPop {
			found = true
			break
		}
	}
	if !found {
		pops = append(pops, userPop)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(pops)))
	entries := make([]domain.PopularityEntry, len(pops))
	for i, pop := range pops {
		entries[i] = domain.PopularityEntry{AveragePopularity: pop}
	}
	return entries, nil
}

// deviationHistogram aggregates per-user mean deviation into value counts.
// The user's own bucket is added with count 1 when missing.
func deviationHistogram(scores []repository.PopulationScore, absolute bool, userValue int) []domain.DeviationBucket {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, row := range scores {
		diff := float64(row.UserScore - row.AverageScore)
		if absolute {
			diff = math.Abs(diff)
		}
		sums[row.UserID] += diff
		counts[row.UserID]++
	}

	buckets := make(map[int]int)
	for userID, sum := range sums {
		mean := int(math.Round(sum / float64(counts[userID])))
		buckets[mean]++
	}
	if _, ok := buckets[userValue]; !ok {
		buckets[userValue] = 1
	}

	values := make([]int, 0, len(buckets))
	for value := range buckets {
		values = append(values, value)
	}
	sort.Ints(values)

	result := make([]domain.DeviationBucket, len(values))
	for i, value := range values {
		result[i] = domain.DeviationBucket{ScoreDiff: value, Count: buckets[value]}
	}
	return result
}

// writeAtomic writes rows to a temp file in the snapshot directory and
// renames it into place so readers never observe a half-written snapshot.
func (c *Cache) writeAtomic(path string, write func(*csv.Writer) error) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (c *Cache) writeDeviationSnapshot(path string, scores []repository.PopulationScore) error {
	return c.writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"title_id", "user_id", "user_score", "average_score"}); err != nil {
			return err
		}
		for _, row := range scores {
			record := []string{
				strconv.Itoa(row.TitleID),
				strconv.Itoa(row.UserID),
				strconv.Itoa(row.UserScore),
				strconv.Itoa(row.AverageScore),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Cache) readDeviationSnapshot(path string) ([]repository.PopulationScore, error) {
	records, err := readSnapshot(path, 4)
	if err != nil {
		return nil, err
	}
	scores := make([]repository.PopulationScore, len(records))
	for i, record := range records {
		scores[i] = repository.PopulationScore{
			TitleID:      record[0],
			UserID:       record[1],
			UserScore:    record[2],
			AverageScore: record[3],
		}
	}
	return scores, nil
}

func (c *Cache) writePopularitySnapshot(path string, pops []int) error {
	return c.writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"average_popularity"}); err != nil {
			return err
		}
		for _, pop := range pops {
			if err := w.Write([]string{strconv.Itoa(pop)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Cache) readPopularitySnapshot(path string) ([]int, error) {
	records, err := readSnapshot(path, 1)
	if err != nil {
		return nil, err
	}
	pops := make([]int, len(records))
	for i, record := range records {
		pops[i] = record[0]
	}
	return pops, nil
}

// readSnapshot parses a headered CSV snapshot into integer records.
func readSnapshot(path string, fields int) ([][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = fields

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	records := make([][]int, 0, len(raw)-1)
	for _, row := range raw[1:] {
		record := make([]int, fields)
		for i, cell := range row {
			value, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
			}
			record[i] = value
		}
		records = append(records, record)
	}
	return records, nil
}

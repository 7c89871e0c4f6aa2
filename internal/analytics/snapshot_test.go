package analytics

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aniscope/aniscope/internal/domain"
	"github.com/aniscope/aniscope/internal/repository"
)

type fakeSource struct {
	scores      []repository.PopulationScore
	pops        []int
	scoreCalls  int
	popCalls    int
	failQueries bool
}

func (f *fakeSource) CurrentScores(ctx context.Context, format domain.Format) ([]repository.PopulationScore, error) {
	f.scoreCalls++
	if f.failQueries {
		return nil, os.ErrDeadlineExceeded
	}
	return f.scores, nil
}

func (f *fakeSource) PopularityByUser(ctx context.Context, format domain.Format) ([]int, error) {
	f.popCalls++
	if f.failQueries {
		return nil, os.ErrDeadlineExceeded
	}
	return f.pops, nil
}

func newTestCache(t *testing.T, source *fakeSource) *Cache {
	t.Helper()
	return NewCache(t.TempDir(), source, zerolog.Nop())
}

func seedScores() []repository.PopulationScore {
	return []repository.PopulationScore{
		// user 1: diffs +20 and -10 -> mean abs 15, mean signed 5
		{TitleID: 1, UserID: 1, UserScore: 90, AverageScore: 70},
		{TitleID: 2, UserID: 1, UserScore: 60, AverageScore: 70},
		// user 2: single diff -30
		{TitleID: 1, UserID: 2, UserScore: 40, AverageScore: 70},
	}
}

func TestDeviationBucketsBuildsSnapshotOnFirstUse(t *testing.T) {
	source := &fakeSource{scores: seedScores()}
	cache := newTestCache(t, source)

	abs, avg, err := cache.DeviationBuckets(context.Background(), domain.FormatAnime, 15, 5)
	if err != nil {
		t.Fatalf("deviation buckets: %v", err)
	}
	if source.scoreCalls != 1 {
		t.Fatalf("expected one store query, got %d", source.scoreCalls)
	}

	wantAbs := map[int]int{15: 1, 30: 1}
	if len(abs) != len(wantAbs) {
		t.Fatalf("unexpected abs buckets: %+v", abs)
	}
	for _, b := range abs {
		if wantAbs[b.ScoreDiff] != b.Count {
			t.Fatalf("abs bucket %d: expected %d, got %d", b.ScoreDiff, wantAbs[b.ScoreDiff], b.Count)
		}
	}

	wantAvg := map[int]int{5: 1, -30: 1}
	for _, b := range avg {
		if wantAvg[b.ScoreDiff] != b.Count {
			t.Fatalf("avg bucket %d: expected %d, got %d", b.ScoreDiff, wantAvg[b.ScoreDiff], b.Count)
		}
	}
	if avg[0].ScoreDiff > avg[len(avg)-1].ScoreDiff {
		t.Fatal("avg buckets not sorted ascending")
	}
}

func TestDeviationBucketsInsertsCallingUserWhenAbsent(t *testing.T) {
	source := &fakeSource{scores: seedScores()}
	cache := newTestCache(t, source)

	abs, _, err := cache.DeviationBuckets(context.Background(), domain.FormatAnime, 42, 0)
	if err != nil {
		t.Fatalf("deviation buckets: %v", err)
	}
	found := false
	for _, b := range abs {
		if b.ScoreDiff == 42 && b.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("calling user's bucket 42 missing: %+v", abs)
	}
}

func TestSnapshotStaleness(t *testing.T) {
	source := &fakeSource{scores: seedScores()}
	cache := newTestCache(t, source)
	ctx := context.Background()

	if _, _, err := cache.DeviationBuckets(ctx, domain.FormatAnime, 0, 0); err != nil {
		t.Fatalf("initial build: %v", err)
	}
	path := cache.deviationPath(domain.FormatAnime)

	// Fresh file (1 hour old): the store must not be queried again.
	recent := time.Now().Add(-1 * time.Hour)
	if err := os.Chtimes(path, recent, recent); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, _, err := cache.DeviationBuckets(ctx, domain.FormatAnime, 0, 0); err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if source.scoreCalls != 1 {
		t.Fatalf("fresh snapshot must skip the store, saw %d queries", source.scoreCalls)
	}

	// Stale file (2 days old): the store is queried and the file rewritten.
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, _, err := cache.DeviationBuckets(ctx, domain.FormatAnime, 0, 0); err != nil {
		t.Fatalf("stale read: %v", err)
	}
	if source.scoreCalls != 2 {
		t.Fatalf("stale snapshot must requery the store, saw %d queries", source.scoreCalls)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat snapshot: %v", err)
	}
	if time.Since(info.ModTime()) > time.Minute {
		t.Fatal("stale snapshot was not rewritten")
	}
}

func TestPopularityInsertsAndSortsDescending(t *testing.T) {
	source := &fakeSource{pops: []int{500, 12000, 900}}
	cache := newTestCache(t, source)

	entries, err := cache.Popularity(context.Background(), domain.FormatManga, 4200)
	if err != nil {
		t.Fatalf("popularity: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected user value inserted, got %+v", entries)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].AveragePopularity > entries[i-1].AveragePopularity {
			t.Fatalf("not sorted descending: %+v", entries)
		}
	}

	// Present value must not be duplicated.
	entries, err = cache.Popularity(context.Background(), domain.FormatManga, 900)
	if err != nil {
		t.Fatalf("popularity: %v", err)
	}
	count := 0
	for _, e := range entries {
		if e.AveragePopularity == 900 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected a single 900 entry, got %d", count)
	}
}

func TestSnapshotDirectoryHasNoTempLeftovers(t *testing.T) {
	source := &fakeSource{scores: seedScores(), pops: []int{1}}
	cache := newTestCache(t, source)
	ctx := context.Background()

	if _, _, err := cache.DeviationBuckets(ctx, domain.FormatAnime, 0, 0); err != nil {
		t.Fatalf("deviation: %v", err)
	}
	if _, err := cache.Popularity(ctx, domain.FormatAnime, 1); err != nil {
		t.Fatalf("popularity: %v", err)
	}

	entries, err := os.ReadDir(cache.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected exactly the two snapshot files, got %v", names)
	}
}

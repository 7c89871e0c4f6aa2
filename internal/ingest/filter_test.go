package ingest

import (
	"testing"

	"github.com/aniscope/aniscope/internal/domain"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func fullTitle(id int) domain.TitleInfo {
	return domain.TitleInfo{
		ID:           id,
		AverageScore: intPtr(70),
		Title:        strPtr("Title"),
		Popularity:   intPtr(1000),
	}
}

func TestFilterConsistentRemovesNullTitlesAndTheirFacts(t *testing.T) {
	titles := []domain.TitleInfo{
		fullTitle(1),
		{ID: 2, Title: strPtr("No Average"), Popularity: intPtr(5)},
		fullTitle(3),
	}
	facts := []domain.UserScore{
		{UserID: 9, TitleID: 1, Score: 80},
		{UserID: 9, TitleID: 2, Score: 60},
		{UserID: 9, TitleID: 3, Score: 90},
	}

	gotTitles, gotFacts := FilterConsistent(titles, facts)

	if len(gotTitles) != 2 {
		t.Fatalf("expected 2 titles kept, got %d", len(gotTitles))
	}
	kept := make(map[int]bool)
	for _, title := range gotTitles {
		kept[title.ID] = true
	}
	for _, fact := range gotFacts {
		if !kept[fact.TitleID] {
			t.Fatalf("fact references removed title %d", fact.TitleID)
		}
	}
	for _, fact := range gotFacts {
		if fact.TitleID == 2 {
			t.Fatal("fact for removed title 2 survived the filter")
		}
	}
	if len(gotFacts) != 2 {
		t.Fatalf("expected 2 facts kept, got %d", len(gotFacts))
	}
}

func TestFilterConsistentKeepsCompleteInput(t *testing.T) {
	titles := []domain.TitleInfo{fullTitle(1), fullTitle(2)}
	facts := []domain.UserScore{
		{UserID: 9, TitleID: 1, Score: 80},
		{UserID: 9, TitleID: 2, Score: 50},
	}

	gotTitles, gotFacts := FilterConsistent(titles, facts)
	if len(gotTitles) != 2 || len(gotFacts) != 2 {
		t.Fatalf("complete input should pass unchanged, got %d titles %d facts", len(gotTitles), len(gotFacts))
	}
}

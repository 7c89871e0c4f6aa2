package ingest

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/aniscope/aniscope/internal/domain"
)

// Suite runs the data quality expectations applied before persistence:
// identifiers unique and present, scores inside 0-100. A failed expectation
// aborts the ingestion run.
type Suite struct {
	validate *validator.Validate
}

// NewSuite constructs the expectation suite.
func NewSuite() *Suite {
	return &Suite{validate: validator.New(validator.WithRequiredStructEnabled())}
}

type titleExpectation struct {
	ID           int `validate:"required"`
	AverageScore int `validate:"gte=0,lte=100"`
}

type scoreExpectation struct {
	UserID  int `validate:"required"`
	TitleID int `validate:"required"`
	Score   int `validate:"gte=0,lte=100"`
}

type userExpectation struct {
	ID   int    `validate:"required"`
	Name string `validate:"required"`
}

// CheckTitles validates the title dimension after the consistency filter.
func (s *Suite) CheckTitles(titles []domain.TitleInfo) error {
	seen := make(map[int]bool, len(titles))
	for _, title := range titles {
		if seen[title.ID] {
			return fmt.Errorf("data quality: duplicate title id %d", title.ID)
		}
		seen[title.ID] = true

		avg := 0
		if title.AverageScore != nil {
			avg = *title.AverageScore
		}
		if err := s.validate.Struct(titleExpectation{ID: title.ID, AverageScore: avg}); err != nil {
			return fmt.Errorf("data quality: title %d: %w", title.ID, err)
		}
	}
	return nil
}

// CheckScores validates the fact rows: one row per title, bounded scores.
func (s *Suite) CheckScores(facts []domain.UserScore) error {
	seen := make(map[int]bool, len(facts))
	for _, fact := range facts {
		if seen[fact.TitleID] {
			return fmt.Errorf("data quality: duplicate score row for title %d", fact.TitleID)
		}
		seen[fact.TitleID] = true

		if err := s.validate.Struct(scoreExpectation{UserID: fact.UserID, TitleID: fact.TitleID, Score: fact.Score}); err != nil {
			return fmt.Errorf("data quality: score for title %d: %w", fact.TitleID, err)
		}
	}
	return nil
}

// CheckUser validates the user dimension row.
func (s *Suite) CheckUser(user domain.UserInfo) error {
	if err := s.validate.Struct(userExpectation{ID: user.ID, Name: user.Name}); err != nil {
		return fmt.Errorf("data quality: user %d: %w", user.ID, err)
	}
	return nil
}

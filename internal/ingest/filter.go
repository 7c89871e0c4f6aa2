package ingest

import "github.com/aniscope/aniscope/internal/domain"

// FilterConsistent removes title rows missing a required field and every
// fact row referencing a removed title. Afterwards every fact row's title id
// exists in the title set.
func FilterConsistent(titles []domain.TitleInfo, facts []domain.UserScore) ([]domain.TitleInfo, []domain.UserScore) {
	kept := make([]domain.TitleInfo, 0, len(titles))
	removed := make(map[int]bool)
	for _, title := range titles {
		if title.AverageScore == nil || title.Title == nil || title.Popularity == nil {
			removed[title.ID] = true
			continue
		}
		kept = append(kept, title)
	}

	if len(removed) == 0 {
		return kept, facts
	}

	keptFacts := make([]domain.UserScore, 0, len(facts))
	for _, fact := range facts {
		if removed[fact.TitleID] {
			continue
		}
		keptFacts = append(keptFacts, fact)
	}
	return kept, keptFacts
}

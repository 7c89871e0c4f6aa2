package ingest

import (
	"math"

	"github.com/aniscope/aniscope/internal/domain"
)

// BucketSet is the fixed ordered set of score values used for deviation
// histograms, chosen by the detected rating granularity.
type BucketSet struct {
	Step int
}

// DetectScale inspects the user's scores. When every score is an exact
// multiple of 10 the native scale is treated as 0-10 and averages round to
// the nearest 10; otherwise averages round to the nearest 5. A user whose
// fine-grained ratings all happen to be multiples of 10 is indistinguishable
// from a coarse-scale user, matching upstream behaviour.
func DetectScale(facts []domain.UserScore) BucketSet {
	for _, fact := range facts {
		if fact.Score%10 != 0 {
			return BucketSet{Step: 5}
		}
	}
	return BucketSet{Step: 10}
}

// Round snaps an average score to the bucket granularity.
func (b BucketSet) Round(score int) int {
	return b.Step * int(math.Round(float64(score)/float64(b.Step)))
}

// Scores returns the full bucket set, 10 through 100.
func (b BucketSet) Scores() []int {
	var scores []int
	for s := 10; s <= 100; s += b.Step {
		scores = append(scores, s)
	}
	return scores
}

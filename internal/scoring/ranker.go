package scoring

import (
	"sort"
	"time"

	"github.com/procurelane/evalengine/internal/domain"
)

// UnrankedPosition is the rank assigned to submissions with no completed
// evaluations. Zero denotes "unranked"; ranked submissions occupy the
// contiguous sequence 1..n.
const UnrankedPosition = 0

// Standing is one submission's place in a tender's authoritative ranking.
type Standing struct {
	SubmissionID string
	VendorID     string
	Status       domain.SubmissionStatus
	SubmittedAt  time.Time

	// Average is the mean of per-evaluator composites, nil while pending.
	Average *float64

	// Rank is 1-based and contiguous over submissions with a non-nil
	// average; UnrankedPosition for the rest.
	Rank int
}

// Pending reports whether the submission is still awaiting its first
// completed evaluation.
func (s Standing) Pending() bool { return s.Average == nil }

// Rank orders a tender's submissions by average score descending and
// assigns stable 1-based ranks. Ties among equal averages break by earliest
// submission time, then by submission id, giving a total order so no two
// submissions ever share a rank number. Submissions with a nil average sort
// last and receive rank 0 regardless of any other field.
//
// Ranking is a pure function of the evaluation snapshot: re-running it on an
// unchanged set yields an identical assignment, and callers recompute it on
// read rather than persisting a possibly stale result.
func Rank(criteria []domain.Criterion, submissions []domain.Submission) []Standing {
	standings := make([]Standing, 0, len(submissions))
	for _, sub := range submissions {
		standings = append(standings, Standing{
			SubmissionID: sub.ID,
			VendorID:     sub.VendorID,
			Status:       sub.Status,
			SubmittedAt:  sub.SubmittedAt,
			Average:      AverageScore(criteria, sub.Evaluations),
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		switch {
		case a.Average == nil && b.Average == nil:
			return less(a, b)
		case a.Average == nil:
			return false
		case b.Average == nil:
			return true
		case *a.Average != *b.Average:
			return *a.Average > *b.Average
		default:
			return less(a, b)
		}
	})

	next := 1
	for i := range standings {
		if standings[i].Average == nil {
			standings[i].Rank = UnrankedPosition
			continue
		}
		standings[i].Rank = next
		next++
	}
	return standings
}

// less is the deterministic tie-breaker: earlier submission ranks higher,
// with submission id as the final total-order key.
func less(a, b Standing) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.SubmissionID < b.SubmissionID
}

// TopRanked returns the standing holding rank 1, if any submission has been
// evaluated at all.
func TopRanked(standings []Standing) (Standing, bool) {
	for _, s := range standings {
		if s.Rank == 1 {
			return s, true
		}
	}
	return Standing{}, false
}

// StandingOf returns the standing for the given submission id.
func StandingOf(standings []Standing, submissionID string) (Standing, bool) {
	for _, s := range standings {
		if s.SubmissionID == submissionID {
			return s, true
		}
	}
	return Standing{}, false
}

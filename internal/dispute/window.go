// Package dispute implements dispute filing and reconciliation: the bounded
// window during which a vendor may contest a decision, and the atomic winner
// reassignment performed when a winner dispute is upheld.
package dispute

import (
	"math"
	"time"

	"github.com/procurelane/evalengine/internal/domain"
)

// Window is the span after a decision date during which a dispute may still
// be filed. Both the "can file" check and the "days left" display derive
// from the same deadline instant so the two can never disagree.
type Window struct {
	// Anchor is the decision date the window counts from: the tender's
	// close date for winner disputes, the submission's rejection date for
	// rejection disputes.
	Anchor time.Time

	// Days is the tender's dispute time frame in whole days.
	Days int
}

// Deadline returns the last instant at which filing is still permitted.
// The boundary is inclusive: filing exactly at anchor+days is allowed.
func (w Window) Deadline() time.Time {
	return w.Anchor.AddDate(0, 0, w.Days)
}

// Open reports whether a dispute may be filed at the given instant.
func (w Window) Open(now time.Time) bool {
	return !now.After(w.Deadline())
}

// DaysLeft returns the number of whole days remaining before the deadline,
// using ceiling arithmetic: 25 hours left reads as 2 days, one second left
// as 1 day, and a closed window as 0. Note that Open can still be true when
// DaysLeft reports 0, at the exact inclusive boundary.
func (w Window) DaysLeft(now time.Time) int {
	remaining := w.Deadline().Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// WindowFor derives the filing window for a dispute of the given type.
// Rejection disputes require a submission with a recorded rejection date.
func WindowFor(tender domain.Tender, submission *domain.Submission, disputeType domain.DisputeType) (Window, error) {
	switch disputeType {
	case domain.DisputeWinner:
		return Window{Anchor: tender.Deadline, Days: tender.DisputeTimeFrameDays}, nil

	case domain.DisputeRejection:
		if submission == nil || submission.RejectedAt == nil {
			verr := domain.NewValidationError("dispute")
			verr.AddError("rejection disputes require a submission with a rejection date")
			return Window{}, verr
		}
		return Window{Anchor: *submission.RejectedAt, Days: tender.DisputeTimeFrameDays}, nil

	default:
		verr := domain.NewValidationError("dispute")
		verr.AddError("unknown dispute type " + string(disputeType))
		return Window{}, verr
	}
}

package dispute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/testutils"
)

var anchor = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestWindow_InclusiveBoundary(t *testing.T) {
	w := Window{Anchor: anchor, Days: 7}

	tests := []struct {
		name string
		now  time.Time
		open bool
	}{
		{"at anchor", anchor, true},
		{"mid window", anchor.AddDate(0, 0, 3), true},
		{"exactly at deadline", anchor.AddDate(0, 0, 7), true},
		{"one second past deadline", anchor.AddDate(0, 0, 7).Add(time.Second), false},
		{"one day past deadline", anchor.AddDate(0, 0, 8), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, w.Open(tt.now))
		})
	}
}

func TestWindow_DaysLeftCeiling(t *testing.T) {
	w := Window{Anchor: anchor, Days: 7}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"full window remaining", anchor, 7},
		{"25 hours remaining rounds up", w.Deadline().Add(-25 * time.Hour), 2},
		{"exactly 24 hours remaining", w.Deadline().Add(-24 * time.Hour), 1},
		{"one second remaining", w.Deadline().Add(-time.Second), 1},
		{"at the inclusive boundary", w.Deadline(), 0},
		{"window closed", w.Deadline().Add(time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.DaysLeft(tt.now))
		})
	}
}

func TestWindow_OpenAtBoundaryWithZeroDaysLeft(t *testing.T) {
	// At the exact deadline instant the window is still open while the
	// display reads 0 days left.
	w := Window{Anchor: anchor, Days: 7}

	assert.True(t, w.Open(w.Deadline()))
	assert.Equal(t, 0, w.DaysLeft(w.Deadline()))
}

func TestWindowFor(t *testing.T) {
	tender := testutils.NewTender("t1", "e1")

	t.Run("winner dispute anchors to tender deadline", func(t *testing.T) {
		w, err := WindowFor(tender, nil, domain.DisputeWinner)

		require.NoError(t, err)
		assert.Equal(t, tender.Deadline, w.Anchor)
		assert.Equal(t, tender.DisputeTimeFrameDays, w.Days)
	})

	t.Run("rejection dispute anchors to rejection date", func(t *testing.T) {
		rejectedAt := tender.Deadline.Add(48 * time.Hour)
		sub := testutils.NewSubmission("s1", "t1", "v1", domain.SubmissionRejected, 0)
		sub.RejectedAt = &rejectedAt

		w, err := WindowFor(tender, &sub, domain.DisputeRejection)

		require.NoError(t, err)
		assert.Equal(t, rejectedAt, w.Anchor)
	})

	t.Run("rejection dispute without rejection date", func(t *testing.T) {
		sub := testutils.NewSubmission("s1", "t1", "v1", domain.SubmissionRejected, 0)

		_, err := WindowFor(tender, &sub, domain.DisputeRejection)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejection date")
	})

	t.Run("unknown dispute type", func(t *testing.T) {
		_, err := WindowFor(tender, nil, domain.DisputeType("bogus"))
		require.Error(t, err)
	})
}

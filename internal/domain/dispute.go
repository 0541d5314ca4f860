package domain

import "time"

// DisputeType identifies what decision a vendor is contesting.
type DisputeType string

const (
	// DisputeWinner contests the published winner of a tender. Its filing
	// window anchors to the tender's close date.
	DisputeWinner DisputeType = "winner"

	// DisputeRejection contests the rejection of the vendor's own
	// submission. Its filing window anchors to the rejection date.
	DisputeRejection DisputeType = "rejection"
)

// IsValid reports whether the dispute type is known.
func (t DisputeType) IsValid() bool {
	return t == DisputeWinner || t == DisputeRejection
}

// DisputeStatus is the resolution state of a dispute. Pending is the only
// non-terminal state; accepted and rejected are immutable once set.
type DisputeStatus string

const (
	DisputePending  DisputeStatus = "pending"
	DisputeAccepted DisputeStatus = "accepted"
	DisputeRejected DisputeStatus = "rejected"
)

// Dispute is a vendor's formal challenge to a tender decision. It references
// its tender and submission by id only; records are resolved through the
// document store.
type Dispute struct {
	ID       string `json:"id" bson:"_id"`
	TenderID string `json:"tender_id" bson:"tender_id"`

	// SubmissionID is required for rejection disputes and identifies the
	// disputant's submission for winner disputes.
	SubmissionID string `json:"submission_id,omitempty" bson:"submission_id,omitempty"`

	RaisedBy string      `json:"raised_by" bson:"raised_by"`
	Type     DisputeType `json:"type" bson:"type"`

	// Reason is the vendor's free-text justification, 10 to 1000 characters.
	Reason string `json:"reason" bson:"reason"`

	Status DisputeStatus `json:"status" bson:"status"`

	Resolution string     `json:"resolution,omitempty" bson:"resolution,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`

	FiledAt time.Time `json:"filed_at" bson:"filed_at"`
	Version int64     `json:"version" bson:"version"`
}

// Resolved reports whether the dispute has reached a terminal state.
func (d Dispute) Resolved() bool {
	return d.Status == DisputeAccepted || d.Status == DisputeRejected
}

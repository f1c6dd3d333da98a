package models

import "time"

// SubmissionStatus tracks a submission through review
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "PENDING"
	SubmissionStatusApproved SubmissionStatus = "APPROVED"
	SubmissionStatusRejected SubmissionStatus = "REJECTED"
)

// BountySubmission is a user's claim that their pull request resolves a
// bounty's issue. One submission per user per bounty. PRNumber is
// submitter-supplied and is only trusted after it is cross-checked against a
// verified merged-PR webhook for the bounty's own repository.
type BountySubmission struct {
	ID         string           `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID   string           `gorm:"not null;uniqueIndex:idx_submission_bounty_user,priority:1" json:"bounty_id"`
	UserID     string           `gorm:"not null;index;uniqueIndex:idx_submission_bounty_user,priority:2" json:"user_id"`
	PRURL      string           `gorm:"column:pr_url;not null" json:"pr_url"`
	PRNumber   int              `gorm:"column:pr_number;not null;index" json:"pr_number"`
	Status     SubmissionStatus `gorm:"not null;default:'PENDING';index" json:"status"`
	IsVerified bool             `gorm:"default:false" json:"is_verified"`
	VerifiedAt *time.Time       `json:"verified_at,omitempty"`

	Bounty *Bounty `gorm:"foreignKey:BountyID" json:"bounty,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Timestamps
}

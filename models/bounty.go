package models

import "time"

// BountyStatus tracks a bounty through its lifecycle
type BountyStatus string

const (
	BountyStatusActive    BountyStatus = "ACTIVE"
	BountyStatusSolved    BountyStatus = "SOLVED"
	BountyStatusExpired   BountyStatus = "EXPIRED"
	BountyStatusCancelled BountyStatus = "CANCELLED"
)

// DefaultBountyLabels are attached to the GitHub issue when a bounty is
// created for it.
var DefaultBountyLabels = []string{"bounty", "usdc-reward"}

// Bounty is a reward pledged against a GitHub issue. The issue/owner/repo
// triple is the natural key used to find a bounty from webhook payloads.
// SolvedAt/SolvedBy are only set once the status reaches SOLVED; SOLVED is
// terminal for the webhook pipeline (no automatic un-solve).
type Bounty struct {
	ID              string       `gorm:"primaryKey;type:uuid" json:"id"`
	GithubIssueID   int          `gorm:"not null;uniqueIndex:idx_bounty_issue_repo,priority:1" json:"github_issue_id"`
	GithubRepoOwner string       `gorm:"not null;uniqueIndex:idx_bounty_issue_repo,priority:2" json:"github_repo_owner"`
	GithubRepoName  string       `gorm:"not null;uniqueIndex:idx_bounty_issue_repo,priority:3" json:"github_repo_name"`
	Title           string       `gorm:"not null" json:"title"`
	Description     string       `gorm:"type:text" json:"description"`
	BountyAmount    float64      `gorm:"not null" json:"bounty_amount"` // USDC
	GithubIssueURL  string       `json:"github_issue_url"`
	GithubLabels    []string     `gorm:"serializer:json" json:"github_labels"`
	Status          BountyStatus `gorm:"not null;default:'ACTIVE';index" json:"status"`
	IsSolved        bool         `gorm:"default:false" json:"is_solved"`
	SolvedAt        *time.Time   `json:"solved_at,omitempty"`
	SolvedBy        *string      `gorm:"index" json:"solved_by,omitempty"` // User.ID of the credited solver
	BountyPosterID  string       `gorm:"index;not null" json:"bounty_poster_id"`
	ExpiresAt       *time.Time   `gorm:"index" json:"expires_at,omitempty"`

	BountyPoster *User              `gorm:"foreignKey:BountyPosterID" json:"bounty_poster,omitempty"`
	Submissions  []BountySubmission `gorm:"foreignKey:BountyID" json:"submissions,omitempty"`

	Timestamps
}

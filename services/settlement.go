package services

import (
	"errors"
	"log"
	"regexp"
	"strconv"
	"time"

	"bounty-board-backend/models"

	"gorm.io/gorm"
)

// SettlementCandidate pairs a bounty with the PENDING submission that would
// be credited if the candidate passes the settlement guards.
type SettlementCandidate struct {
	Bounty     models.Bounty
	Submission models.BountySubmission
}

// BountyResolver locates settlement candidates for a merged pull request.
// Two strategies exist: direct submission lookup by PR number (primary) and
// close-reference extraction from the PR body (fallback). Both require a
// matching PENDING submission — settling without one would leave the solver
// unattributable.
type BountyResolver interface {
	Resolve(db *gorm.DB, event *PullRequestEvent) ([]SettlementCandidate, error)
}

// SubmissionResolver finds every PENDING submission referencing the merged
// PR's number. The PR number alone is not unique across repositories, so the
// repository guard in settle disambiguates.
type SubmissionResolver struct{}

func (SubmissionResolver) Resolve(db *gorm.DB, event *PullRequestEvent) ([]SettlementCandidate, error) {
	var submissions []models.BountySubmission
	err := db.
		Preload("Bounty").
		Where("pr_number = ? AND status = ?", event.PullRequest.Number, models.SubmissionStatusPending).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	var candidates []SettlementCandidate
	for _, sub := range submissions {
		if sub.Bounty == nil {
			log.Printf("⚠️ [SETTLEMENT] Submission %s has no bounty, skipping", sub.ID)
			continue
		}
		candidates = append(candidates, SettlementCandidate{Bounty: *sub.Bounty, Submission: sub})
	}
	return candidates, nil
}

// closeRefPattern matches the close-linking keywords GitHub honors in PR
// bodies: "fixes #12", "Closes#7", "resolves  #3", case-insensitive.
var closeRefPattern = regexp.MustCompile(`(?i)\b(?:fixes|closes|resolves)\s*#(\d+)`)

// ExtractIssueReferences returns every issue number the PR body close-links.
func ExtractIssueReferences(body string) []int {
	var numbers []int
	for _, match := range closeRefPattern.FindAllStringSubmatch(body, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers
}

// BodyReferenceResolver extracts close-linked issue numbers from the PR body
// and looks bounties up by natural key. Strictly weaker than the submission
// lookup (free-text convention), used only when the primary finds nothing.
type BodyReferenceResolver struct{}

func (BodyReferenceResolver) Resolve(db *gorm.DB, event *PullRequestEvent) ([]SettlementCandidate, error) {
	owner := event.Repository.Owner.Login
	repo := event.Repository.Name

	var candidates []SettlementCandidate
	for _, issueNumber := range ExtractIssueReferences(event.PullRequest.Body) {
		bounty, err := findBountyByIssue(db, issueNumber, owner, repo)
		if err != nil {
			return nil, err
		}
		if bounty == nil {
			continue
		}

		var submission models.BountySubmission
		err = db.
			Where("bounty_id = ? AND pr_number = ? AND status = ?",
				bounty.ID, event.PullRequest.Number, models.SubmissionStatusPending).
			First(&submission).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[SETTLEMENT] Bounty %s referenced by PR #%d has no pending submission, skipping",
				bounty.ID, event.PullRequest.Number)
			continue
		}
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, SettlementCandidate{Bounty: *bounty, Submission: submission})
	}
	return candidates, nil
}

// errSettlementSuperseded aborts the settlement transaction when a guard row
// count comes back zero: another delivery (or the issue-close path) already
// transitioned the bounty or submission. Rolled back and treated as a no-op.
var errSettlementSuperseded = errors.New("settlement superseded by earlier transition")

// settleMergedPullRequest resolves candidates and settles every one that
// passes its guards. Resolvers are consulted in order; the first one that
// produces candidates wins, so the body-reference fallback only runs when no
// submission directly references the PR number.
func (s *WebhookService) settleMergedPullRequest(event *PullRequestEvent) error {
	for _, resolver := range s.resolvers {
		candidates, err := resolver.Resolve(s.DB, event)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			continue
		}

		log.Printf("[SETTLEMENT] Found %d candidate(s) for PR #%d", len(candidates), event.PullRequest.Number)
		for _, candidate := range candidates {
			if err := s.settle(event, candidate); err != nil {
				return err
			}
		}
		return nil
	}

	// Most merged PRs are unrelated to any bounty.
	return nil
}

// settle approves the submission and solves the bounty in one transaction.
// Both statements carry status guards in their WHERE clauses; if either
// affects zero rows the whole transaction rolls back, so a redelivered or
// racing event can never produce an APPROVED submission on an unsolved
// bounty or vice versa.
func (s *WebhookService) settle(event *PullRequestEvent, candidate SettlementCandidate) error {
	bounty := candidate.Bounty
	submission := candidate.Submission

	// Cross-repository PR numbers collide; only settle bounties belonging to
	// the repository that actually merged the PR.
	if bounty.GithubRepoOwner != event.Repository.Owner.Login || bounty.GithubRepoName != event.Repository.Name {
		return nil
	}
	if bounty.Status != models.BountyStatusActive {
		return nil
	}
	if submission.PRNumber != event.PullRequest.Number {
		return nil
	}

	now := time.Now()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Bounty{}).
			Where("id = ? AND status = ?", bounty.ID, models.BountyStatusActive).
			Updates(map[string]interface{}{
				"status":    models.BountyStatusSolved,
				"is_solved": true,
				"solved_at": now,
				"solved_by": submission.UserID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errSettlementSuperseded
		}

		res = tx.Model(&models.BountySubmission{}).
			Where("id = ? AND status = ?", submission.ID, models.SubmissionStatusPending).
			Updates(map[string]interface{}{
				"status":      models.SubmissionStatusApproved,
				"is_verified": true,
				"verified_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errSettlementSuperseded
		}
		return nil
	})

	if errors.Is(err, errSettlementSuperseded) {
		log.Printf("[SETTLEMENT] Bounty %s already settled, skipping", bounty.ID)
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("✅ [SETTLEMENT] Bounty %s (issue #%d) solved by user %s via PR #%d",
		bounty.ID, bounty.GithubIssueID, submission.UserID, event.PullRequest.Number)
	return nil
}

package services

import (
	"testing"

	"bounty-board-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIssueReferences(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []int
	}{
		{"single fixes", "Fixes #10", []int{10}},
		{"multiple keywords", "Fixes #10 and closes #11", []int{10, 11}},
		{"case insensitive", "RESOLVES #3", []int{3}},
		{"no space before hash", "fixes#7", []int{7}},
		{"extra whitespace", "closes   #42", []int{42}},
		{"keyword inside word ignored", "prefixes #5", nil},
		{"plain mention ignored", "see #9 for context", nil},
		{"empty body", "", nil},
		{"repeated reference", "fixes #4, fixes #4", []int{4, 4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractIssueReferences(tc.body))
		})
	}
}

func TestSubmissionResolverFindsPendingByPRNumber(t *testing.T) {
	db := newTestDB(t)
	poster := createUser(t, db, "poster")
	solver := createUser(t, db, "solver")
	other := createUser(t, db, "other")

	bountyA := createBounty(t, db, poster, 10, "octo", "repo-a", models.BountyStatusActive)
	bountyB := createBounty(t, db, poster, 20, "octo", "repo-b", models.BountyStatusActive)
	pending := createSubmission(t, db, bountyA, solver, 5, models.SubmissionStatusPending)
	createSubmission(t, db, bountyB, other, 5, models.SubmissionStatusApproved)

	event := mergedPREvent(5, "octo", "repo-a", "")
	candidates, err := SubmissionResolver{}.Resolve(db, &event)
	require.NoError(t, err)

	// The resolver returns pending submissions across repositories; the
	// repository guard is applied at settlement time.
	require.Len(t, candidates, 1)
	assert.Equal(t, pending.ID, candidates[0].Submission.ID)
	assert.Equal(t, bountyA.ID, candidates[0].Bounty.ID)
}

func TestBodyReferenceResolverMatchesNaturalKey(t *testing.T) {
	db := newTestDB(t)
	poster := createUser(t, db, "poster")
	solver := createUser(t, db, "solver")

	bounty := createBounty(t, db, poster, 10, "octo", "widgets", models.BountyStatusActive)
	submission := createSubmission(t, db, bounty, solver, 5, models.SubmissionStatusPending)

	event := mergedPREvent(5, "octo", "widgets", "Fixes #10")
	candidates, err := BodyReferenceResolver{}.Resolve(db, &event)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, bounty.ID, candidates[0].Bounty.ID)
	assert.Equal(t, submission.ID, candidates[0].Submission.ID)
}

func TestBodyReferenceResolverRequiresPendingSubmission(t *testing.T) {
	db := newTestDB(t)
	poster := createUser(t, db, "poster")

	// Bounty exists and the body references it, but no one submitted a claim
	// for this PR — settling would leave the solver unattributable.
	createBounty(t, db, poster, 10, "octo", "widgets", models.BountyStatusActive)

	event := mergedPREvent(5, "octo", "widgets", "Closes #10")
	candidates, err := BodyReferenceResolver{}.Resolve(db, &event)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestBodyReferenceResolverIgnoresOtherRepos(t *testing.T) {
	db := newTestDB(t)
	poster := createUser(t, db, "poster")
	solver := createUser(t, db, "solver")

	bounty := createBounty(t, db, poster, 10, "octo", "repo-a", models.BountyStatusActive)
	createSubmission(t, db, bounty, solver, 5, models.SubmissionStatusPending)

	event := mergedPREvent(5, "octo", "repo-b", "Fixes #10")
	candidates, err := BodyReferenceResolver{}.Resolve(db, &event)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestBodyReferenceSettlesMultipleIssues(t *testing.T) {
	svc, _ := newTestWebhookService(t, SignatureModeStrict)
	db := svc.DB

	poster := createUser(t, db, "poster")
	solver := createUser(t, db, "solver")

	bountyA := createBounty(t, db, poster, 10, "octo", "widgets", models.BountyStatusActive)
	bountyB := createBounty(t, db, poster, 11, "octo", "widgets", models.BountyStatusActive)
	createSubmission(t, db, bountyA, solver, 7, models.SubmissionStatusPending)
	createSubmission(t, db, bountyB, solver, 7, models.SubmissionStatusPending)

	event := mergedPREvent(7, "octo", "widgets", "Fixes #10 and closes #11")
	require.NoError(t, svc.settleMergedPullRequest(&event))

	for _, id := range []string{bountyA.ID, bountyB.ID} {
		var gotBounty models.Bounty
		require.NoError(t, db.First(&gotBounty, "id = ?", id).Error)
		assert.Equal(t, models.BountyStatusSolved, gotBounty.Status)
		require.NotNil(t, gotBounty.SolvedBy)
		assert.Equal(t, solver.ID, *gotBounty.SolvedBy)
	}
}

func TestSettleSkipsMismatchedPRNumber(t *testing.T) {
	svc, _ := newTestWebhookService(t, SignatureModeStrict)
	db := svc.DB

	poster := createUser(t, db, "poster")
	solver := createUser(t, db, "solver")
	bounty := createBounty(t, db, poster, 10, "octo", "widgets", models.BountyStatusActive)
	submission := createSubmission(t, db, bounty, solver, 8, models.SubmissionStatusPending)

	event := mergedPREvent(5, "octo", "widgets", "")
	candidate := SettlementCandidate{Bounty: bounty, Submission: submission}
	require.NoError(t, svc.settle(&event, candidate))

	var gotBounty models.Bounty
	require.NoError(t, db.First(&gotBounty, "id = ?", bounty.ID).Error)
	assert.Equal(t, models.BountyStatusActive, gotBounty.Status)
}

func TestSettleRollsBackBountyWriteWhenSubmissionGuardFails(t *testing.T) {
	svc, _ := newTestWebhookService(t, SignatureModeStrict)
	db := svc.DB

	poster := createUser(t, db, "poster")
	solver := createUser(t, db, "solver")
	bounty := createBounty(t, db, poster, 10, "octo", "widgets", models.BountyStatusActive)
	submission := createSubmission(t, db, bounty, solver, 5, models.SubmissionStatusPending)

	// The submission gets rejected after candidate resolution but before the
	// settlement transaction runs. Inside the transaction the bounty update
	// succeeds, then the submission guard affects zero rows — the bounty
	// write must roll back with it.
	require.NoError(t, db.Model(&models.BountySubmission{}).Where("id = ?", submission.ID).
		Update("status", models.SubmissionStatusRejected).Error)

	event := mergedPREvent(5, "octo", "widgets", "")
	candidate := SettlementCandidate{Bounty: bounty, Submission: submission}
	require.NoError(t, svc.settle(&event, candidate))

	var gotBounty models.Bounty
	require.NoError(t, db.First(&gotBounty, "id = ?", bounty.ID).Error)
	assert.Equal(t, models.BountyStatusActive, gotBounty.Status)
	assert.False(t, gotBounty.IsSolved)
	assert.Nil(t, gotBounty.SolvedBy)

	var gotSub models.BountySubmission
	require.NoError(t, db.First(&gotSub, "id = ?", submission.ID).Error)
	assert.Equal(t, models.SubmissionStatusRejected, gotSub.Status)
}

func TestSettleRollsBackWhenBountyAlreadyTransitioned(t *testing.T) {
	svc, _ := newTestWebhookService(t, SignatureModeStrict)
	db := svc.DB

	poster := createUser(t, db, "poster")
	solver := createUser(t, db, "solver")
	bounty := createBounty(t, db, poster, 10, "octo", "widgets", models.BountyStatusActive)
	submission := createSubmission(t, db, bounty, solver, 5, models.SubmissionStatusPending)

	// Simulate the issue-closed path winning the race after the candidate was
	// resolved but before settlement: the stale in-memory candidate still says
	// ACTIVE, the row does not.
	require.NoError(t, db.Model(&models.Bounty{}).Where("id = ?", bounty.ID).
		Update("status", models.BountyStatusSolved).Error)

	event := mergedPREvent(5, "octo", "widgets", "")
	candidate := SettlementCandidate{Bounty: bounty, Submission: submission}
	require.NoError(t, svc.settle(&event, candidate))

	// The whole transaction rolled back: no half-settled state where the
	// submission is APPROVED against a bounty it did not solve.
	var gotSub models.BountySubmission
	require.NoError(t, db.First(&gotSub, "id = ?", submission.ID).Error)
	assert.Equal(t, models.SubmissionStatusPending, gotSub.Status)
	assert.False(t, gotSub.IsVerified)

	var gotBounty models.Bounty
	require.NoError(t, db.First(&gotBounty, "id = ?", bounty.ID).Error)
	assert.Nil(t, gotBounty.SolvedBy)
}

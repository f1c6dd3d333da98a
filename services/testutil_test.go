package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bounty-board-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Bounty{},
		&models.BountySubmission{},
		&models.BotInstallation{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, login string) models.User {
	t.Helper()
	user := models.User{
		ID:      uuid.NewString(),
		PrivyID: "did:privy:" + uuid.NewString(),
		Name:    login,
		Login:   &login,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createBounty(t *testing.T, db *gorm.DB, poster models.User, issueNumber int, owner, repo string, status models.BountyStatus) models.Bounty {
	t.Helper()
	bounty := models.Bounty{
		ID:              uuid.NewString(),
		GithubIssueID:   issueNumber,
		GithubRepoOwner: owner,
		GithubRepoName:  repo,
		Title:           "Fix the thing",
		Description:     "Please fix the thing",
		BountyAmount:    100,
		GithubIssueURL:  "https://github.com/" + owner + "/" + repo + "/issues/1",
		GithubLabels:    models.DefaultBountyLabels,
		Status:          status,
		BountyPosterID:  poster.ID,
	}
	require.NoError(t, db.Create(&bounty).Error)
	return bounty
}

func createSubmission(t *testing.T, db *gorm.DB, bounty models.Bounty, user models.User, prNumber int, status models.SubmissionStatus) models.BountySubmission {
	t.Helper()
	submission := models.BountySubmission{
		ID:       uuid.NewString(),
		BountyID: bounty.ID,
		UserID:   user.ID,
		PRURL:    "https://github.com/x/y/pull/1",
		PRNumber: prNumber,
		Status:   status,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type labelCall struct {
	Owner       string
	Repo        string
	IssueNumber int
	Labels      []string
}

type stubAnnotator struct {
	calls []labelCall
}

func (a *stubAnnotator) AddLabels(ctx context.Context, owner, repo string, issueNumber int, labels []string) error {
	a.calls = append(a.calls, labelCall{Owner: owner, Repo: repo, IssueNumber: issueNumber, Labels: labels})
	return nil
}

func newWebhookTestApp(svc *WebhookService) *fiber.App {
	app := fiber.New()
	app.Post("/github/webhook", svc.HandleWebhook)
	return app
}

// deliver signs the payload with secret (skipped when secret is empty) and
// posts it to the webhook endpoint.
func deliver(t *testing.T, app *fiber.App, secret, eventType string, payload interface{}) *http.Response {
	t.Helper()

	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = p
	default:
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/github/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	if secret != "" {
		req.Header.Set("X-Hub-Signature-256", signPayload(secret, body))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// testAuth stands in for the identity middleware in route-level tests.
func testAuth(user models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", user.ID)
		c.Locals("user", &user)
		return c.Next()
	}
}

func mergedPREvent(prNumber int, owner, repo, prBody string) PullRequestEvent {
	var event PullRequestEvent
	event.Action = "closed"
	event.PullRequest.Number = prNumber
	event.PullRequest.Merged = true
	event.PullRequest.Body = prBody
	event.Repository.Name = repo
	event.Repository.Owner.Login = owner
	event.Repository.FullName = owner + "/" + repo
	return event
}

func issueEvent(action string, issueNumber int, owner, repo string) IssueEvent {
	var event IssueEvent
	event.Action = action
	event.Issue.Number = issueNumber
	event.Repository.Name = repo
	event.Repository.Owner.Login = owner
	event.Repository.FullName = owner + "/" + repo
	return event
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"bounty-board-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LabelAnnotator adds labels to a GitHub issue. Implemented by
// utils.GitHubClient; failures are logged, never propagated — annotation is a
// best-effort side effect.
type LabelAnnotator interface {
	AddLabels(ctx context.Context, owner, repo string, issueNumber int, labels []string) error
}

// WebhookRepository is the repository fragment shared by all webhook payloads.
type WebhookRepository struct {
	Name     string    `json:"name"`
	FullName string    `json:"full_name"`
	Owner    RepoOwner `json:"owner"`
}

type RepoOwner struct {
	Login string `json:"login"`
}

// PingEvent is sent by GitHub when a webhook is first configured.
type PingEvent struct {
	Repository WebhookRepository `json:"repository"`
	Sender     struct {
		Login string `json:"login"`
		ID    int64  `json:"id"`
	} `json:"sender"`
}

// IssueEvent carries issue open/close notifications.
type IssueEvent struct {
	Action string `json:"action"`
	Issue  struct {
		Number int `json:"number"`
	} `json:"issue"`
	Repository WebhookRepository `json:"repository"`
}

// PullRequestEvent carries pull request state changes. A settlement is only
// triggered by action == "closed" with merged == true.
type PullRequestEvent struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number int    `json:"number"`
		Merged bool   `json:"merged"`
		Body   string `json:"body"`
	} `json:"pull_request"`
	Repository WebhookRepository `json:"repository"`
}

// WebhookService ingests GitHub webhook deliveries and drives bounty
// settlement. Each delivery is stateless; idempotence under redelivery comes
// entirely from the ACTIVE/PENDING status guards in the mutations.
type WebhookService struct {
	DB        *gorm.DB
	Secret    string
	Mode      SignatureMode
	Annotator LabelAnnotator

	resolvers []BountyResolver
}

func NewWebhookService(db *gorm.DB, secret string, mode SignatureMode, annotator LabelAnnotator) *WebhookService {
	return &WebhookService{
		DB:        db,
		Secret:    secret,
		Mode:      mode,
		Annotator: annotator,
		resolvers: []BountyResolver{
			SubmissionResolver{},
			BodyReferenceResolver{},
		},
	}
}

// HandleWebhook is the top-level delivery handler: verify signature, parse,
// classify by event type, dispatch. Unhandled event types are a 200-level
// no-op because GitHub retries on non-2xx responses.
func (s *WebhookService) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Hub-Signature-256")
	eventType := c.Get("X-GitHub-Event")

	if !VerifyWebhookSignature(body, signature, s.Secret) {
		if s.Mode == SignatureModeStrict {
			log.Printf("🚫 [WEBHOOK] signature verification failed (event=%s)", eventType)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
		}
		log.Printf("⚠️ [WEBHOOK] signature verification failed — permissive mode, continuing (event=%s)", eventType)
	}

	var err error
	switch eventType {
	case "ping":
		err = s.handlePing(c.UserContext(), body)
	case "issues":
		err = s.handleIssueEvent(c.UserContext(), body)
	case "pull_request":
		err = s.handlePullRequestEvent(body)
	default:
		log.Printf("[WEBHOOK] Unhandled event type: %s", eventType)
	}

	if err != nil {
		log.Printf("❌ [WEBHOOK] %s handler failed: %v", eventType, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// handlePing opportunistically registers the repository when the sender is a
// known marketplace user. Unknown senders are skipped, not rejected — pings
// also arrive from maintainers who never signed up.
func (s *WebhookService) handlePing(ctx context.Context, body []byte) error {
	var event PingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	log.Printf("[WEBHOOK] Ping received for %s by %s", event.Repository.FullName, event.Sender.Login)

	var user models.User
	err := s.DB.
		Where("login = ? OR username = ? OR LOWER(username) = LOWER(?)",
			event.Sender.Login, event.Sender.Login, event.Sender.Login).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[WEBHOOK] Sender %s not found, skipping repository registration", event.Sender.Login)
		return nil
	}
	if err != nil {
		return err
	}

	if err := upsertBotInstallation(s.DB, event.Repository.Owner.Login, event.Repository.Name, user.ID); err != nil {
		return err
	}

	log.Printf("✅ [WEBHOOK] Registered repository %s", event.Repository.FullName)
	return nil
}

// handleIssueEvent reacts to issue open/close. Open triggers best-effort
// label annotation when a bounty exists; close transitions an ACTIVE bounty
// to SOLVED without crediting a solver (there is no submission to attribute —
// the UI tolerates a solved bounty with no solver).
func (s *WebhookService) handleIssueEvent(ctx context.Context, body []byte) error {
	var event IssueEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	owner := event.Repository.Owner.Login
	repo := event.Repository.Name

	switch event.Action {
	case "opened":
		bounty, err := findBountyByIssue(s.DB, event.Issue.Number, owner, repo)
		if err != nil {
			return err
		}
		if bounty == nil {
			return nil
		}
		labels := bounty.GithubLabels
		if len(labels) == 0 {
			labels = models.DefaultBountyLabels
		}
		if err := s.Annotator.AddLabels(ctx, owner, repo, event.Issue.Number, labels); err != nil {
			log.Printf("⚠️ [WEBHOOK] Failed to label %s/%s#%d: %v", owner, repo, event.Issue.Number, err)
		}
		return nil

	case "closed":
		bounty, err := findBountyByIssue(s.DB, event.Issue.Number, owner, repo)
		if err != nil {
			return err
		}
		if bounty == nil || bounty.Status != models.BountyStatusActive {
			return nil
		}
		// Status guard in the WHERE clause keeps a redelivered close (or a
		// race with a concurrent PR-merge settlement) a no-op.
		res := s.DB.Model(&models.Bounty{}).
			Where("id = ? AND status = ?", bounty.ID, models.BountyStatusActive).
			Updates(map[string]interface{}{
				"status":    models.BountyStatusSolved,
				"is_solved": true,
				"solved_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			log.Printf("✅ [WEBHOOK] Bounty %s solved via issue close %s/%s#%d", bounty.ID, owner, repo, event.Issue.Number)
		}
		return nil
	}

	return nil
}

// handlePullRequestEvent runs the settlement pipeline for merged PRs.
func (s *WebhookService) handlePullRequestEvent(body []byte) error {
	var event PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	// A closed-without-merge PR must not settle anything.
	if event.Action != "closed" || !event.PullRequest.Merged {
		return nil
	}

	log.Printf("[WEBHOOK] PR #%d merged in %s/%s",
		event.PullRequest.Number, event.Repository.Owner.Login, event.Repository.Name)

	return s.settleMergedPullRequest(&event)
}

// findBountyByIssue looks a bounty up by its natural key. A missing bounty is
// a nil result, not an error — most repository events are unrelated to any
// bounty.
func findBountyByIssue(db *gorm.DB, issueNumber int, owner, repo string) (*models.Bounty, error) {
	var bounty models.Bounty
	err := db.
		Where("github_issue_id = ? AND github_repo_owner = ? AND github_repo_name = ?", issueNumber, owner, repo).
		First(&bounty).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bounty, nil
}

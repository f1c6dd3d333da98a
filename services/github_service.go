package services

import (
	"log"
	"strconv"

	"bounty-board-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// GitHubService proxies the GitHub REST endpoints the frontend needs
// (issue search, issue details, labels, commits) so the API token never
// reaches the browser.
type GitHubService struct {
	GH *utils.GitHubClient
}

func NewGitHubService(gh *utils.GitHubClient) *GitHubService {
	return &GitHubService{GH: gh}
}

// SearchIssues proxies an issue search query
func (s *GitHubService) SearchIssues(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Query parameter q is required"})
	}
	sort := c.Query("sort", "updated")
	order := c.Query("order", "desc")

	result, err := s.GH.SearchIssues(c.UserContext(), query, sort, order, 30)
	if err != nil {
		log.Printf("GitHub search error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to search issues"})
	}
	return c.JSON(result)
}

// GetIssueDetails fetches a single issue
func (s *GitHubService) GetIssueDetails(c *fiber.Ctx) error {
	owner := c.Query("owner")
	repo := c.Query("repo")
	issueNumber, err := strconv.Atoi(c.Query("issue_number"))
	if owner == "" || repo == "" || err != nil || issueNumber <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "owner, repo and issue_number are required"})
	}

	issue, err := s.GH.IssueDetails(c.UserContext(), owner, repo, issueNumber)
	if err != nil {
		log.Printf("GitHub issue details error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch issue"})
	}
	return c.JSON(issue)
}

// AddIssueLabels attaches labels to an issue
func (s *GitHubService) AddIssueLabels(c *fiber.Ctx) error {
	var req struct {
		Owner       string   `json:"owner"`
		Repo        string   `json:"repo"`
		IssueNumber int      `json:"issue_number"`
		Labels      []string `json:"labels"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Owner == "" || req.Repo == "" || req.IssueNumber <= 0 || len(req.Labels) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required parameters"})
	}

	if err := s.GH.AddLabels(c.UserContext(), req.Owner, req.Repo, req.IssueNumber, req.Labels); err != nil {
		log.Printf("GitHub add labels error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add labels"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetCommits lists recent commits for a repository
func (s *GitHubService) GetCommits(c *fiber.Ctx) error {
	owner := c.Query("owner")
	repo := c.Query("repo")
	if owner == "" || repo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "owner and repo are required"})
	}

	commits, err := s.GH.ListCommits(c.UserContext(), owner, repo, 30)
	if err != nil {
		log.Printf("GitHub commits error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch commits"})
	}
	return c.JSON(commits)
}

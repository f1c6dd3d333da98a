package services

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"bounty-board-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BountyService struct {
	DB *gorm.DB
}

func NewBountyService(db *gorm.DB) *BountyService {
	return &BountyService{DB: db}
}

// bountyWithSolver decorates a solved bounty with the crediting user. Solver
// may be absent even on solved bounties (issue-closed fallback path never
// attributes one).
type bountyWithSolver struct {
	models.Bounty
	Solver *models.User `json:"solver,omitempty"`
}

// GetBounties lists bounties by status with pagination (public)
func (s *BountyService) GetBounties(c *fiber.Ctx) error {
	status := c.Query("status", string(models.BountyStatusActive))
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid offset parameter"})
	}

	var bounties []models.Bounty
	if err := s.DB.
		Preload("BountyPoster").
		Preload("Submissions").
		Preload("Submissions.User").
		Where("status = ?", models.BountyStatus(strings.ToUpper(status))).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&bounties).Error; err != nil {
		log.Printf("DB Error listing bounties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bounties"})
	}

	decorated, err := s.attachSolvers(bounties)
	if err != nil {
		log.Printf("DB Error resolving solvers: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bounties"})
	}
	return c.JSON(decorated)
}

// CreateBounty creates a bounty against a GitHub issue (auth required)
func (s *BountyService) CreateBounty(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		GithubIssueID   int        `json:"github_issue_id"`
		GithubRepoOwner string     `json:"github_repo_owner"`
		GithubRepoName  string     `json:"github_repo_name"`
		Title           string     `json:"title"`
		Description     string     `json:"description"`
		BountyAmount    float64    `json:"bounty_amount"`
		GithubIssueURL  string     `json:"github_issue_url"`
		ExpiresAt       *time.Time `json:"expires_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.GithubIssueID <= 0 || req.GithubRepoOwner == "" || req.GithubRepoName == "" ||
		req.Title == "" || req.Description == "" || req.GithubIssueURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}
	if req.BountyAmount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Bounty amount must be positive"})
	}

	existing, err := findBountyByIssue(s.DB, req.GithubIssueID, req.GithubRepoOwner, req.GithubRepoName)
	if err != nil {
		log.Printf("DB Error checking existing bounty: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Bounty already exists for this issue"})
	}

	bounty := &models.Bounty{
		ID:              uuid.NewString(),
		GithubIssueID:   req.GithubIssueID,
		GithubRepoOwner: req.GithubRepoOwner,
		GithubRepoName:  req.GithubRepoName,
		Title:           req.Title,
		Description:     req.Description,
		BountyAmount:    req.BountyAmount,
		GithubIssueURL:  req.GithubIssueURL,
		GithubLabels:    models.DefaultBountyLabels,
		Status:          models.BountyStatusActive,
		BountyPosterID:  userID,
		ExpiresAt:       req.ExpiresAt,
	}
	if err := s.DB.Create(bounty).Error; err != nil {
		log.Printf("DB Error creating bounty: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create bounty"})
	}

	if err := s.DB.Preload("BountyPoster").First(bounty, "id = ?", bounty.ID).Error; err != nil {
		log.Printf("DB Error reloading bounty: %v", err)
	}
	return c.Status(fiber.StatusCreated).JSON(bounty)
}

// GetBountyByID fetches a single bounty with poster, submissions and solver
func (s *BountyService) GetBountyByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bounty ID"})
	}

	var bounty models.Bounty
	err := s.DB.
		Preload("BountyPoster").
		Preload("Submissions").
		Preload("Submissions.User").
		First(&bounty, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Bounty not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	decorated, err := s.attachSolvers([]models.Bounty{bounty})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(decorated[0])
}

// GetMyBounties lists the authenticated user's posted bounties
func (s *BountyService) GetMyBounties(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	status := c.Query("status", "all")
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
	}
	sort := c.Query("sort", "created")
	direction := strings.ToUpper(c.Query("direction", "desc"))
	if direction != "ASC" && direction != "DESC" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid direction parameter"})
	}

	query := s.DB.
		Preload("BountyPoster").
		Preload("Submissions").
		Where("bounty_poster_id = ?", userID)
	if status != "all" {
		query = query.Where("status = ?", models.BountyStatus(strings.ToUpper(status)))
	}
	if sort == "amount" {
		query = query.Order("bounty_amount " + direction)
	} else {
		query = query.Order("created_at " + direction)
	}

	var bounties []models.Bounty
	if err := query.Limit(limit).Find(&bounties).Error; err != nil {
		log.Printf("DB Error listing user bounties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bounties"})
	}

	decorated, err := s.attachSolvers(bounties)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bounties"})
	}
	return c.JSON(decorated)
}

// GetSolvedBounties lists recently solved bounties with solver info (public)
func (s *BountyService) GetSolvedBounties(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
	}

	var bounties []models.Bounty
	if err := s.DB.
		Preload("BountyPoster").
		Where("status = ?", models.BountyStatusSolved).
		Order("solved_at DESC").
		Limit(limit).
		Find(&bounties).Error; err != nil {
		log.Printf("DB Error listing solved bounties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bounties"})
	}

	decorated, err := s.attachSolvers(bounties)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch bounties"})
	}
	return c.JSON(decorated)
}

// attachSolvers resolves SolvedBy references in one batched query.
func (s *BountyService) attachSolvers(bounties []models.Bounty) ([]bountyWithSolver, error) {
	decorated := make([]bountyWithSolver, 0, len(bounties))

	var solverIDs []string
	for _, b := range bounties {
		if b.Status == models.BountyStatusSolved && b.SolvedBy != nil {
			solverIDs = append(solverIDs, *b.SolvedBy)
		}
	}

	solvers := map[string]*models.User{}
	if len(solverIDs) > 0 {
		var users []models.User
		if err := s.DB.Where("id IN ?", solverIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for i := range users {
			solvers[users[i].ID] = &users[i]
		}
	}

	for _, b := range bounties {
		entry := bountyWithSolver{Bounty: b}
		if b.SolvedBy != nil {
			entry.Solver = solvers[*b.SolvedBy]
		}
		decorated = append(decorated, entry)
	}
	return decorated, nil
}

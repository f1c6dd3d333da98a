package services

import (
	"errors"
	"log"

	"bounty-board-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionService struct {
	DB *gorm.DB
}

func NewSubmissionService(db *gorm.DB) *SubmissionService {
	return &SubmissionService{DB: db}
}

// CreateSubmission records a user's claim that their PR resolves a bounty.
// At most one submission per user per bounty; the bounty must still be ACTIVE.
func (s *SubmissionService) CreateSubmission(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		BountyID string `json:"bounty_id"`
		PRURL    string `json:"pr_url"`
		PRNumber int    `json:"pr_number"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.BountyID == "" || req.PRURL == "" || req.PRNumber <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
	}

	var bounty models.Bounty
	err := s.DB.First(&bounty, "id = ?", req.BountyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Bounty not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if bounty.Status != models.BountyStatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Bounty is not active"})
	}

	var existing models.BountySubmission
	err = s.DB.Where("bounty_id = ? AND user_id = ?", req.BountyID, userID).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already submitted for this bounty"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	submission := &models.BountySubmission{
		ID:       uuid.NewString(),
		BountyID: req.BountyID,
		UserID:   userID,
		PRURL:    req.PRURL,
		PRNumber: req.PRNumber,
		Status:   models.SubmissionStatusPending,
	}
	if err := s.DB.Create(submission).Error; err != nil {
		log.Printf("DB Error creating submission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create submission"})
	}

	if err := s.DB.Preload("User").Preload("Bounty").First(submission, "id = ?", submission.ID).Error; err != nil {
		log.Printf("DB Error reloading submission: %v", err)
	}
	return c.Status(fiber.StatusCreated).JSON(submission)
}

// GetSubmissions lists submissions for a bounty (when bountyId is given) or
// the authenticated user's own submissions.
func (s *SubmissionService) GetSubmissions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	bountyID := c.Query("bountyId")

	var submissions []models.BountySubmission
	query := s.DB.Order("created_at DESC")
	if bountyID != "" {
		query = query.Preload("User").Where("bounty_id = ?", bountyID)
	} else {
		query = query.Preload("Bounty").Where("user_id = ?", userID)
	}

	if err := query.Find(&submissions).Error; err != nil {
		log.Printf("DB Error listing submissions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch submissions"})
	}
	return c.JSON(submissions)
}

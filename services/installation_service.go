package services

import (
	"errors"
	"log"

	"bounty-board-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstallationService struct {
	DB *gorm.DB
}

func NewInstallationService(db *gorm.DB) *InstallationService {
	return &InstallationService{DB: db}
}

// GetInstallation reports whether the webhook bot is wired up for a repo
func (s *InstallationService) GetInstallation(c *fiber.Ctx) error {
	owner := c.Query("owner")
	repo := c.Query("repo")
	if owner == "" || repo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Owner and repo are required"})
	}

	var installation models.BotInstallation
	err := s.DB.Where("owner = ? AND repo = ?", owner, repo).First(&installation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(fiber.Map{"installed": false, "installation": nil})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{"installed": installation.Installed, "installation": installation})
}

// RegisterInstallation marks a repo as having the bot installed
func (s *InstallationService) RegisterInstallation(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Owner == "" || req.Repo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Owner and repo are required"})
	}

	if err := upsertBotInstallation(s.DB, req.Owner, req.Repo, userID); err != nil {
		log.Printf("DB Error registering installation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register installation"})
	}

	var installation models.BotInstallation
	if err := s.DB.Where("owner = ? AND repo = ?", req.Owner, req.Repo).First(&installation).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(installation)
}

// RemoveInstallation marks a repo's installation as removed (record is kept)
func (s *InstallationService) RemoveInstallation(c *fiber.Ctx) error {
	owner := c.Query("owner")
	repo := c.Query("repo")
	if owner == "" || repo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Owner and repo are required"})
	}

	res := s.DB.Model(&models.BotInstallation{}).
		Where("owner = ? AND repo = ?", owner, repo).
		Update("installed", false)
	if res.Error != nil {
		log.Printf("DB Error removing installation: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove installation"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Installation not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// upsertBotInstallation creates or refreshes the installation record for a
// repo. Shared by the installation endpoint and the webhook ping handler.
func upsertBotInstallation(db *gorm.DB, owner, repo, installedBy string) error {
	installation := models.BotInstallation{
		ID:          uuid.NewString(),
		Owner:       owner,
		Repo:        repo,
		Installed:   true,
		InstalledBy: installedBy,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "repo"}},
		DoUpdates: clause.AssignmentColumns([]string{"installed", "installed_by", "updated_at"}),
	}).Create(&installation).Error
}

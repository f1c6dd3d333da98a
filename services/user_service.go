package services

import (
	"bounty-board-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// GetMe returns the authenticated user's synced local profile
func (s *UserService) GetMe(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok || user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found in context"})
	}

	return c.JSON(fiber.Map{
		"id":               user.ID,
		"name":             user.Name,
		"email":            user.Email,
		"username":         user.Username,
		"image":            user.Image,
		"wallet_address":   user.WalletAddress,
		"unclaimed_tokens": user.UnclaimedTokens,
		"created_at":       user.CreatedAt,
	})
}

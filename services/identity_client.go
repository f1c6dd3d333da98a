package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"bounty-board-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityClient talks to the external identity provider (Privy-style OAuth
// broker). It verifies access tokens and fetches user profiles; the profile
// is mirrored into the local users table so the rest of the system can join
// on a stable internal id.
type IdentityClient struct {
	BaseURL   string
	AppID     string
	AppSecret string
	Client    *http.Client
}

// IdentityUser is the provider's view of a user.
type IdentityUser struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Username      *string `json:"username,omitempty"`
	GithubLogin   *string `json:"github_login,omitempty"`
	Email         *string `json:"email,omitempty"`
	Image         *string `json:"image,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

func NewIdentityClient(baseURL, appID, appSecret string) *IdentityClient {
	return &IdentityClient{
		BaseURL:   baseURL,
		AppID:     appID,
		AppSecret: appSecret,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// VerifyToken exchanges a user access token for the provider's user profile.
func (c *IdentityClient) VerifyToken(accessToken string) (*IdentityUser, error) {
	url := fmt.Sprintf("%s/api/v1/auth/verify", c.BaseURL)

	reqBody := map[string]interface{}{
		"access_token": accessToken,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-App-ID", c.AppID)
	req.Header.Set("Authorization", "Bearer "+c.AppSecret)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("IdentityService /auth/verify returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("identity verification failed: %d", resp.StatusCode)
	}

	var out IdentityUser
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, ErrInvalidToken
	}
	return &out, nil
}

// GetUserProfile fetches a user's current profile by provider id. Used by
// the profile sync worker to refresh stale local snapshots.
func (c *IdentityClient) GetUserProfile(providerID string) (*IdentityUser, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s", c.BaseURL, providerID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-App-ID", c.AppID)
	req.Header.Set("Authorization", "Bearer "+c.AppSecret)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("IdentityService /users/%s returned %d: %s", providerID, resp.StatusCode, string(body))
		return nil, fmt.Errorf("profile fetch failed: %d", resp.StatusCode)
	}

	var out IdentityUser
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ErrInvalidToken means the access token did not verify.
var ErrInvalidToken = errors.New("invalid or expired access token")

// SyncUser mirrors the provider profile into the local users table and
// returns the local record.
func (c *IdentityClient) SyncUser(db *gorm.DB, iu *IdentityUser) (*models.User, error) {
	if iu == nil || iu.ID == "" {
		return nil, errors.New("identity user id is missing")
	}

	now := time.Now()
	var user models.User
	err := db.Where("privy_id = ?", iu.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:            uuid.NewString(),
			PrivyID:       iu.ID,
			Name:          iu.Name,
			Username:      iu.Username,
			Login:         iu.GithubLogin,
			Email:         iu.Email,
			Image:         iu.Image,
			WalletAddress: iu.WalletAddress,
			LastSyncedAt:  &now,
		}
		if user.Name == "" {
			user.Name = "User"
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	if iu.Name != "" {
		user.Name = iu.Name
	}
	if iu.Username != nil {
		user.Username = iu.Username
	}
	if iu.GithubLogin != nil {
		user.Login = iu.GithubLogin
	}
	if iu.Email != nil {
		user.Email = iu.Email
	}
	if iu.Image != nil {
		user.Image = iu.Image
	}
	if iu.WalletAddress != nil {
		user.WalletAddress = iu.WalletAddress
	}
	user.LastSyncedAt = &now

	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a local snapshot of the identity provider's user record.
// Upserted on every authenticated request and refreshed in bulk by the
// profile sync worker.
type User struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"id"`
	PrivyID         string  `gorm:"uniqueIndex;not null" json:"privy_id"`
	Name            string  `json:"name"`
	Username        *string `gorm:"index" json:"username,omitempty"`
	Login           *string `gorm:"index" json:"login,omitempty"` // GitHub login, matched against webhook senders
	Email           *string `json:"email,omitempty"`
	Image           *string `json:"image,omitempty"`
	WalletAddress   *string `json:"wallet_address,omitempty"`
	UnclaimedTokens float64 `gorm:"default:0" json:"unclaimed_tokens"`

	LastSyncedAt *time.Time `gorm:"index" json:"last_synced_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

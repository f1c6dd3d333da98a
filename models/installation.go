package models

// BotInstallation records whether a repository's maintainer has wired up the
// webhook for that repo. Registered explicitly via the installation endpoint
// or opportunistically when a webhook ping arrives from a known user.
type BotInstallation struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Owner       string `gorm:"not null;uniqueIndex:idx_installation_owner_repo,priority:1" json:"owner"`
	Repo        string `gorm:"not null;uniqueIndex:idx_installation_owner_repo,priority:2" json:"repo"`
	Installed   bool   `gorm:"default:true" json:"installed"`
	InstalledBy string `gorm:"index" json:"installed_by"` // User.ID

	Timestamps
}

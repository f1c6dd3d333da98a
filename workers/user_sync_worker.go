package workers

import (
	"context"
	"log"
	"time"

	"bounty-board-backend/models"
	"bounty-board-backend/services"

	"gorm.io/gorm"
)

// staleAfter is how old a user snapshot may get before the worker refreshes
// it from the identity provider. Authenticated requests refresh eagerly, so
// this only matters for users who stopped logging in (e.g. wallet changes
// that should still reach payout display).
const staleAfter = 24 * time.Hour

const syncBatchSize = 50

// UserProfileSyncWorker periodically refreshes stale local user snapshots
// from the identity provider.
type UserProfileSyncWorker struct {
	db       *gorm.DB
	identity *services.IdentityClient
	interval time.Duration
}

func NewUserProfileSyncWorker(db *gorm.DB, identity *services.IdentityClient) *UserProfileSyncWorker {
	return &UserProfileSyncWorker{
		db:       db,
		identity: identity,
		interval: 10 * time.Minute,
	}
}

func (w *UserProfileSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting User Profile Sync Worker (identity service → users)…")
	go w.run(ctx)
}

func (w *UserProfileSyncWorker) run(ctx context.Context) {
	if err := w.syncBatch(ctx); err != nil {
		log.Printf("⚠️ Initial profile sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx); err != nil {
				log.Printf("❌ Profile sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("User Profile Sync Worker stopped")
			return
		}
	}
}

func (w *UserProfileSyncWorker) syncBatch(ctx context.Context) error {
	cutoff := time.Now().Add(-staleAfter)

	var users []models.User
	err := w.db.
		Where("last_synced_at IS NULL OR last_synced_at < ?", cutoff).
		Order("last_synced_at ASC NULLS FIRST").
		Limit(syncBatchSize).
		Find(&users).Error
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	refreshed := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		profile, err := w.identity.GetUserProfile(user.PrivyID)
		if err != nil {
			log.Printf("⚠️ Profile fetch failed for user %s: %v", user.ID, err)
			continue
		}
		if _, err := w.identity.SyncUser(w.db, profile); err != nil {
			log.Printf("⚠️ Profile sync failed for user %s: %v", user.ID, err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		log.Printf("✅ Refreshed %d user profiles", refreshed)
	}
	return nil
}

package services

import (
	"log"
	"time"

	"bounty-board-backend/models"

	"github.com/go-co-op/gocron/v2"
)

// StartExpiryScheduler expires overdue bounties once a minute. Only ACTIVE
// bounties with a deadline are touched; SOLVED and CANCELLED are terminal.
func (s *BountyService) StartExpiryScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			expired, err := s.expireDueBounties()
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("✅ [Scheduler] Expired %d overdue bounties", expired)
			}
		}),
	)
}

func (s *BountyService) expireDueBounties() (int64, error) {
	res := s.DB.Model(&models.Bounty{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.BountyStatusActive, time.Now()).
		Update("status", models.BountyStatusExpired)
	return res.RowsAffected, res.Error
}

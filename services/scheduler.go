// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartAccrualScheduler polls for due accruals on a fixed interval. The due
// timestamps on the rows carry the actual 24h cadence; the poll just has to
// run often enough to pick them up promptly. Multiple instances may run this
// concurrently — the claim query partitions the due set between them.
func (s *AccrualService) StartAccrualScheduler(pollInterval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(pollInterval),
		gocron.NewTask(func() {
			now := time.Now().UTC()
			stats, err := s.ProcessDueAccruals(now)
			if err != nil {
				log.Printf("[Scheduler] ❌ accrual pass failed: %v", err)
				return
			}
			if stats.DepositsAdvanced+stats.BonusesAdvanced > 0 {
				log.Printf("✅ Accrual pass: %d deposits, %d bonuses advanced, %d completed, %s credited",
					stats.DepositsAdvanced, stats.BonusesAdvanced, stats.Completed, stats.TotalCredited.String())
			}
		}),
	)
}

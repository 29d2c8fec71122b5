package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/funnelsync/backend/pkg/constants"
)

// MaintenanceService runs the recurring housekeeping job: pruning sync
// log rows older than the retention window on a cron schedule. One run
// at a time; a run that overlaps the next tick is skipped.
type MaintenanceService struct {
	syncLog  *SyncLogService
	schedule cron.Schedule
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stopped  bool // Prevents double-close of stopChan
	pruning  bool
}

// NewMaintenanceService creates a new MaintenanceService using the
// default prune schedule.
func NewMaintenanceService(syncLog *SyncLogService) (*MaintenanceService, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(constants.SyncLogPruneSchedule)
	if err != nil {
		return nil, err
	}
	return &MaintenanceService{
		syncLog:  syncLog,
		schedule: schedule,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins the maintenance background loop
func (s *MaintenanceService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Println("⏰ Maintenance service starting...")

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.runPrune()
		case <-s.stopChan:
			timer.Stop()
			log.Println("⏰ Maintenance service stopping...")
			s.wg.Wait()
			log.Println("⏰ Maintenance service stopped")
			return
		}
	}
}

// Stop gracefully stops the maintenance loop
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	if !s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
}

func (s *MaintenanceService) runPrune() {
	s.mu.Lock()
	if s.pruning {
		s.mu.Unlock()
		log.Println("⏭️ Sync log prune already running, skipping")
		return
	}
	s.pruning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("🔥 Panic in sync log prune: %v", r)
			}
			s.mu.Lock()
			s.pruning = false
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		deleted, err := s.syncLog.Prune(ctx, constants.SyncLogRetention)
		if err != nil {
			log.Printf("⚠️ Sync log prune failed: %v", err)
			return
		}
		log.Printf("🧹 Sync log prune removed %d rows", deleted)
	}()
}

package services

import (
	"github.com/funnelsync/backend/internal/infrastructure/database"
	"github.com/funnelsync/backend/internal/infrastructure/persistence"
	"github.com/funnelsync/backend/internal/infrastructure/platform"
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db  *database.TiDBConnection
	cfg SyncConfig

	// Core services
	EventBus    *EventBus
	SyncLog     *SyncLogService
	Mapping     *MappingService
	Inbound     *InboundService
	Cards       *CardService
	Funnels     *FunnelService
	Activities  *ActivityService
	Config      *ConfigService
	Outbound    *OutboundService
	Fanout      *FanoutService
	Maintenance *MaintenanceService
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.TiDBConnection, cfg SyncConfig) (*ServiceManager, error) {
	sm := &ServiceManager{
		db:  db,
		cfg: cfg,
	}

	// Repositories
	funnelRepo := persistence.NewFunnelRepository(db.DB())
	cardRepo := persistence.NewCardRepository(db.DB())
	activityRepo := persistence.NewActivityRepository(db.DB())
	mappingRepo := persistence.NewMappingRepository(db.DB())
	webhookRepo := persistence.NewWebhookRepository(db.DB())
	syncLogRepo := persistence.NewSyncLogRepository(db.DB())
	userRepo := persistence.NewUserRepository(db.DB())

	platformClient := platform.NewClient(cfg.PlatformBaseURL, cfg.PlatformAPIToken)

	// Initialize services in dependency order
	sm.EventBus = NewEventBus()
	sm.SyncLog = NewSyncLogService(syncLogRepo)
	sm.Mapping = NewMappingService(mappingRepo, funnelRepo, sm.SyncLog)
	sm.Inbound = NewInboundService(cfg, cardRepo, funnelRepo, userRepo, activityRepo, sm.Mapping, sm.SyncLog, sm.EventBus)
	sm.Cards = NewCardService(cardRepo, funnelRepo, activityRepo, sm.EventBus)
	sm.Funnels = NewFunnelService(funnelRepo)
	sm.Activities = NewActivityService(activityRepo, cardRepo, funnelRepo)
	sm.Config = NewConfigService(mappingRepo, webhookRepo)

	// Event-driven side effects. Outbound push-back only subscribes when
	// a platform endpoint is configured.
	sm.Outbound = NewOutboundService(platformClient, funnelRepo, sm.SyncLog)
	if cfg.PlatformBaseURL != "" {
		sm.Outbound.Register(sm.EventBus)
	}
	sm.Fanout = NewFanoutService(webhookRepo, funnelRepo, sm.SyncLog)
	sm.Fanout.Register(sm.EventBus)

	maintenance, err := NewMaintenanceService(sm.SyncLog)
	if err != nil {
		return nil, err
	}
	sm.Maintenance = maintenance

	return sm, nil
}

// SyncConfig exposes the loaded sync configuration
func (sm *ServiceManager) SyncConfig() SyncConfig {
	return sm.cfg
}

// StartWorkers starts the background maintenance loop.
// Call this during server startup.
func (sm *ServiceManager) StartWorkers() {
	go sm.Maintenance.Start()
}

// StopWorkers stops background workers gracefully.
// Call this during server shutdown.
func (sm *ServiceManager) StopWorkers() {
	sm.Maintenance.Stop()
}

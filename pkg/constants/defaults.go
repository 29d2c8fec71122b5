package constants

import "time"

// Operational defaults for the sync engine.
const (
	// DefaultIntegrationLabel is the marker a platform conversation must
	// carry to be synchronized into the CRM.
	DefaultIntegrationLabel = "KANBAN_CRM"

	// OutboundTimeout bounds every outbound HTTP call (platform
	// push-back and automation fan-out).
	OutboundTimeout = 8 * time.Second

	// FanoutMaxConcurrency bounds the number of in-flight automation
	// webhook deliveries.
	FanoutMaxConcurrency = 8

	// FollowUpBusinessDays is the default follow-up horizon for cards in
	// commercial funnels when no due date is supplied.
	FollowUpBusinessDays = 3

	// CommercialFunnelKeyword marks a funnel as commercial when its name
	// contains it (case-insensitive).
	CommercialFunnelKeyword = "comercial"

	// MappingAutoCreateMinLen is the minimum label/attribute value length
	// for the auto-create mapping path.
	MappingAutoCreateMinLen = 4

	// SyncLogRetention is how long sync log rows are kept before the
	// maintenance job prunes them.
	SyncLogRetention = 30 * 24 * time.Hour

	// SyncLogPruneSchedule is the cron expression for the pruning job.
	SyncLogPruneSchedule = "0 3 * * *"
)

// Default funnel seeded on an empty database so inbound events always
// have a landing place.
const (
	DefaultFunnelName = "Default"
)

// DefaultStageNames are the stages seeded into the default funnel, in
// display order.
var DefaultStageNames = []string{"Novo", "Em andamento", "Fechado"}

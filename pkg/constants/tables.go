package constants

// Table names used throughout the persistence layer.
const (
	TableFunnel            = "funnels"
	TableStage             = "stages"
	TableCard              = "cards"
	TableActivity          = "activities"
	TableMappingRule       = "mapping_rules"
	TableAutomationWebhook = "automation_webhooks"
	TableSyncLog           = "sync_logs"
	TableUser              = "users"
)

package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/funnelsync/backend/internal/infrastructure/database"
	"github.com/funnelsync/backend/pkg/constants"
)

// tableDDL holds the schema, one statement per table, in dependency
// order. All statements are idempotent.
var tableDDL = []string{
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		position INT NOT NULL DEFAULT 0,
		created_date DATETIME NOT NULL,
		UNIQUE KEY uk_funnel_name (name)
	)`, constants.TableFunnel),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		funnel_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		position INT NOT NULL DEFAULT 0,
		KEY idx_stage_funnel (funnel_id),
		UNIQUE KEY uk_stage_funnel_name (funnel_id, name)
	)`, constants.TableStage),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(512) NOT NULL,
		funnel_id VARCHAR(36) NOT NULL,
		stage_id VARCHAR(36) NOT NULL,
		external_conversation_id BIGINT NULL,
		state VARCHAR(32) NOT NULL DEFAULT 'active',
		assigned_user_id VARCHAR(36) NULL,
		contact_name VARCHAR(255) NOT NULL DEFAULT '',
		contact_phone VARCHAR(64) NOT NULL DEFAULT '',
		return_date DATETIME NULL,
		created_date DATETIME NOT NULL,
		last_modified_date DATETIME NOT NULL,
		UNIQUE KEY uk_card_conversation (external_conversation_id),
		KEY idx_card_funnel_stage (funnel_id, stage_id),
		KEY idx_card_state (state)
	)`, constants.TableCard),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		card_id VARCHAR(36) NULL,
		type VARCHAR(32) NOT NULL,
		description TEXT,
		scheduled_date DATETIME NULL,
		completed_date DATETIME NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		is_private TINYINT(1) NOT NULL DEFAULT 0,
		created_date DATETIME NOT NULL,
		KEY idx_activity_card (card_id),
		KEY idx_activity_status (status, scheduled_date)
	)`, constants.TableActivity),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		source_type VARCHAR(32) NOT NULL,
		source_key VARCHAR(255) NOT NULL,
		source_value VARCHAR(255) NULL,
		target_funnel_name VARCHAR(255) NULL,
		target_stage_name VARCHAR(255) NULL,
		priority INT NOT NULL DEFAULT 100,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		KEY idx_rule_lookup (is_active, source_type, source_key)
	)`, constants.TableMappingRule),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		trigger_stage_origin VARCHAR(36) NULL,
		trigger_stage_destination VARCHAR(36) NULL,
		external_url VARCHAR(1024) NOT NULL,
		custom_headers JSON NULL,
		condition_expr TEXT NULL,
		KEY idx_webhook_active (is_active)
	)`, constants.TableAutomationWebhook),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		direction VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		external_conversation_id BIGINT NULL,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		error_message TEXT,
		created_date DATETIME NOT NULL,
		KEY idx_synclog_created (created_date),
		KEY idx_synclog_status (status, created_date)
	)`, constants.TableSyncLog),

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		external_agent_id BIGINT NULL,
		UNIQUE KEY uk_user_email (email),
		KEY idx_user_agent (external_agent_id)
	)`, constants.TableUser),
}

// InitializeSchema creates all tables if they do not exist
func InitializeSchema(db *database.TiDBConnection) error {
	log.Println("🔧 Initializing schema...")

	for _, ddl := range tableDDL {
		if _, err := db.DB().ExecContext(context.Background(), ddl); err != nil {
			return fmt.Errorf("schema initialization failed: %w", err)
		}
	}

	log.Printf("✅ Schema ready (%d tables)", len(tableDDL))
	return nil
}

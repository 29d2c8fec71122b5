package services

import (
	"log"
	"os"

	"github.com/funnelsync/backend/pkg/constants"
)

// SyncConfig carries the integration settings the sync engine needs.
// It is loaded once at startup and passed by parameter; there is no
// ambient singleton configuration state.
type SyncConfig struct {
	// PlatformBaseURL is the messaging platform API root.
	PlatformBaseURL string
	// PlatformAPIToken authenticates outbound platform calls.
	PlatformAPIToken string
	// IntegrationLabel is the marker a conversation must carry to be
	// synchronized, matched case-insensitively.
	IntegrationLabel string
	// WebhookAPIKeyHash is the bcrypt hash of the shared secret expected
	// on the inbound webhook endpoint. Empty disables the check.
	WebhookAPIKeyHash string
	// IntegrationAPIKeyHash is the bcrypt hash of the key required by
	// the generic integration API.
	IntegrationAPIKeyHash string
}

// LoadSyncConfig reads the sync configuration from the environment
func LoadSyncConfig() SyncConfig {
	cfg := SyncConfig{
		PlatformBaseURL:       os.Getenv("PLATFORM_BASE_URL"),
		PlatformAPIToken:      os.Getenv("PLATFORM_API_TOKEN"),
		IntegrationLabel:      os.Getenv("INTEGRATION_LABEL"),
		WebhookAPIKeyHash:     os.Getenv("WEBHOOK_API_KEY_HASH"),
		IntegrationAPIKeyHash: os.Getenv("INTEGRATION_API_KEY_HASH"),
	}

	if cfg.IntegrationLabel == "" {
		cfg.IntegrationLabel = constants.DefaultIntegrationLabel
	}
	if cfg.PlatformBaseURL == "" {
		log.Println("⚠️  PLATFORM_BASE_URL not set, outbound platform sync disabled")
	}
	if cfg.IntegrationAPIKeyHash == "" {
		log.Println("⚠️  INTEGRATION_API_KEY_HASH not set, integration API disabled")
	}

	return cfg
}

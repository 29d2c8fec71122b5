package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/funnelsync/backend/pkg/constants"
)

// Client talks to the messaging platform's REST API. Every call is
// bounded by the client timeout; callers treat failures as best-effort
// and never let them block a CRM write.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a platform API client
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: constants.OutboundTimeout,
		},
	}
}

// UpdateConversationAttributes pushes changed CRM fields (stage name,
// return date) onto a conversation's custom attributes.
func (c *Client) UpdateConversationAttributes(ctx context.Context, conversationID int64, attrs map[string]string) error {
	url := fmt.Sprintf("%s/api/v1/conversations/%d/custom_attributes", c.baseURL, conversationID)
	body := map[string]interface{}{"custom_attributes": attrs}
	return c.post(ctx, url, body)
}

// AddConversationLabel appends a label to a conversation.
func (c *Client) AddConversationLabel(ctx context.Context, conversationID int64, label string) error {
	url := fmt.Sprintf("%s/api/v1/conversations/%d/labels", c.baseURL, conversationID)
	body := map[string]interface{}{"labels": []string{label}}
	return c.post(ctx, url, body)
}

func (c *Client) post(ctx context.Context, url string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("platform API returned %d for %s", resp.StatusCode, url)
	}
	return nil
}

// services/role_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RoleClient asks the bot gateway to make sure a user holds a guild role.
// Used on level-up milestones; failures are logged by the caller, never
// retried here.
type RoleClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewRoleClient(baseURL, token string) *RoleClient {
	return &RoleClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// EnsureRole is idempotent on the gateway side: a user who already holds the
// role is left untouched.
func (c *RoleClient) EnsureRole(ctx context.Context, guildID, userID, roleName string) error {
	body, err := json.Marshal(map[string]string{
		"guild_id":  guildID,
		"user_id":   userID,
		"role_name": roleName,
	})
	if err != nil {
		return fmt.Errorf("encode role request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/roles/ensure", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build role request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

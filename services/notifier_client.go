// services/notifier_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"guild-bot-system/models"
)

// MessageField is one labeled value in a structured message payload.
type MessageField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessagePayload is the structured message handed to the bot gateway; the
// gateway owns rendering, this service never formats display text.
type MessagePayload struct {
	GuildID   string         `json:"guild_id"`
	ChannelID string         `json:"channel_id,omitempty"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	Fields    []MessageField `json:"fields,omitempty"`
}

// GatewayNotifier delivers structured messages through the bot gateway's
// internal notify endpoint.
type GatewayNotifier struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewGatewayNotifier(baseURL, token string) *GatewayNotifier {
	return &GatewayNotifier{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendEventReminder announces an upcoming event to its guild.
func (c *GatewayNotifier) SendEventReminder(ctx context.Context, event *models.ScheduledEvent) error {
	payload := MessagePayload{
		GuildID: event.GuildID,
		Title:   fmt.Sprintf("Reminder: %s", event.Title),
		Body:    event.Description,
		Fields: []MessageField{
			{Name: "starts_at", Value: event.EventAt.Format(time.RFC3339)},
			{Name: "created_by", Value: event.CreatorID},
		},
	}
	return c.send(ctx, payload)
}

func (c *GatewayNotifier) send(ctx context.Context, payload MessagePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notify payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/notify", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
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

package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/maplepay/maplepay-backend/internal/payroll/run"
	"github.com/maplepay/maplepay-backend/pkg/config"
	"github.com/maplepay/maplepay-backend/pkg/logger"
)

// Client generates a plain-language narrative for a run variance by
// calling an OpenAI-compatible chat completion endpoint. The narrative
// is advisory only: every failure degrades to an empty narrative and
// the variance numbers are returned unchanged.
type Client struct {
	cfg  config.ExplainConfig
	http *http.Client
	log  *logger.Logger
}

// NewClient creates an explanation client
func NewClient(cfg config.ExplainConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.WithComponent("explain_client"),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ExplainVariance produces a short narrative describing why the run's
// total cost moved against the previous run. Returns an empty string
// when the explainer is disabled or the upstream call fails.
func (c *Client) ExplainVariance(ctx context.Context, payPeriod string, v run.Variance) string {
	if !c.cfg.Enabled {
		return ""
	}

	prompt := fmt.Sprintf(
		"The payroll run for period %s has a total employer cost of $%s, compared to $%s for the previous run "+
			"(a change of $%s, %s%%). In two or three sentences, summarize this variance for a payroll administrator. "+
			"Do not invent causes; describe only the magnitude and direction of the change.",
		payPeriod,
		v.CurrentTotal.StringFixed(2),
		v.PreviousTotal.StringFixed(2),
		v.Delta.StringFixed(2),
		v.Percent.StringFixed(2),
	)

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a concise payroll reporting assistant."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		c.log.WithError(err).Warn().Msg("failed to build explanation request")
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Warn().Msg("variance explanation call failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("variance explanation call returned non-200")
		return ""
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.WithError(err).Warn().Msg("failed to decode explanation response")
		return ""
	}
	if len(parsed.Choices) == 0 {
		return ""
	}
	return parsed.Choices[0].Message.Content
}

// Package platform is the HTTP client that actually places a proposal on the
// external freelance platform, using the user's own session cookie and
// authenticity token.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// Config holds submission client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration // the platform can be slow; default 300s
}

// Client submits proposals.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a submission client.
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SubmitRequest carries everything needed to place one proposal.
type SubmitRequest struct {
	AuthToken string
	Cookie    string
	PostingID int64
	JobKind   string
	Budget    int64
	HourCap   int64
	BidText   string
}

// paymentType maps the posting's job kind onto the platform's proposal
// payment type. A zero budget always submits as hourly, matching the
// platform's form rules.
func paymentType(jobKind string, budget int64) string {
	if budget == 0 || jobKind == domain.JobKindHourly {
		return "hourly"
	}
	return "fixed_price"
}

// Submit places the proposal. Any non-2xx response is a failure; the caller
// decides what to do with it, no state is mutated here.
func (c *Client) Submit(ctx context.Context, req *SubmitRequest) error {
	form := url.Values{}
	form.Set("authenticity_token", req.AuthToken)
	form.Set("proposal[conditions_attributes][0][payment_type]", paymentType(req.JobKind, req.Budget))
	form.Set("proposal[conditions_attributes][0][milestones_attributes][0][index]", "0")
	form.Set("proposal[conditions_attributes][0][milestones_attributes][0][amount_without_sales_tax]", strconv.FormatInt(req.Budget, 10))
	form.Set("proposal[conditions_attributes][0][hourly_wage_without_sales_tax]", strconv.FormatInt(req.Budget, 10))
	form.Set("proposal[conditions_attributes][0][hours_limit]", strconv.FormatInt(req.HourCap, 10))
	form.Set("proposal[conditions_attributes][0][message_attributes][body]", req.BidText)
	form.Set("proposal[job_offer_id]", strconv.FormatInt(req.PostingID, 10))

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/proposals"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Set("Cookie", req.Cookie)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("submission request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Submission returned non-success status",
			slog.Int64("posting_id", req.PostingID),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("submission status %d", resp.StatusCode)
	}

	return nil
}

package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/orderdesk/orderdesk-backend/internal/fulfillment"
	"github.com/orderdesk/orderdesk-backend/pkg/config"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

// Client dispatches transactional notification emails through the mail
// provider's HTTP API. Delivery failures are the caller's to log; they never
// unwind the operation that triggered the notice.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
	logger     *logger.Logger
}

// NewClient validates the credentials and builds the dispatcher.
func NewClient(ctx context.Context, cfg config.MailConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mail api key is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		logger:     logg,
	}
	if logg != nil {
		logg.Info(ctx, "mailer client initialized")
	}
	return c, nil
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailPayload struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

// SendShipmentNotice emails the customer that part of their order shipped.
func (c *Client) SendShipmentNotice(ctx context.Context, notice fulfillment.ShipmentNotice) error {
	if notice.CustomerEmail == "" {
		return errors.New("customer email missing")
	}

	payload := mailPayload{
		Personalizations: []mailPersonalization{{
			To: []mailAddress{{Email: notice.CustomerEmail, Name: notice.CustomerName}},
		}},
		From:    mailAddress{Email: c.fromEmail, Name: c.fromName},
		Subject: fmt.Sprintf("Your order #%d has shipped", notice.OrderNumber),
		Content: []mailContent{{
			Type:  "text/plain",
			Value: renderNoticeBody(notice),
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func renderNoticeBody(notice fulfillment.ShipmentNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThe following items from order #%d are on their way:\n\n",
		notice.CustomerName, notice.OrderNumber)
	for _, line := range notice.Lines {
		fmt.Fprintf(&b, "  %d x %s (%s) @ %s %s\n",
			line.Quantity, line.Name, line.SKU, line.UnitPrice.StringFixed(2), notice.Currency)
	}
	fmt.Fprintf(&b, "\nShipment total: %s %s\n", notice.ShippedTotal.StringFixed(2), notice.Currency)
	if notice.TrackingNumber != "" {
		fmt.Fprintf(&b, "Tracking: %s %s\n", notice.Carrier, notice.TrackingNumber)
	}
	return b.String()
}

package shopify

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

const accessTokenHeader = "X-Shopify-Access-Token"

var errShopDomainRequired = errors.New("shopify shop domain is required")

// Client pushes fulfillments to the Shopify admin API. Callers treat every
// error as non-fatal; the shipment ledger is the source of truth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logger.Logger
}

// NewClient validates the credentials and builds the sync client.
func NewClient(ctx context.Context, cfg config.ShopifyConfig, logg *logger.Logger) (*Client, error) {
	domain := strings.TrimSpace(cfg.ShopDomain)
	if domain == "" {
		return nil, errShopDomainRequired
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("shopify access token is required")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    fmt.Sprintf("https://%s/admin/api/%s", domain, cfg.APIVersion),
		token:      cfg.AccessToken,
		logger:     logg,
	}
	if logg != nil {
		logg.Info(ctx, "shopify client initialized")
	}
	return c, nil
}

type fulfillmentPayload struct {
	Fulfillment fulfillmentBody `json:"fulfillment"`
}

type fulfillmentBody struct {
	NotifyCustomer bool          `json:"notify_customer"`
	TrackingInfo   *trackingInfo `json:"tracking_info,omitempty"`
}

type trackingInfo struct {
	Company string `json:"company,omitempty"`
	Number  string `json:"number,omitempty"`
}

// CreateFulfillment records the shipment against the external order.
func (c *Client) CreateFulfillment(ctx context.Context, req fulfillment.FulfillmentSyncRequest) error {
	payload := fulfillmentPayload{
		Fulfillment: fulfillmentBody{NotifyCustomer: req.NotifyCustomer},
	}
	if req.TrackingNumber != "" {
		payload.Fulfillment.TrackingInfo = &trackingInfo{
			Company: req.Carrier,
			Number:  req.TrackingNumber,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal fulfillment: %w", err)
	}

	url := fmt.Sprintf("%s/orders/%d/fulfillments.json", c.baseURL, req.OrderNumber)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fulfillment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(accessTokenHeader, c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send fulfillment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fulfillment sync returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

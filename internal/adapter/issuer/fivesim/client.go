// Package fivesim implements usecase.NumberIssuer against the 5sim
// activation API.
package fivesim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/metrics"
)

const (
	defaultBaseURL  = "https://5sim.net"
	defaultOperator = "any"
	maxBodySize     = 1 << 20
)

// Config configures the client.
type Config struct {
	BaseURL        string
	APIKey         string
	Operator       string
	Timeout        time.Duration
	ReleaseRetries uint64
}

// Client is a 5sim API client.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewClient creates a new Client. metrics may be nil.
func NewClient(cfg Config, m *metrics.Metrics, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Operator == "" {
		cfg.Operator = defaultOperator
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		logger:  logger.With().Str("component", "fivesim").Logger(),
	}
}

type priceEntry struct {
	Cost  decimal.Decimal `json:"cost"`
	Count int             `json:"count"`
}

// country -> product -> operator -> entry
type priceList map[string]map[string]map[string]priceEntry

type smsMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type order struct {
	ID      int64           `json:"id"`
	Phone   string          `json:"phone"`
	Price   decimal.Decimal `json:"price"`
	Status  string          `json:"status"`
	Expires *time.Time      `json:"expires"`
	SMS     []smsMessage    `json:"sms"`
}

// Quote returns the cheapest in-stock wholesale cost for the pair, limited to
// the configured operator unless it is "any".
func (c *Client) Quote(ctx context.Context, route, serviceCode string) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("country", route)
	query.Set("product", serviceCode)

	var prices priceList
	err := c.do(ctx, "quote", "/v1/guest/prices?"+query.Encode(), false, &prices)
	if errors.Is(err, errOrderNotFound) {
		return decimal.Zero, fmt.Errorf("%w: %w", domain.ErrNumberUnavailable, err)
	}
	if err != nil {
		return decimal.Zero, err
	}

	var (
		best  decimal.Decimal
		found bool
	)
	for operator, entry := range prices[route][serviceCode] {
		if c.cfg.Operator != defaultOperator && operator != c.cfg.Operator {
			continue
		}
		if entry.Count <= 0 {
			continue
		}
		if !found || entry.Cost.LessThan(best) {
			best, found = entry.Cost, true
		}
	}
	if !found {
		return decimal.Zero, domain.ErrNumberUnavailable
	}

	return best, nil
}

// Issue buys an activation number. The purchase is refused upstream when
// the current cost exceeds maxPrice.
func (c *Client) Issue(ctx context.Context, route, serviceCode string, maxPrice decimal.Decimal) (*domain.IssuedNumber, error) {
	path := fmt.Sprintf("/v1/user/buy/activation/%s/%s/%s",
		url.PathEscape(route), url.PathEscape(c.cfg.Operator), url.PathEscape(serviceCode))
	if maxPrice.IsPositive() {
		path += "?maxPrice=" + maxPrice.String()
	}

	var o order
	err := c.do(ctx, "issue", path, true, &o)
	if errors.Is(err, errOrderNotFound) {
		return nil, fmt.Errorf("%w: %w", domain.ErrNumberUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	if o.ID == 0 || o.Phone == "" {
		return nil, fmt.Errorf("%w: empty order in purchase response", domain.ErrIssuerUnavailable)
	}

	return &domain.IssuedNumber{
		IssuerID:      strconv.FormatInt(o.ID, 10),
		Number:        o.Phone,
		WholesaleCost: o.Price,
		ExpiresAt:     o.Expires,
	}, nil
}

// CheckDelivery reports whether an SMS code has arrived for the order.
func (c *Client) CheckDelivery(ctx context.Context, issuerID string) (*domain.Delivery, error) {
	var o order
	err := c.do(ctx, "check", "/v1/user/check/"+url.PathEscape(issuerID), true, &o)
	if errors.Is(err, errOrderNotFound) {
		return &domain.Delivery{State: domain.DeliveryNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	return o.delivery(), nil
}

// Release cancels the order, retrying transient failures. It reports false
// when the provider refuses the cancellation.
func (c *Client) Release(ctx context.Context, issuerID string) (bool, error) {
	path := "/v1/user/cancel/" + url.PathEscape(issuerID)

	var b backoff.BackOff = backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
	b = backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.ReleaseRetries), ctx)

	released := false
	operation := func() error {
		var o order
		err := c.do(ctx, "release", path, true, &o)
		switch {
		case err == nil:
			released = true
			return nil
		case errors.Is(err, domain.ErrIssuerUnavailable):
			return err
		case errors.Is(err, errOrderNotFound), errors.Is(err, errOrderRefused):
			c.logger.Info().Str("issuer_id", issuerID).Err(err).Msg("issuer declined release")
			return nil
		default:
			return backoff.Permanent(err)
		}
	}

	if err := backoff.Retry(operation, b); err != nil {
		return false, err
	}

	return released, nil
}

func (o *order) delivery() *domain.Delivery {
	switch strings.ToUpper(o.Status) {
	case "RECEIVED", "FINISHED":
		if len(o.SMS) > 0 {
			return &domain.Delivery{State: domain.DeliveryDelivered, Code: o.SMS[len(o.SMS)-1].Code}
		}
		if strings.ToUpper(o.Status) == "FINISHED" {
			return &domain.Delivery{State: domain.DeliveryCancelled}
		}
		return &domain.Delivery{State: domain.DeliveryWaiting}
	case "CANCELED", "CANCELLED", "TIMEOUT", "BANNED":
		return &domain.Delivery{State: domain.DeliveryCancelled}
	default:
		return &domain.Delivery{State: domain.DeliveryWaiting}
	}
}

func (c *Client) do(ctx context.Context, operation, path string, authenticated bool, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		if c.metrics != nil {
			c.metrics.IssuerRequests.WithLabelValues(operation, status).Inc()
			c.metrics.IssuerDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrIssuerUnavailable, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %w", domain.ErrIssuerUnavailable, operation, err)
	}
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		err := classify(resp.StatusCode, body)
		c.logger.Debug().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Err(err).
			Msg("issuer request rejected")
		return err
	}

	// The API answers some refusals with 200 and a plain-text reason.
	if !json.Valid(body) {
		return classify(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %w", domain.ErrIssuerUnavailable, operation, err)
	}

	return nil
}

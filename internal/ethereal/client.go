// Package ethereal reads best-effort supplementary data (points, fills,
// open position) from the Ethereal exchange API. Every fetch degrades to an
// explicit "no data" result on any transport error, non-2xx status or
// malformed body; nothing here can fail the caller's reporting path.
package ethereal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/botledger/botgate/internal/config"
	"github.com/botledger/botgate/internal/pkg/logger"
	"github.com/botledger/botgate/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

type Points struct {
	TotalPoints decimal.Decimal `json:"totalPoints"`
	Rank        int             `json:"rank"`
	Tier        int             `json:"tier"`
}

type Fill struct {
	OrderID     string           `json:"orderId"`
	Side        string           `json:"side"` // buy | sell
	Ticker      string           `json:"ticker"`
	Price       decimal.Decimal  `json:"price"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Fee         decimal.Decimal  `json:"fee"`
	RealizedPnl *decimal.Decimal `json:"realizedPnl"`
	CreatedAt   string           `json:"createdAt"`
}

type Position struct {
	Ticker        string          `json:"ticker"`
	Side          string          `json:"side"` // long | short
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	MarkPrice     decimal.Decimal `json:"markPrice"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
	Leverage      int             `json:"leverage"`
}

type Client struct {
	baseURL     string
	http        *http.Client
	cache       Cache
	pointsTTL   time.Duration
	fillsTTL    time.Duration
	positionTTL time.Duration
	fillsLimit  int
}

func NewClient(cfg *config.Config, cache Cache) *Client {
	timeout := 5 * time.Second
	if cfg.Ethereal.TimeoutMs > 0 {
		timeout = time.Duration(cfg.Ethereal.TimeoutMs) * time.Millisecond
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Client{
		baseURL:     cfg.Ethereal.BaseURL,
		http:        &http.Client{Timeout: timeout},
		cache:       cache,
		pointsTTL:   ttlSeconds(cfg.Ethereal.PointsTTLSeconds, 300),
		fillsTTL:    ttlSeconds(cfg.Ethereal.FillsTTLSeconds, 60),
		positionTTL: ttlSeconds(cfg.Ethereal.PositionTTLSeconds, 60),
		fillsLimit:  cfg.Ethereal.FillsLimit,
	}
}

func ttlSeconds(s, fallback int) time.Duration {
	if s <= 0 {
		s = fallback
	}
	return time.Duration(s) * time.Second
}

// Points fetches the airdrop points summary for a wallet. Nil means no data.
func (c *Client) Points(ctx context.Context, address string) *Points {
	if address == "" {
		return nil
	}
	body, ok := c.fetch(ctx, "points", "/v1/points/summary?address="+url.QueryEscape(address), c.pointsTTL)
	if !ok {
		return nil
	}
	var points Points
	if err := json.Unmarshal(body, &points); err != nil {
		logger.Debug("ethereal points decode failed", "error", err)
		return nil
	}
	return &points
}

// Fills fetches recent execution fills for a subaccount. The upstream may
// return a bare array or an envelope under "fills" or "data"; both normalize
// to one slice. Empty slice means no data.
func (c *Client) Fills(ctx context.Context, subaccountID string) []Fill {
	if subaccountID == "" {
		return []Fill{}
	}
	limit := c.fillsLimit
	if limit <= 0 {
		limit = 50
	}
	path := "/v1/order/fill?subaccountId=" + url.QueryEscape(subaccountID) + "&limit=" + strconv.Itoa(limit)
	body, ok := c.fetch(ctx, "fills", path, c.fillsTTL)
	if !ok {
		return []Fill{}
	}
	return normalizeFills(body)
}

// Position fetches the current open position for a subaccount. The upstream
// may return an array (first element wins) or a single object. Nil means flat
// or no data.
func (c *Client) Position(ctx context.Context, subaccountID string) *Position {
	if subaccountID == "" {
		return nil
	}
	body, ok := c.fetch(ctx, "position", "/v1/position?subaccountId="+url.QueryEscape(subaccountID), c.positionTTL)
	if !ok {
		return nil
	}
	return normalizePosition(body)
}

// fetch serves from cache when fresh, otherwise performs one bounded GET.
// Returns ok=false on any failure; the caller renders "no data".
func (c *Client) fetch(ctx context.Context, resource, path string, ttl time.Duration) ([]byte, bool) {
	if cached, ok := c.cache.Get(ctx, path); ok {
		metrics.EnrichmentFetches.WithLabelValues(resource, "cache_hit").Inc()
		return cached, true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		metrics.EnrichmentFetches.WithLabelValues(resource, "error").Inc()
		return nil, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("ethereal fetch failed", "resource", resource, "error", err)
		metrics.EnrichmentFetches.WithLabelValues(resource, "error").Inc()
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debug("ethereal fetch non-2xx", "resource", resource, "status", resp.StatusCode)
		metrics.EnrichmentFetches.WithLabelValues(resource, "upstream_"+strconv.Itoa(resp.StatusCode)).Inc()
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.EnrichmentFetches.WithLabelValues(resource, "error").Inc()
		return nil, false
	}

	c.cache.Set(ctx, path, body, ttl)
	metrics.EnrichmentFetches.WithLabelValues(resource, "ok").Inc()
	return body, true
}

func normalizeFills(body []byte) []Fill {
	var bare []Fill
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare
	}
	var envelope struct {
		Fills []Fill `json:"fills"`
		Data  []Fill `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		logger.Debug("ethereal fills decode failed", "error", err)
		return []Fill{}
	}
	if envelope.Fills != nil {
		return envelope.Fills
	}
	if envelope.Data != nil {
		return envelope.Data
	}
	return []Fill{}
}

func normalizePosition(body []byte) *Position {
	var list []Position
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return nil
		}
		return &list[0]
	}
	var single Position
	if err := json.Unmarshal(body, &single); err != nil {
		logger.Debug("ethereal position decode failed", "error", err)
		return nil
	}
	if single.Ticker == "" {
		return nil
	}
	return &single
}

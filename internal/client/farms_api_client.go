package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	domain "farm_poller/internal/domain/entity"
	"farm_poller/internal/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FarmsAPIClient defines the interface for the alternate farms data API.
type FarmsAPIClient interface {
	GetPublicFarmData(ctx context.Context, apiChainID string, pids []int) (map[int]domain.PublicFarmSnapshot, error)
}

// farmsAPIClientImpl is the implementation of FarmsAPIClient.
type farmsAPIClientImpl struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewFarmsAPIClient creates a new instance of farmsAPIClientImpl.
func NewFarmsAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger) FarmsAPIClient {
	return &farmsAPIClientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named("FarmsAPIClient"),
		now:     time.Now,
	}
}

// GetPublicFarmData implements the FarmsAPIClient interface. Only the requested
// pids are returned; an empty pids slice returns every farm.
func (c *farmsAPIClientImpl) GetPublicFarmData(ctx context.Context, apiChainID string, pids []int) (map[int]domain.PublicFarmSnapshot, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("farms API base URL is not configured")
	}
	if apiChainID == "" {
		return nil, fmt.Errorf("farms API chain id is empty: %w", domain.ErrUnknownChain)
	}

	requestURL := fmt.Sprintf("%s/%s/farms", c.baseURL, apiChainID)
	c.logger.Debug("Requesting farms from farms API", zap.String("url", requestURL), zap.Int("pidCount", len(pids)))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute request to farms API", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute request to farms API (with default timeout)", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		var apiErr entity.FarmsAPIError
		_ = json.Unmarshal(rawBody, &apiErr)
		c.logger.Error("Farms API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.String("apiError", apiErr.Error),
		)
		return nil, fmt.Errorf("farms API request to %s failed with status %d: %s", requestURL, resp.StatusCode(), apiErr.Error)
	}

	var body entity.FarmsAPIResponse
	if err := json.Unmarshal(rawBody, &body); err != nil {
		c.logger.Error("Failed to unmarshal farms API response", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal farms API response from %s: %w", requestURL, err)
	}

	wanted := make(map[int]struct{}, len(pids))
	for _, pid := range pids {
		wanted[pid] = struct{}{}
	}

	fetchedAt := c.now()
	out := make(map[int]domain.PublicFarmSnapshot, len(pids))
	for _, f := range body.Data {
		if _, ok := wanted[f.Pid]; len(wanted) > 0 && !ok {
			continue
		}
		snap, err := toSnapshot(f)
		if err != nil {
			c.logger.Warn("Skipping farm with malformed numbers", zap.Int("pid", f.Pid), zap.Error(err))
			continue
		}
		snap.FetchedAt = fetchedAt
		out[f.Pid] = snap
	}

	if missing := len(wanted) - len(out); missing > 0 {
		c.logger.Warn("Farms API response is missing requested farms",
			zap.String("apiChainID", apiChainID),
			zap.Int("missing", missing))
	}
	c.logger.Debug("Farms API response decoded", zap.String("apiChainID", apiChainID), zap.Int("farmCount", len(out)))
	return out, nil
}

func toSnapshot(f entity.FarmAPIData) (domain.PublicFarmSnapshot, error) {
	snap := domain.PublicFarmSnapshot{Pid: f.Pid, Multiplier: f.Multiplier}
	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{f.AllocPoint, &snap.AllocPoint},
		{f.PoolWeight, &snap.PoolWeight},
		{f.RewardPerBlock, &snap.RewardPerBlock},
		{f.LpTotalSupply, &snap.LpTotalSupply},
		{f.LpTokenBalanceMC, &snap.LpTokenBalanceMC},
		{f.TokenAmountTotal, &snap.TokenAmountTotal},
		{f.QuoteTokenAmountTotal, &snap.QuoteTokenAmountTotal},
		{f.LpTotalInQuoteToken, &snap.LpTotalInQuoteToken},
		{f.TokenPriceVsQuote, &snap.TokenPriceVsQuote},
		{f.TokenPriceBusd, &snap.TokenPriceBusd},
		{f.QuoteTokenPriceBusd, &snap.QuoteTokenPriceBusd},
	}
	for _, field := range fields {
		if field.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(field.raw)
		if err != nil {
			return domain.PublicFarmSnapshot{}, err
		}
		*field.dst = v
	}
	return snap, nil
}

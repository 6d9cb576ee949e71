package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ocobot/internal/domain"
	"ocobot/internal/infra"

	"github.com/shopspring/decimal"
)

// Client is the Binance spot REST API client (boundary layer). It never
// retries a failed call; classification is the caller's concern.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	logger     *slog.Logger
}

// NewClient creates a new Binance API client.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL: cfg.API.Binance.RestURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		signer: NewSigner(cfg.API.Binance.AccessKey, cfg.API.Binance.SecretKey),
		logger: slog.Default().With("module", "binance_client"),
	}
}

// PlaceOrder submits an order. The response type is FULL so market
// orders report their fills, commission asset included.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", req.Side)
	params.Set("type", req.Type)
	params.Set("quantity", req.Quantity.String())
	params.Set("newOrderRespType", "FULL")
	if req.Type != domain.OrderTypeMarket {
		params.Set("price", req.Price.String())
		params.Set("timeInForce", "GTC")
	}
	if req.Type == domain.OrderTypeStopLossLimit {
		params.Set("stopPrice", req.StopPrice.String())
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return nil, fmt.Errorf("binance place order failed: %w", err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}

	result := &domain.OrderResult{
		OrderID: resp.OrderID,
		Status:  resp.Status,
	}
	for _, f := range resp.Fills {
		price, _ := decimal.NewFromString(f.Price)
		qty, _ := decimal.NewFromString(f.Qty)
		result.Fills = append(result.Fills, domain.Fill{
			Price:           price,
			Quantity:        qty,
			CommissionAsset: f.CommissionAsset,
		})
	}

	c.logger.Info("order placed",
		slog.Int64("order_id", result.OrderID),
		slog.String("symbol", req.Symbol),
		slog.String("type", req.Type))
	return result, nil
}

// CancelOrder cancels a resting order. Fails if it is already filled or
// cancelled.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", fmt.Sprintf("%d", orderID))

	if _, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/order", params); err != nil {
		return fmt.Errorf("binance cancel order failed: %w", err)
	}
	return nil
}

// CurrentPrice returns a single price snapshot for the pair.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	body, err := c.doPublic(ctx, "/api/v3/ticker/price?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return decimal.Zero, err
	}

	var resp tickerPriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse ticker response: %w", err)
	}
	return decimal.NewFromString(resp.Price)
}

// PairRules fetches the pair's conformance filters from exchangeInfo.
func (c *Client) PairRules(ctx context.Context, symbol string) (*domain.PairRules, error) {
	body, err := c.doPublic(ctx, "/api/v3/exchangeInfo?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return nil, err
	}

	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse exchange info: %w", err)
	}

	for _, s := range resp.Symbols {
		if s.Symbol != strings.ToUpper(symbol) {
			continue
		}
		rules := &domain.PairRules{}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				rules.StepSize, _ = decimal.NewFromString(f.StepSize)
				rules.MinQty, _ = decimal.NewFromString(f.MinQty)
			case "PRICE_FILTER":
				rules.TickSize, _ = decimal.NewFromString(f.TickSize)
				rules.MinPrice, _ = decimal.NewFromString(f.MinPrice)
			case "MIN_NOTIONAL", "NOTIONAL":
				rules.MinNotional, _ = decimal.NewFromString(f.MinNotional)
			}
		}
		return rules, nil
	}
	return nil, domain.ErrPairNotFound
}

// CreateListenKey opens a user-data stream and returns its listen key.
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	body, err := c.doKeyed(ctx, http.MethodPost, "/api/v3/userDataStream")
	if err != nil {
		return "", fmt.Errorf("failed to create listen key: %w", err)
	}

	var resp listenKeyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse listen key response: %w", err)
	}
	return resp.ListenKey, nil
}

// KeepAliveListenKey extends the user-data stream's validity.
func (c *Client) KeepAliveListenKey(ctx context.Context, listenKey string) error {
	_, err := c.doKeyed(ctx, http.MethodPut, "/api/v3/userDataStream?listenKey="+url.QueryEscape(listenKey))
	return err
}

// doSigned performs an authenticated, signed request.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + c.signer.SignQuery(params)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.signer.APIKey())
	return c.do(req)
}

// doKeyed performs a request authenticated by API key only (no signature).
func (c *Client) doKeyed(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.signer.APIKey())
	return c.do(req)
}

// doPublic performs an unauthenticated request.
func (c *Client) doPublic(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("binance api error: code=%d msg=%s", apiErr.Code, apiErr.Msg)
		}
		return nil, fmt.Errorf("binance api error: status=%d body=%s", resp.StatusCode, string(body))
	}
	return body, nil
}

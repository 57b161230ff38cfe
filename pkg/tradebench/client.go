// Package tradebench provides a Go client for the tradebench-server API.
package tradebench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tradebench/internal/backtest"
	"tradebench/internal/httpapi"
)

// Client provides a Go SDK for interacting with the tradebench-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tradebench API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// do issues a request and decodes the JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if derr := json.NewDecoder(resp.Body).Decode(&apiErr); derr == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RunBacktest executes a backtest with the given request settings.
func (c *Client) RunBacktest(ctx context.Context, req backtest.Request) (*backtest.Result, error) {
	var result backtest.Result
	if err := c.do(ctx, http.MethodPost, "/api/backtest", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Strategies lists the strategy types the server knows.
func (c *Client) Strategies(ctx context.Context) ([]string, error) {
	var resp httpapi.StrategiesResponse
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// Candles fetches a candle series for a symbol and interval.
func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) (*httpapi.CandlesResponse, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if interval != "" {
		q.Set("interval", interval)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp httpapi.CandlesResponse
	if err := c.do(ctx, http.MethodGet, "/api/candles?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateUser registers a new dashboard user.
func (c *Client) CreateUser(ctx context.Context, req httpapi.UserRequest) (*httpapi.UserJSON, error) {
	var user httpapi.UserJSON
	if err := c.do(ctx, http.MethodPost, "/api/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches a user by ID.
func (c *Client) GetUser(ctx context.Context, id string) (*httpapi.UserJSON, error) {
	var user httpapi.UserJSON
	if err := c.do(ctx, http.MethodGet, "/api/users/"+id, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user by ID.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+id, nil, nil)
}

// CreateBot saves a new bot configuration.
func (c *Client) CreateBot(ctx context.Context, req httpapi.BotRequest) (*httpapi.BotJSON, error) {
	var bot httpapi.BotJSON
	if err := c.do(ctx, http.MethodPost, "/api/bots", req, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

// GetBot fetches a bot by ID.
func (c *Client) GetBot(ctx context.Context, id string) (*httpapi.BotJSON, error) {
	var bot httpapi.BotJSON
	if err := c.do(ctx, http.MethodGet, "/api/bots/"+id, nil, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

// ListBots lists bots, optionally filtered by user ID.
func (c *Client) ListBots(ctx context.Context, userID string) ([]httpapi.BotJSON, error) {
	path := "/api/bots"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var bots []httpapi.BotJSON
	if err := c.do(ctx, http.MethodGet, path, nil, &bots); err != nil {
		return nil, err
	}
	return bots, nil
}

// UpdateBot applies changes to a saved bot configuration.
func (c *Client) UpdateBot(ctx context.Context, id string, req httpapi.BotRequest) (*httpapi.BotJSON, error) {
	var bot httpapi.BotJSON
	if err := c.do(ctx, http.MethodPut, "/api/bots/"+id, req, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

// DeleteBot removes a bot by ID.
func (c *Client) DeleteBot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/bots/"+id, nil, nil)
}

// BacktestBot runs a saved bot's backtest and returns the result. The result
// is also persisted on the bot record server-side.
func (c *Client) BacktestBot(ctx context.Context, id string) (*backtest.Result, error) {
	var result backtest.Result
	if err := c.do(ctx, http.MethodPost, "/api/bots/"+id+"/backtest", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartBot flags a bot as running.
func (c *Client) StartBot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/bots/"+id+"/start", nil, nil)
}

// StopBot flags a bot as stopped.
func (c *Client) StopBot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/bots/"+id+"/stop", nil, nil)
}

// CreateWallet stores exchange credentials for a user.
func (c *Client) CreateWallet(ctx context.Context, req httpapi.WalletRequest) (*httpapi.WalletJSON, error) {
	var wallet httpapi.WalletJSON
	if err := c.do(ctx, http.MethodPost, "/api/wallets", req, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ListWallets lists wallets, optionally filtered by user ID.
func (c *Client) ListWallets(ctx context.Context, userID string) ([]httpapi.WalletJSON, error) {
	path := "/api/wallets"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var wallets []httpapi.WalletJSON
	if err := c.do(ctx, http.MethodGet, path, nil, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// DeleteWallet removes a wallet by ID.
func (c *Client) DeleteWallet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/wallets/"+id, nil, nil)
}

// Advise asks the strategy advisor a free-text question.
func (c *Client) Advise(ctx context.Context, question string) (string, error) {
	var resp httpapi.AdvisorResponse
	err := c.do(ctx, http.MethodPost, "/api/advisor", httpapi.AdvisorRequest{Question: question}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Suggestion, nil
}

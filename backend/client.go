// Package backend is the HTTP client for the scalper backend that serves
// candles, prices and the start/stop/reset commands.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/rustyeddy/scalper/market"
)

const (
	DefaultURL     = "http://127.0.0.1:5000/api"
	DefaultTimeout = 10 * time.Second

	statusSuccess = "success"
	maxBody       = 4 << 20
)

// ErrBackend is matched by every *APIError.
var ErrBackend = errors.New("backend error")

// APIError describes a failed call. Status is the HTTP status code, 0 when
// the request never got a response.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool { return target == ErrBackend }

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client rooted at baseURL, e.g. http://127.0.0.1:5000/api.
// The health endpoint is resolved one level above the API root.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

type CandlesRequest struct {
	Symbol   string // e.g. SOLUSDT
	Interval string // e.g. 1m
	Limit    int
}

// wireCandle accepts both the seconds "time" field and the millisecond
// "timestamp" field the backend sends.
type wireCandle struct {
	Timestamp int64   `json:"timestamp"`
	Time      float64 `json:"time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (w wireCandle) candle() market.Candle {
	ts := int64(w.Time)
	if ts == 0 {
		ts = w.Timestamp / 1000
	}
	return market.Candle{
		Time:   ts,
		Open:   w.Open,
		High:   w.High,
		Low:    w.Low,
		Close:  w.Close,
		Volume: w.Volume,
	}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type candlesResponse struct {
	envelope
	Candles      []wireCandle `json:"candles"`
	CurrentPrice float64      `json:"current_price"`
}

// Candles is a market snapshot. CurrentPrice is 0 when the backend omits it.
type Candles struct {
	Candles      []market.Candle
	CurrentPrice float64
}

// GetCandles fetches the candle snapshot. The candles are returned as sent;
// validation is left to market.Window.Ingest.
func (c *Client) GetCandles(ctx context.Context, req CandlesRequest) (Candles, error) {
	params := url.Values{}
	if req.Symbol != "" {
		params.Set("symbol", req.Symbol)
	}
	if req.Interval != "" {
		params.Set("interval", req.Interval)
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}

	var resp candlesResponse
	if err := c.do(ctx, http.MethodGet, "/candles", params, &resp, &resp.envelope); err != nil {
		return Candles{}, err
	}

	out := Candles{
		Candles:      make([]market.Candle, 0, len(resp.Candles)),
		CurrentPrice: resp.CurrentPrice,
	}
	for _, wc := range resp.Candles {
		out.Candles = append(out.Candles, wc.candle())
	}
	return out, nil
}

// CommandResult is the reply to start, stop and reset.
type CommandResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Strategy string `json:"strategy,omitempty"`
}

func (c *Client) Start(ctx context.Context) (CommandResult, error) {
	return c.command(ctx, "/scalper/start")
}

func (c *Client) Stop(ctx context.Context) (CommandResult, error) {
	return c.command(ctx, "/scalper/stop")
}

func (c *Client) Reset(ctx context.Context) (CommandResult, error) {
	return c.command(ctx, "/scalper/reset")
}

func (c *Client) command(ctx context.Context, path string) (CommandResult, error) {
	var resp struct {
		envelope
		Strategy string `json:"strategy"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, &resp, &resp.envelope); err != nil {
		return CommandResult{}, err
	}
	return CommandResult{
		Status:   resp.Status,
		Message:  resp.Message,
		Strategy: resp.Strategy,
	}, nil
}

type Performance struct {
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`
}

// ScalperStatus is the backend's view of the strategy. Position is empty and
// EntryPrice nil while flat.
type ScalperStatus struct {
	Running      bool        `json:"running"`
	Position     string      `json:"position"`
	EntryPrice   *float64    `json:"entry_price"`
	Equity       float64     `json:"equity"`
	TotalSignals int         `json:"total_signals"`
	TotalTrades  int         `json:"total_trades"`
	WinRate      float64     `json:"win_rate"`
	Performance  Performance `json:"performance"`
}

type StreamStatus struct {
	Running bool   `json:"running"`
	Symbol  string `json:"symbol,omitempty"`
}

type Status struct {
	Scalper ScalperStatus `json:"scalper"`
	Stream  StreamStatus  `json:"stream"`
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp struct {
		envelope
		Scalper ScalperStatus `json:"scalper"`
		Stream  StreamStatus  `json:"stream"`
	}
	if err := c.do(ctx, http.MethodGet, "/scalper/status", nil, &resp, &resp.envelope); err != nil {
		return Status{}, err
	}
	return Status{Scalper: resp.Scalper, Stream: resp.Stream}, nil
}

// Price fetches the latest price through the lightweight test endpoint.
func (c *Client) Price(ctx context.Context) (float64, error) {
	var resp struct {
		envelope
		Price float64 `json:"price"`
	}
	if err := c.do(ctx, http.MethodGet, "/scalper/test", nil, &resp, &resp.envelope); err != nil {
		return 0, err
	}
	if !market.ValidPrice(resp.Price) {
		return 0, &APIError{Endpoint: "/scalper/test", Status: http.StatusOK, Message: "no price in response"}
	}
	return resp.Price, nil
}

// Health calls GET /health at the server root. The endpoint answers
// {"status":"ok"} rather than the success envelope.
func (c *Client) Health(ctx context.Context) error {
	root := strings.TrimSuffix(c.baseURL, "/api")

	var resp envelope
	if err := c.doURL(ctx, http.MethodGet, "/health", root+"/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" && resp.Status != statusSuccess {
		return &APIError{Endpoint: "/health", Status: http.StatusOK, Message: "unhealthy: " + resp.Status}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any, env *envelope) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	if err := c.doURL(ctx, method, path, u, out); err != nil {
		return err
	}
	if env.Status != statusSuccess {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %q", env.Status)
		}
		return &APIError{Endpoint: path, Status: http.StatusOK, Message: msg}
	}
	return nil
}

func (c *Client) doURL(ctx context.Context, method, endpoint, u string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return &APIError{Endpoint: endpoint, Message: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Endpoint: endpoint, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: "read body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		var env envelope
		if sonic.Unmarshal(body, &env) == nil && (env.Message != "" || env.Error != "") {
			msg = env.Message
			if msg == "" {
				msg = env.Error
			}
		}
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

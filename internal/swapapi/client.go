// Package swapapi is a client for a DEX-aggregator quote/swap HTTP API.
package swapapi

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pokeball-ops/internal/apischema"
	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/observability"
)

// DefaultTimeout bounds each HTTP request to the aggregator.
const DefaultTimeout = 30 * time.Second

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	quoteSchema = apischema.MustCompile(schemaFS, "schemas/quote.schema.json")
	swapSchema  = apischema.MustCompile(schemaFS, "schemas/swap.schema.json")
)

// StatusError is returned for non-2xx responses and carries the response body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("swap api status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the aggregator's /quote and /swap endpoints.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithAPIKey sends an x-api-key header on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new aggregator client for baseURL (e.g. https://quote-api.jup.ag/v6).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// quoteResponse is the raw /quote payload.
type quoteResponse struct {
	InputMint   string `json:"inputMint"`
	InAmount    string `json:"inAmount"`
	OutputMint  string `json:"outputMint"`
	OutAmount   string `json:"outAmount"`
	SlippageBps int    `json:"slippageBps"`
	RoutePlan   []struct {
		Percent  int `json:"percent"`
		SwapInfo struct {
			AmmKey string `json:"ammKey"`
			Label  string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// Quote requests a price quote for swapping amount of inputMint into outputMint.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.SwapQuote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := apischema.Decode(body, quoteSchema, &resp); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse inAmount: %w", err)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse outAmount: %w", err)
	}

	labels := make([]string, 0, len(resp.RoutePlan))
	for _, hop := range resp.RoutePlan {
		if hop.SwapInfo.Label != "" {
			labels = append(labels, hop.SwapInfo.Label)
		}
	}

	return &domain.SwapQuote{
		InputMint:   resp.InputMint,
		OutputMint:  resp.OutputMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		SlippageBps: resp.SlippageBps,
		RouteLabel:  strings.Join(labels, " -> "),
		Raw:         json.RawMessage(body),
	}, nil
}

// swapRequest is the /swap request body.
type swapRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	WrapAndUnwrapSol        bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit bool            `json:"dynamicComputeUnitLimit"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// BuildSwapTransaction asks the aggregator for an unsigned swap transaction
// for quote, paid and signed by userPublicKey. Returns the serialized transaction.
func (c *Client) BuildSwapTransaction(ctx context.Context, quote *domain.SwapQuote, userPublicKey string) ([]byte, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("build swap: missing quote payload")
	}

	payload, err := json.Marshal(swapRequest{
		QuoteResponse:           quote.Raw,
		UserPublicKey:           userPublicKey,
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp swapResponse
	if err := apischema.Decode(body, swapSchema, &resp); err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	return raw, nil
}

// do performs a single request. Non-2xx responses become *StatusError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	observability.RecordAPILatency("swapapi", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

package gacha

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pokeball-ops/internal/apischema"
	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/observability"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	generateSchema = apischema.MustCompile(schemaFS, "schemas/generate.schema.json")
	submitSchema   = apischema.MustCompile(schemaFS, "schemas/submit.schema.json")
	openSchema     = apischema.MustCompile(schemaFS, "schemas/open.schema.json")
)

// ClientOptions configures Client.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	Delays     StepDelays
	Sleeper    Sleeper      // nil uses TimerSleeper
	HTTPClient *http.Client // nil uses a 30s timeout client
	Logger     *log.Logger
}

// Client drives the pack service's generate -> submit -> open protocol.
type Client struct {
	baseURL string
	apiKey  string
	delays  StepDelays
	sleeper Sleeper
	client  *http.Client
	logger  *log.Logger
}

// Compile-time interface check.
var _ Service = (*Client)(nil)

// NewClient creates a pack service client.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		delays:  opts.Delays,
		sleeper: opts.Sleeper,
		client:  opts.HTTPClient,
		logger:  orDiscard(opts.Logger),
	}
	if c.sleeper == nil {
		c.sleeper = TimerSleeper{}
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

type generateRequest struct {
	Wallet string `json:"wallet"`
}

type generateResponse struct {
	PackID             string `json:"packId"`
	PaymentTransaction string `json:"paymentTransaction"`
}

type submitRequest struct {
	PackID    string `json:"packId"`
	Signature string `json:"signature"`
}

type submitResponse struct {
	PackID string `json:"packId"`
	Status string `json:"status"`
}

type openRequest struct {
	PackID string `json:"packId"`
}

type openResponse struct {
	PackID  string `json:"packId"`
	AssetID string `json:"assetId"`
}

// PurchasePack buys and opens one pack paid by signer.
// Errors are *StateError carrying the last state reached.
func (c *Client) PurchasePack(ctx context.Context, signer Signer) (*domain.PackPurchase, error) {
	var gen generateResponse
	if err := c.post(ctx, "/packs/generate", generateRequest{Wallet: signer.OperatorPublicKey()}, generateSchema, &gen); err != nil {
		return nil, &StateError{Err: fmt.Errorf("generate: %w", err)}
	}

	p := &domain.PackPurchase{PackID: gen.PackID, State: domain.PackStateGenerated}
	c.logger.Printf("Pack %s generated", p.PackID)

	if err := c.sleeper.Sleep(ctx, c.delays.AfterGenerate); err != nil {
		return nil, c.fail(p, err)
	}

	rawTx, err := base64.StdEncoding.DecodeString(gen.PaymentTransaction)
	if err != nil {
		return nil, c.fail(p, fmt.Errorf("decode payment transaction: %w", err))
	}
	sig, err := signer.SignAndSubmit(ctx, rawTx)
	if err != nil {
		return nil, c.fail(p, fmt.Errorf("pay: %w", err))
	}
	p.PaymentTxRef = sig

	var sub submitResponse
	if err := c.post(ctx, "/packs/submit", submitRequest{PackID: p.PackID, Signature: sig}, submitSchema, &sub); err != nil {
		return nil, c.fail(p, fmt.Errorf("submit: %w", err))
	}
	p.State = domain.PackStateSubmitted
	c.logger.Printf("Pack %s submitted (%s)", p.PackID, sig)

	if err := c.sleeper.Sleep(ctx, c.delays.AfterSubmit); err != nil {
		return nil, c.fail(p, err)
	}

	var opened openResponse
	if err := c.post(ctx, "/packs/open", openRequest{PackID: p.PackID}, openSchema, &opened); err != nil {
		return nil, c.fail(p, fmt.Errorf("open: %w", err))
	}
	p.AssetID = opened.AssetID
	p.State = domain.PackStateOpened

	return p, nil
}

func (c *Client) fail(p *domain.PackPurchase, err error) error {
	return &StateError{PackID: p.PackID, State: p.State, Err: err}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pack service status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) post(ctx context.Context, path string, in any, schema *jsonschema.Schema, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	observability.RecordAPILatency("gacha", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return apischema.Decode(body, schema, out)
}

package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photorestore/internal/infra"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

// Prediction statuses reported by the predictions API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Options configures the Replicate predictions client.
type Options struct {
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Replicate predictions API.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// CreateRequest is the body of a create-prediction call.
type CreateRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// Prediction is the job resource returned by create and get calls.
type Prediction struct {
	ID      string          `json:"id"`
	Version string          `json:"version"`
	Status  string          `json:"status"`
	Output  json.RawMessage `json:"output"`
	Error   json.RawMessage `json:"error"`
	Logs    string          `json:"logs"`
	URLs    struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
	Metrics struct {
		PredictTime float64 `json:"predict_time"`
	} `json:"metrics"`
}

// OutputURL returns the output locator. Output may be a string or a list of
// strings; the first non-empty entry wins.
func (p *Prediction) OutputURL() string {
	if p == nil || len(p.Output) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil {
		for _, item := range many {
			if item = strings.TrimSpace(item); item != "" {
				return item
			}
		}
	}
	return ""
}

// ErrorMessage returns the provider-reported error, if any.
func (p *Prediction) ErrorMessage() string {
	if p == nil || len(p.Error) == 0 || string(p.Error) == "null" {
		return ""
	}
	var msg string
	if err := json.Unmarshal(p.Error, &msg); err == nil {
		return strings.TrimSpace(msg)
	}
	return strings.TrimSpace(string(p.Error))
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("replicate: status %d", e.StatusCode)
	}
	return fmt.Sprintf("replicate: status %d: %s", e.StatusCode, e.Detail)
}

type errorResponse struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiToken != ""
}

// CreatePrediction submits a new job. It is called once per restoration and never retried.
func (c *Client) CreatePrediction(ctx context.Context, req CreateRequest) (*Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	if strings.TrimSpace(req.Version) == "" {
		return nil, errors.New("replicate: model version is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	pred, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/predictions", body)
	if err != nil {
		return nil, err
	}
	if pred.ID == "" {
		return nil, errors.New("replicate: prediction id missing from response")
	}
	if pred.URLs.Get == "" {
		pred.URLs.Get = c.PredictionURL(pred.ID)
	}
	c.logger.Debug().
		Str("prediction_id", pred.ID).
		Str("status", pred.Status).
		Msg("replicate: prediction created")
	return pred, nil
}

// GetPrediction fetches the current state of a prediction from its status locator.
func (c *Client) GetPrediction(ctx context.Context, statusURL string) (*Prediction, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	statusURL = strings.TrimSpace(statusURL)
	if statusURL == "" {
		return nil, errors.New("replicate: status url is required")
	}
	return c.do(ctx, http.MethodGet, statusURL, nil)
}

// CancelPrediction asks the provider to stop a prediction.
func (c *Client) CancelPrediction(ctx context.Context, cancelURL string) error {
	if !c.HasCredentials() {
		return ErrMissingAPIToken
	}
	cancelURL = strings.TrimSpace(cancelURL)
	if cancelURL == "" {
		return errors.New("replicate: cancel url is required")
	}
	_, err := c.do(ctx, http.MethodPost, cancelURL, nil)
	return err
}

// PredictionURL builds the canonical status locator for a prediction id.
func (c *Client) PredictionURL(id string) string {
	return c.baseURL + "/v1/predictions/" + id
}

// CancelURL builds the canonical cancel locator for a prediction id.
func (c *Client) CancelURL(id string) string {
	return c.PredictionURL(id) + "/cancel"
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*Prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("replicate: non-success response")
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && (detail.Detail != "" || detail.Title != "") {
			msg := detail.Detail
			if msg == "" {
				msg = detail.Title
			}
			return nil, &APIError{StatusCode: resp.StatusCode, Detail: msg}
		}
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var pred Prediction
	if len(bytes.TrimSpace(raw)) == 0 {
		return &pred, nil
	}
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	return &pred, nil
}

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultInferenceURL = "http://localhost:8000"
	contentTypeMsgpack  = "application/msgpack"
)

// Client calls the model server over HTTP. Tensors travel msgpack-encoded.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a model server client. A zero timeout means no client-side
// timeout; callers should then bound calls with a context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultInferenceURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ModelInfo describes a model the server has loaded.
type ModelInfo struct {
	Name        string `json:"name"`
	InputShape  []int  `json:"input_shape"`
	OutputShape []int  `json:"output_shape"`
	Ready       bool   `json:"ready"`
}

// Model is a Network bound to one model on the server.
type Model struct {
	client *Client
	name   string
	info   ModelInfo
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Info returns the metadata reported when the model was loaded.
func (m *Model) Info() ModelInfo { return m.info }

// Forward runs the model on input.
func (m *Model) Forward(ctx context.Context, input Tensor) (Tensor, error) {
	return m.client.Forward(ctx, m.name, input)
}

// Load probes the server for the named model and returns a Network bound to it.
// Any failure is wrapped in ErrModelLoad: the process must not start serving
// frames without both networks.
func (c *Client) Load(ctx context.Context, name string) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: model name is empty", ErrModelLoad)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to create request: %v", ErrModelLoad, name, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: request failed: %v", ErrModelLoad, name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %v", ErrModelLoad, name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: API error (status %d): %s", ErrModelLoad, name, resp.StatusCode, string(body))
	}

	var info ModelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to parse response: %v", ErrModelLoad, name, err)
	}
	if !info.Ready {
		return nil, fmt.Errorf("%w: %s: model not ready", ErrModelLoad, name)
	}

	return &Model{client: c, name: name, info: info}, nil
}

// Forward posts input to the named model and decodes the output tensor.
func (c *Client) Forward(ctx context.Context, name string, input Tensor) (Tensor, error) {
	if err := input.Validate(); err != nil {
		return Tensor{}, fmt.Errorf("invalid input tensor: %w", err)
	}

	payload, err := msgpack.Marshal(&input)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to encode tensor: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(name)+"/forward", bytes.NewReader(payload))
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeMsgpack)
	req.Header.Set("Accept", contentTypeMsgpack)

	resp, err := c.client.Do(req)
	if err != nil {
		return Tensor{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Tensor{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out Tensor
	if err := msgpack.Unmarshal(body, &out); err != nil {
		return Tensor{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Tensor{}, fmt.Errorf("invalid output tensor from %s: %w", name, err)
	}
	return out, nil
}

// CheckHealth reports whether the model server answers its health endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) modelURL(name string) string {
	return c.baseURL + "/v1/models/" + url.PathEscape(name)
}

// Package mcp implements a JSON-RPC 2.0 client for MCP-style tool providers.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/darshil44/AI-Powered-Content-Explorer/pkg/errors"
)

// Tool names exposed by the configured providers.
const (
	ToolTavilySearch  = "tavily-search"
	ToolGenerateImage = "generateImageUrl"
)

const jsonRPCVersion = "2.0"

// request is the JSON-RPC 2.0 request envelope for a tool call.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  params `json:"params"`
}

type params struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// response is the JSON-RPC 2.0 response envelope.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client calls tools on a single MCP provider endpoint. Every call is a
// single attempt bounded by the configured timeout; callers decide whether
// a failed invocation is worth repeating.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a tool client for the given provider endpoint.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Endpoint returns the provider endpoint this client calls.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// CallTool invokes the named tool with the given arguments and returns the
// raw result payload. Any transport failure, non-2xx status, malformed
// response, or provider-reported error surfaces as ToolUnavailable.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (json.RawMessage, error) {
	reqBody := request{
		JSONRPC: jsonRPCVersion,
		ID:      uuid.NewString(),
		Method:  "tools/call",
		Params:  params{Name: name, Arguments: arguments},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal tool request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build tool request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "tool call failed",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.ToolUnavailable(c.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, apperrors.ToolUnavailable(c.endpoint, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "tool call returned error status",
			slog.String("tool", name),
			slog.Int("status", resp.StatusCode),
		)
		return nil, apperrors.ToolUnavailable(c.endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var rpcResp response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, apperrors.ToolUnavailable(c.endpoint, fmt.Errorf("decode response: %w", err))
	}
	if rpcResp.Error != nil {
		return nil, apperrors.ToolUnavailable(c.endpoint, rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 {
		return nil, apperrors.ToolUnavailable(c.endpoint, fmt.Errorf("response has no result"))
	}

	c.logger.DebugContext(ctx, "tool call completed",
		slog.String("tool", name),
		slog.Duration("duration", time.Since(start)),
	)

	return rpcResp.Result, nil
}

// SearchArguments are the arguments for the web search tool.
type SearchArguments struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// ImageArguments are the arguments for the image generation tool.
type ImageArguments struct {
	Prompt string `json:"prompt"`
}

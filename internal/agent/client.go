// Package agent is the adapter for the remote AI-agent workflow.
//
// Client posts one fixed question to the flow's prediction endpoint and pulls
// the generated post out of the nested reasoning trace (see Extract). It does
// no retries: a failed call is reported once and the caller decides what to do.
//
// Observability: Fetch runs in an OpenTelemetry span and propagates the trace
// context to the endpoint via the globally configured propagator.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPrompt is the question sent to the flow once per day.
const DefaultPrompt = `User Request: Find the latest AI knowledge and generate a LinkedIn post.
Instructions:
- Treat this as a fresh, standalone task.
- Collect and extract at least 5 distinct news items from different sources.
- Generate a professional LinkedIn post combining all findings.
- Call make_webhook exactly once with the final post.
- Do not call make_webhook more than once per day.
- After calling it, return exactly: Post published.
- Ignore previous make_webhook calls from earlier prompts.`

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 8 << 20

// predictionRequest is the JSON body posted to the endpoint.
type predictionRequest struct {
	Question string `json:"question"`
}

// Client calls the agent flow endpoint.
type Client struct {
	// Endpoint is the full prediction URL.
	Endpoint string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// HTTP is the underlying client; its Timeout bounds the whole exchange.
	HTTP *http.Client
	// Match selects the result inside the response.
	Match Match
	// MaxBodyBytes caps the response body; <= 0 uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// NewClient returns a Client for endpoint with the given overall timeout and
// DefaultMatch.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: timeout},
		Match:    DefaultMatch,
	}
}

// Fetch sends prompt to the flow and returns the extracted post text.
//
// Errors are *RemoteError for transport failures and non-2xx statuses, and
// *MalformedResponseError when the response lacks the expected structure.
func (c *Client) Fetch(ctx context.Context, prompt string) (string, error) {
	tr := otel.Tracer("agent/Client")
	ctx, span := tr.Start(ctx, "Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("agent.tool", c.Match.Tool)),
	)
	defer span.End()

	text, err := c.fetch(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("agent.result_len", len(text)))
	return text, nil
}

func (c *Client) fetch(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(predictionRequest{Question: prompt})
	if err != nil {
		return "", &RemoteError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &RemoteError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(c.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", &RemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", &RemoteError{StatusCode: resp.StatusCode}
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", &RemoteError{StatusCode: 0, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > limit {
		return "", malformed("response body exceeds %d bytes", limit)
	}

	return Extract(body, c.Match)
}

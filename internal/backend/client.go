package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 * 1024 * 1024

// probeMaxTokens is the output cap used by the reachability probe.
const probeMaxTokens = 10

// Options configures a Client.
type Options struct {
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64

	HTTPClient *http.Client
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Meter      metric.Meter
}

// Client calls an OpenAI-compatible chat-completion endpoint. Streaming is
// never requested; each call awaits the full response.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64

	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	duration   metric.Float64Histogram
}

// NewClient creates a Client. Missing observability collaborators fall
// back to the global otel providers and slog.Default.
func NewClient(opts Options) *Client {
	c := &Client{
		endpoint:    opts.Endpoint,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		meter:       opts.Meter,
	}
	if c.httpClient == nil {
		// Per-request deadlines come from the caller's context.
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("edupro-chat/backend")
	}
	if c.meter == nil {
		c.meter = otel.Meter("edupro-chat/backend")
	}

	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		c.logger.Warn("failed to create duration histogram", "error", err)
	}
	c.duration = histogram
	return c
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string { return c.model }

// Complete sends messages and returns the first choice's assistant text.
// Errors are always one of *RequestFailedError, *TransportError or
// *ResponseFormatError, except for request construction failures.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (*Completion, error) {
	temperature := c.temperature
	return c.do(ctx, "chat_completion_call", OpenAIRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
		Stream:      false,
	})
}

// Probe sends a minimal request to check that the endpoint is reachable and
// accepts the credential. The reply content is not inspected.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.send(ctx, "chat_completion_probe", OpenAIRequest{
		Model:     c.model,
		Messages:  []ChatMessage{{Role: "user", Content: "Hello"}},
		MaxTokens: probeMaxTokens,
	})
	return err
}

func (c *Client) do(ctx context.Context, spanName string, reqBody OpenAIRequest) (*Completion, error) {
	body, err := c.send(ctx, spanName, reqBody)
	if err != nil {
		return nil, err
	}

	completion, err := decodeCompletion(body)
	if err != nil {
		return nil, err
	}

	c.recordUsage(ctx, completion.Usage)
	return completion, nil
}

// send performs the POST and returns the raw 2xx body.
func (c *Client) send(ctx context.Context, spanName string, reqBody OpenAIRequest) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("llm.model", reqBody.Model),
		attribute.Int("llm.messages", len(reqBody.Messages)),
	))
	defer span.End()

	start := time.Now()

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if c.duration != nil {
		c.duration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		c.logger.Warn("chat completion rejected", "status", resp.StatusCode)
		return nil, &RequestFailedError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// decodeCompletion validates the response shape instead of trusting it.
func decodeCompletion(body []byte) (*Completion, error) {
	var apiResp OpenAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &ResponseFormatError{Reason: "body is not a JSON object: " + err.Error()}
	}
	if len(apiResp.Choices) == 0 {
		return nil, &ResponseFormatError{Reason: "no choices"}
	}
	msg := apiResp.Choices[0].Message
	if msg == nil {
		return nil, &ResponseFormatError{Reason: "first choice has no message"}
	}
	if msg.Content == nil || *msg.Content == "" {
		return nil, &ResponseFormatError{Reason: "first choice message has no content"}
	}
	return &Completion{
		Content: *msg.Content,
		Model:   apiResp.Model,
		Usage:   apiResp.Usage,
	}, nil
}

// recordUsage records OpenTelemetry counters from usage data
func (c *Client) recordUsage(ctx context.Context, usage map[string]interface{}) {
	for key, value := range usage {
		intVal, ok := value.(float64)
		if !ok {
			continue
		}
		counter, err := c.meter.Int64Counter(
			fmt.Sprintf("llm.usage.%s", key),
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
		)
		if err != nil {
			c.logger.Warn("failed to create counter", "key", key, "error", err)
			continue
		}
		counter.Add(ctx, int64(intVal))
	}
}

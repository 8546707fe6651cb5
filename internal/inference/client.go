// Package inference talks to an OpenAI-compatible chat-completions backend.
package inference

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"dreamui/backend/internal/models"
	"dreamui/backend/internal/relay"
	"dreamui/backend/pkg/config"
	"dreamui/backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "dreamui/backend/internal/inference"

// Request is one chat-completion call. Zero values fall back to the client defaults.
type Request struct {
	Model       string
	Messages    []models.ChatMessage
	Temperature *float32
	MaxTokens   int
}

// Model describes an entry of the backend's model list
type Model struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// Options configures a Client
type Options struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	Temperature  float32
	MaxTokens    int
	// Timeout bounds buffered calls only; streams have no client-side deadline.
	Timeout time.Duration
	Logger  *logger.Logger
}

// OptionsFromConfig maps the Inference config group onto Options
func OptionsFromConfig(cfg *config.Config, log *logger.Logger) Options {
	return Options{
		BaseURL:      cfg.Inference.BaseURL,
		APIKey:       cfg.Inference.APIKey,
		DefaultModel: cfg.Inference.DefaultModel,
		Temperature:  cfg.Inference.Temperature,
		MaxTokens:    cfg.Inference.MaxTokens,
		Timeout:      cfg.Inference.Timeout,
		Logger:       log,
	}
}

// Client issues exactly one upstream request per call. It never retries.
type Client struct {
	buffered *openai.Client
	stream   *openai.Client
	opts     Options
	log      *logger.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewClient creates a Client for the given options
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	bufferedCfg := openai.DefaultConfig(opts.APIKey)
	bufferedCfg.BaseURL = opts.BaseURL
	bufferedCfg.HTTPClient = shapeChecker{next: &http.Client{Timeout: opts.Timeout}}

	streamCfg := openai.DefaultConfig(opts.APIKey)
	streamCfg.BaseURL = opts.BaseURL
	streamCfg.HTTPClient = &http.Client{}

	meter := otel.Meter(instrumentationName)
	requests, _ := meter.Int64Counter("inference_requests_total",
		metric.WithDescription("Upstream chat-completion requests by mode and outcome"))
	latency, _ := meter.Float64Histogram("inference_request_duration_seconds",
		metric.WithDescription("Time until the upstream response (buffered) or first byte (stream)"),
		metric.WithUnit("s"))

	return &Client{
		buffered: openai.NewClientWithConfig(bufferedCfg),
		stream:   openai.NewClientWithConfig(streamCfg),
		opts:     opts,
		log:      opts.Logger.WithComponent("inference"),
		tracer:   otel.Tracer(instrumentationName),
		requests: requests,
		latency:  latency,
	}
}

// DefaultModel returns the model used when a request names none
func (c *Client) DefaultModel() string {
	return c.opts.DefaultModel
}

func (c *Client) toOpenAI(req Request) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
	}
	if out.Model == "" {
		out.Model = c.opts.DefaultModel
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	// go-openai omits a zero temperature, which leaves the backend on its default
	if out.Temperature == 0 {
		out.Temperature = math.SmallestNonzeroFloat32
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = c.opts.MaxTokens
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Complete waits for the whole reply and returns the text of the first choice
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := c.toOpenAI(req)
	ctx, span := c.tracer.Start(ctx, "inference.complete",
		trace.WithAttributes(attribute.String("model", body.Model), attribute.Int("messages", len(body.Messages))))
	defer span.End()

	start := time.Now()
	resp, err := c.buffered.CreateChatCompletion(ctx, body)
	c.record(ctx, "buffered", start, err)
	if err != nil {
		ue := upstreamError(err)
		span.RecordError(ue)
		span.SetStatus(codes.Error, ue.Message)
		c.log.WithContext(ctx).Warn("Buffered completion failed", "model", body.Model, "status", ue.StatusCode, "error", ue.Message)
		return "", ue
	}
	if len(resp.Choices) == 0 {
		ue := &UpstreamError{StatusCode: http.StatusOK, Message: "response has no choices"}
		span.SetStatus(codes.Error, ue.Message)
		return "", ue
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streamed completion. The caller must Close the returned Stream.
// Cancelling ctx aborts the upstream request.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	body := c.toOpenAI(req)
	ctx, span := c.tracer.Start(ctx, "inference.stream",
		trace.WithAttributes(attribute.String("model", body.Model), attribute.Int("messages", len(body.Messages))))

	start := time.Now()
	s, err := c.stream.CreateChatCompletionStream(ctx, body)
	c.record(ctx, "stream", start, err)
	if err != nil {
		ue := upstreamError(err)
		span.RecordError(ue)
		span.SetStatus(codes.Error, ue.Message)
		span.End()
		c.log.WithContext(ctx).Warn("Stream open failed", "model", body.Model, "status", ue.StatusCode, "error", ue.Message)
		return nil, ue
	}

	return &Stream{raw: s, span: span}, nil
}

// OpenStream is Stream exposed as a relay frame source
func (c *Client) OpenStream(ctx context.Context, req Request) (relay.FrameSource, error) {
	s, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Models lists the models the backend serves
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	list, err := c.buffered.ListModels(ctx)
	if err != nil {
		return nil, upstreamError(err)
	}
	out := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, Model{ID: m.ID, OwnedBy: m.OwnedBy, Created: m.CreatedAt})
	}
	return out, nil
}

// Ping checks that the backend answers its model listing
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Models(ctx)
	return err
}

func (c *Client) record(ctx context.Context, mode string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode), attribute.String("outcome", outcome))
	c.requests.Add(ctx, 1, attrs)
	c.latency.Record(ctx, time.Since(start).Seconds(), attrs)
}

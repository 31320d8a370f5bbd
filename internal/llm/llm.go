// Package llm implements the External LLM collaborator contract (§6.1):
// complete/stream with deadline support and secondary-provider failover
// on overload, grounded on HooJohn-Aphrodite-Bot's chat_service.go use
// of github.com/sashabaranov/go-openai (the only LLM dependency present
// anywhere in the retrieval pack).
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"autonomy-core/internal/apperr"
)

// Message is one turn in a completion request.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Request is a single completion call.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	Deadline    time.Time
}

// TokenUsage mirrors the provider's reported token accounting.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamChunk is one incremental piece of a streaming completion.
type StreamChunk struct {
	Content string
	Done    bool
}

// Client is the collaborator surface the rest of the Autonomy Core
// depends on; Debate Dispatcher and Intent Classifier both hold one of
// these rather than an *openai.Client directly, so a fake can stand in
// for tests.
type Client interface {
	Complete(ctx context.Context, req Request) (string, TokenUsage, error)
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)
}

// Provider is the production Client, backed by an OpenAI-compatible
// endpoint with an optional secondary for overload failover.
type Provider struct {
	primary   *openai.Client
	secondary *openai.Client
	model     string
}

// Config configures a Provider's primary and (optional) secondary
// endpoint, each independently base-URL-and-key addressable so the
// secondary can point at a different vendor entirely.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Secondary *SecondaryConfig
}

// SecondaryConfig is the failover provider, used only when the primary
// returns an "overloaded" classification.
type SecondaryConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New builds a Provider from cfg.
func New(cfg Config) *Provider {
	primaryCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		primaryCfg.BaseURL = cfg.BaseURL
	}
	p := &Provider{
		primary: openai.NewClientWithConfig(primaryCfg),
		model:   cfg.Model,
	}
	if cfg.Secondary != nil {
		secCfg := openai.DefaultConfig(cfg.Secondary.APIKey)
		if cfg.Secondary.BaseURL != "" {
			secCfg.BaseURL = cfg.Secondary.BaseURL
		}
		p.secondary = openai.NewClientWithConfig(secCfg)
	}
	return p
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Complete runs a single non-streaming completion, failing over to the
// secondary provider on an overloaded classification.
func (p *Provider) Complete(ctx context.Context, req Request) (string, TokenUsage, error) {
	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	text, usage, err := completeWith(ctx, p.primary, p.model, req)
	if err == nil {
		return text, usage, nil
	}
	var appErr *apperr.Error
	if classify(err) == apperr.KindTransient && errors.As(err, &appErr) && appErr.OperatorMessage == "overloaded" && p.secondary != nil {
		return completeWith(ctx, p.secondary, p.model, req)
	}
	return "", TokenUsage{}, err
}

func completeWith(ctx context.Context, client *openai.Client, model string, req Request) (string, TokenUsage, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", TokenUsage{}, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", TokenUsage{}, apperr.Domain("", "the model returned no response", "empty choices from completion", nil)
	}
	return resp.Choices[0].Message.Content, TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// Stream runs a streaming completion, forwarding deltas on the returned
// channel until EOF or error; the channel is closed in all cases.
func (p *Provider) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		_ = cancel // stream goroutine owns cancellation via ctx.Done
	}

	stream, err := p.primary.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, wrapError(err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if err != nil {
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta != "" {
				select {
				case out <- StreamChunk{Content: delta}:
				case <-ctx.Done():
					return
				}
			}
			if resp.Choices[0].FinishReason != "" {
				select {
				case out <- StreamChunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out, nil
}

// classify maps a wrapped error back to its apperr.Kind, used to decide
// whether the secondary provider should be tried.
func classify(err error) apperr.Kind {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return apperr.KindFatal
}

// wrapError classifies an *openai.APIError into the taxonomy per §6.1's
// {rate_limited, overloaded, invalid_request, canceled} error set.
func wrapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return apperr.New(apperr.KindTransient, "", "That took too long, let me try again.", "canceled", err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return apperr.Transient("", "rate_limited", err)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return apperr.Transient("", "overloaded", err)
		case apiErr.HTTPStatusCode >= http.StatusBadRequest:
			return apperr.Domain("", "I couldn't process that request.", "invalid_request", err)
		}
	}
	return apperr.Transient("", "llm request failed", err)
}

// Package llm posts the enhancement prompt pair built by pkg/prompt to an
// OpenAI-compatible chat-completions endpoint and returns the rewritten
// text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/Clouder0/voicewin/pkg/prompt"
)

const (
	connectTimeout = 10 * time.Second
	overallTimeout = 30 * time.Second
	temperature    = 0.3
)

// StatusError is returned when the chat-completions endpoint responds
// without a 2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: non-2xx response (status %d): %s", e.Status, e.Body)
}

// ErrEmptyContent is returned when a 2xx response has no
// choices[0].message.content.
var ErrEmptyContent = errors.New("llm: response had no message content")

// Enhancer rewrites a transcript via chat-completions. It builds a fresh
// OpenAI SDK client per call because each session's resolved base_url and
// API key (from EffectiveConfig) can differ, so client construction is
// folded into Enhance itself rather than fixed at construction time.
type Enhancer struct {
	httpClient *http.Client
}

// NewEnhancer builds an Enhancer with the connect/overall timeouts required
// for LLM enhancement calls.
func NewEnhancer() *Enhancer {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Enhancer{
		httpClient: &http.Client{
			Timeout: overallTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
	}
}

// Enhance sends system/user messages to baseURL (normalized to a single
// trailing slash before "/chat/completions") and returns the cleaned
// output text (thinking/reasoning blocks stripped by prompt.PostProcess).
func (e *Enhancer) Enhance(ctx context.Context, baseURL, apiKey, model string, built prompt.Built) (string, error) {
	normalized := strings.TrimRight(baseURL, "/")

	client := oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(normalized+"/"),
		option.WithHTTPClient(e.httpClient),
	)

	params := oai.ChatCompletionNewParams{
		Model: oai.ChatModel(model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(built.SystemMessage),
			oai.UserMessage(built.UserMessage),
		},
		Temperature: param.NewOpt(temperature),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Status: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("llm: chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyContent
	}

	return prompt.PostProcess(resp.Choices[0].Message.Content), nil
}

package nlu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// ChatCompleter is the part of the go-openai client the understander uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIUnderstander asks an OpenAI or OpenAI-compatible chat model for a Hint
// in JSON mode.
type OpenAIUnderstander struct {
	client    ChatCompleter
	cfg       config.NLUConfig
	relations []types.RelationType
}

// Option configures an OpenAIUnderstander.
type Option func(*OpenAIUnderstander)

// WithRelationTypes lists the relation types the model may propose.
func WithRelationTypes(rels []types.RelationType) Option {
	return func(u *OpenAIUnderstander) { u.relations = rels }
}

// WithChatCompleter replaces the HTTP client, mostly for tests.
func WithChatCompleter(c ChatCompleter) Option {
	return func(u *OpenAIUnderstander) { u.client = c }
}

// NewOpenAIUnderstander creates an understander from configuration.
// Supports OpenAI-compatible services through a custom BaseURL.
func NewOpenAIUnderstander(cfg config.NLUConfig, opts ...Option) (*OpenAIUnderstander, error) {
	u := &OpenAIUnderstander{cfg: cfg}
	for _, opt := range opts {
		opt(u)
	}

	if u.client == nil {
		apiKey := cfg.APIKey
		if cfg.BaseURL != "" {
			if err := validateBaseURL(cfg.BaseURL); err != nil {
				return nil, fmt.Errorf("invalid base URL: %w", err)
			}
			// Some compatible services don't require authentication
			if apiKey == "" {
				apiKey = "dummy-key"
			}
			clientConfig := openai.DefaultConfig(apiKey)
			clientConfig.BaseURL = cfg.BaseURL
			if !hasAPIPath(cfg.BaseURL) {
				clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/v1"
			}
			u.client = openai.NewClientWithConfig(clientConfig)
		} else {
			if apiKey == "" {
				return nil, fmt.Errorf("nlu: an API key is required for the OpenAI provider")
			}
			u.client = openai.NewClient(apiKey)
		}
	}

	if u.cfg.Model == "" {
		u.cfg.Model = openai.GPT4oMini
	}
	return u, nil
}

// Understand implements Understander.
func (u *OpenAIUnderstander) Understand(ctx context.Context, query string) (*Hint, error) {
	req := openai.ChatCompletionRequest{
		Model: u.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: u.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: u.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if u.cfg.MaxTokens > 0 {
		req.MaxTokens = u.cfg.MaxTokens
	}

	resp, err := u.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, NewRateLimitError(apiErr.Message)
		}
		return nil, fmt.Errorf("nlu chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return ParseHint(resp.Choices[0].Message.Content)
}

func (u *OpenAIUnderstander) systemPrompt() string {
	intents := make([]string, 0, len(types.AllIntents()))
	for _, in := range types.AllIntents() {
		intents = append(intents, string(in))
	}
	rels := make([]string, 0, len(u.relations))
	for _, r := range u.relations {
		rels = append(rels, string(r))
	}

	var b strings.Builder
	b.WriteString("You analyse questions about a knowledge graph of artists, groups, companies and their works.\n")
	b.WriteString("Reply with a single JSON object with these fields:\n")
	b.WriteString(`  "entities": names of the entities mentioned in the question, as written` + "\n")
	b.WriteString(`  "intent": one of ` + strings.Join(intents, ", ") + "\n")
	if len(rels) > 0 {
		b.WriteString(`  "relations": relation types needed to answer, chosen from ` + strings.Join(rels, ", ") + "\n")
	} else {
		b.WriteString(`  "relations": relation types needed to answer, in UPPER_SNAKE_CASE` + "\n")
	}
	b.WriteString(`  "hop_depth": how many relationship hops the answer needs (1 to 3)` + "\n")
	b.WriteString("Do not answer the question itself.")
	return b.String()
}

// validateBaseURL validates the base URL format.
func validateBaseURL(baseURL string) error {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme")
	}
	return nil
}

// hasAPIPath checks if the base URL already includes an API path component.
func hasAPIPath(baseURL string) bool {
	for _, path := range []string{"/v1", "/api", "/v1/", "/api/"} {
		if strings.HasSuffix(baseURL, path) {
			return true
		}
	}
	return false
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultDoubaoEndpoint = "https://ark.cn-beijing.volces.com"

// doubaoClient implements the Provider interface for the Volcengine Ark (Doubao)
// chat API, which speaks the OpenAI wire format under /api/{version}.
type doubaoClient struct {
	client  *openai.Client
	model   string
	baseURL string
}

// newDoubaoClient creates a new Doubao client.
func newDoubaoClient(cfg Config) (*doubaoClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigError{Provider: ProviderDoubao, Field: "api_key"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ConfigError{Provider: ProviderDoubao, Field: "model"}
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultDoubaoEndpoint
	}

	version, err := doubaoAPIVersion(cfg.APIVersion)
	if err != nil {
		return nil, err
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = endpoint + "/api/" + version
	config.HTTPClient = &http.Client{Timeout: httpTimeout(cfg)}

	return &doubaoClient{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		baseURL: config.BaseURL,
	}, nil
}

func doubaoAPIVersion(version string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v") {
	case "", "3":
		return "v3", nil
	case "1":
		return "v1", nil
	default:
		return "", &ConfigError{Provider: ProviderDoubao, Field: "api_version", Reason: "must be v1 or v3, got " + version}
	}
}

func (c *doubaoClient) Name() string {
	return ProviderDoubao
}

// Complete sends a chat completion request to the Ark API.
func (c *doubaoClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	req = req.withDefaults()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	chatResp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.model,
		Messages:         messages,
		MaxTokens:        req.MaxTokens,
		Temperature:      float32(req.Temperature),
		TopP:             float32(req.TopP),
		FrequencyPenalty: float32(req.FrequencyPenalty),
		PresencePenalty:  float32(req.PresencePenalty),
		Stop:             req.Stop,
	})
	if err != nil {
		return CompletionResponse{}, convertOpenAIError(err)
	}

	if len(chatResp.Choices) == 0 {
		return CompletionResponse{}, &ProviderError{
			Provider: ProviderDoubao,
			Kind:     KindMalformed,
			Message:  "no completion choices returned",
		}
	}

	choice := chatResp.Choices[0]
	return CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}, nil
}

// convertOpenAIError converts go-openai errors to ProviderError values.
func convertOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		rateLimited := strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
		return statusError(ProviderDoubao, apiErr.HTTPStatusCode, apiErr.Message, rateLimited, 0)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		message := strings.TrimSpace(string(reqErr.Body))
		rateLimited := strings.Contains(strings.ToLower(message), "rate limit")
		converted := statusError(ProviderDoubao, reqErr.HTTPStatusCode, message, rateLimited, 0)
		converted.Err = reqErr.Err
		return converted
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &ProviderError{Provider: ProviderDoubao, Kind: KindMalformed, Err: err}
	}

	return &ProviderError{Provider: ProviderDoubao, Kind: KindNetwork, Err: fmt.Errorf("request failed: %w", err)}
}

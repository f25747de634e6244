package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultAzureAPIVersion = "2024-02-15-preview"

var azureRetryAfterPattern = regexp.MustCompile(`Please retry after (\d+) seconds?`)

// azureClient implements the Provider interface for an Azure OpenAI deployment.
type azureClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
}

// newAzureClient creates a new Azure OpenAI client.
func newAzureClient(cfg Config) (*azureClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, &ConfigError{Provider: ProviderAzure, Field: "endpoint"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigError{Provider: ProviderAzure, Field: "api_key"}
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		return nil, &ConfigError{Provider: ProviderAzure, Field: "deployment"}
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}

	return &azureClient{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout: httpTimeout(cfg),
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func (c *azureClient) Name() string {
	return ProviderAzure
}

func (c *azureClient) url() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
}

// chatRequest is the OpenAI-style request envelope.
type chatRequest struct {
	Model            string    `json:"model,omitempty"`
	Messages         []Message `json:"messages"`
	Stop             []string  `json:"stop"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

// chatResponse represents the OpenAI-style response structure.
type chatResponse struct {
	Error   *chatError `json:"error,omitempty"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}

type chatError struct {
	Code    any    `json:"code,omitempty"`
	Message string `json:"message"`
}

// Complete sends a chat completion request to the deployment.
func (c *azureClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	req = req.withDefaults()

	jsonBody, err := json.Marshal(chatRequest{
		Messages:         req.Messages,
		Stop:             req.Stop,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	})
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(jsonBody))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, &ProviderError{Provider: ProviderAzure, Kind: KindNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, &ProviderError{Provider: ProviderAzure, Kind: KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	var response chatResponse
	decodeErr := json.Unmarshal(body, &response)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if decodeErr == nil && response.Error != nil && response.Error.Message != "" {
			message = response.Error.Message
		}
		return CompletionResponse{}, c.classifyFailure(resp, message)
	}

	if decodeErr != nil {
		return CompletionResponse{}, &ProviderError{Provider: ProviderAzure, Kind: KindMalformed, StatusCode: resp.StatusCode, Err: decodeErr}
	}

	if len(response.Choices) == 0 {
		if response.Error != nil {
			return CompletionResponse{}, c.classifyFailure(resp, response.Error.Message)
		}
		return CompletionResponse{}, &ProviderError{
			Provider:   ProviderAzure,
			Kind:       KindMalformed,
			StatusCode: resp.StatusCode,
			Message:    "no completion choices returned",
		}
	}

	choice := response.Choices[0]
	return CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
	}, nil
}

func (c *azureClient) classifyFailure(resp *http.Response, message string) *ProviderError {
	rateLimited := strings.Contains(strings.ToLower(message), "call rate limit")
	return statusError(ProviderAzure, resp.StatusCode, message, rateLimited, azureRetryAfter(message, resp.Header))
}

// azureRetryAfter reads the explicit wait from the error message, falling
// back to a numeric Retry-After header.
func azureRetryAfter(message string, header http.Header) time.Duration {
	if match := azureRetryAfterPattern.FindStringSubmatch(message); match != nil {
		if seconds, err := strconv.Atoi(match[1]); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	if header != nil {
		if seconds, err := strconv.Atoi(strings.TrimSpace(header.Get("Retry-After"))); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 0
}

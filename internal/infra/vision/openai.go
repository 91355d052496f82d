package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/minhvu/snapcal/internal/core/domain"
)

const maxTokens = 512

// Config holds analysis service settings.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client calls a vision chat-completion model to turn a meal photo into a
// structured calorie estimate. No retry logic lives here: one request, one
// response, failures surface raw for classification.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates an analysis client.
func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   model,
		timeout: timeout,
	}
}

// Analyze submits the photo and decodes the model's JSON reply into an
// estimate. Out-of-range results are rejected as validation failures.
func (c *Client) Analyze(ctx context.Context, artifactID string, photo []byte) (*domain.Estimate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	imageURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(photo))

	req := openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailLow},
					},
				},
			},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.MalformedResponseError{Cause: errors.New("empty choices in completion")}
	}

	return parseEstimate(artifactID, resp.Choices[0].Message.Content)
}

// mapAPIError converts transport-level failures into the typed errors the
// classifier matches on. Unrecognized errors pass through untouched.
func mapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Message: "analysis request rejected"}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return &domain.HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Message: "analysis request failed"}
		}
		// No status means the request never got a response; surface the
		// underlying transport error for network classification.
		if reqErr.Err != nil {
			return reqErr.Err
		}
	}
	return err
}

// estimatePayload is the JSON shape the model is asked to produce.
type estimatePayload struct {
	Description string   `json:"description"`
	Calories    *int     `json:"calories"`
	Confidence  *float64 `json:"confidence"`
}

// parseEstimate decodes and validates the model reply.
func parseEstimate(artifactID, content string) (*domain.Estimate, error) {
	content = strings.TrimSpace(content)

	var payload estimatePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, &domain.MalformedResponseError{Cause: err}
	}
	if payload.Calories == nil {
		return nil, &domain.MalformedResponseError{Cause: errors.New("calories field missing")}
	}

	calories := *payload.Calories
	if calories < domain.MinCalories {
		return nil, &domain.ValidationError{Detail: fmt.Sprintf("calories %d below %d", calories, domain.MinCalories)}
	}
	if calories > domain.MaxCalories {
		return nil, &domain.ValidationError{Detail: fmt.Sprintf("calories %d above %d", calories, domain.MaxCalories)}
	}

	confidence := 0.0
	if payload.Confidence != nil {
		confidence = *payload.Confidence
		if confidence < 0 || confidence > 1 {
			return nil, &domain.ValidationError{Detail: fmt.Sprintf("confidence %.2f outside 0..1", confidence)}
		}
	}

	return &domain.Estimate{
		ID:          uuid.New().String(),
		ArtifactID:  artifactID,
		Description: payload.Description,
		Calories:    calories,
		Confidence:  confidence,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/rezonia/einvoice-engine/internal/model"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultTimeout = 120 * time.Second
)

// Default models for different tasks
const (
	ModelClaude35Sonnet = "anthropic/claude-3.5-sonnet"
	ModelGPT4oMini      = "openai/gpt-4o-mini"
	ModelGPT4o          = "openai/gpt-4o"
	ModelGeminiFlash    = "google/gemini-flash-1.5"
)

// OpenAIExtractor talks to an OpenAI-compatible API. It supports all three
// extraction capabilities: vision, pre-supplied text, and corrective retry.
type OpenAIExtractor struct {
	client openai.Client
	model  string
}

var (
	_ Extractor      = (*OpenAIExtractor)(nil)
	_ TextExtractor  = (*OpenAIExtractor)(nil)
	_ RetryExtractor = (*OpenAIExtractor)(nil)
)

// ExtractorOption configures the extractor
type ExtractorOption func(*extractorConfig)

type extractorConfig struct {
	baseURL string
	timeout time.Duration
	model   string
}

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ExtractorOption {
	return func(cfg *extractorConfig) {
		cfg.baseURL = url
	}
}

// WithTimeout sets custom HTTP timeout
func WithTimeout(timeout time.Duration) ExtractorOption {
	return func(cfg *extractorConfig) {
		cfg.timeout = timeout
	}
}

// WithModel sets the extraction model
func WithModel(model string) ExtractorOption {
	return func(cfg *extractorConfig) {
		cfg.model = model
	}
}

// NewOpenAIExtractor creates an extractor backed by an OpenAI-compatible API
func NewOpenAIExtractor(apiKey string, opts ...ExtractorOption) *OpenAIExtractor {
	cfg := &extractorConfig{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		model:   ModelClaude35Sonnet,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
		option.WithHeader("HTTP-Referer", "https://github.com/rezonia/einvoice-engine"),
		option.WithHeader("X-Title", "E-Invoice Engine"),
	}

	return &OpenAIExtractor{
		client: openai.NewClient(clientOpts...),
		model:  cfg.model,
	}
}

// Name identifies the provider in errors and logs.
func (e *OpenAIExtractor) Name() string {
	return "openai:" + e.model
}

// Extract runs vision extraction on the raw document.
func (e *OpenAIExtractor) Extract(ctx context.Context, file []byte, mimeType string) (*Result, error) {
	return e.complete(ctx, e.imageMessages(userPromptImageExtraction, file, mimeType))
}

// ExtractWithText skips the provider's OCR and extracts from pre-supplied
// document text.
func (e *OpenAIExtractor) ExtractWithText(ctx context.Context, _ []byte, _ string, extractedText string) (*Result, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPromptExtractor),
		openai.UserMessage(fmt.Sprintf(userPromptTextExtraction, extractedText)),
	}
	return e.complete(ctx, messages)
}

// ExtractWithRetry re-runs extraction with a corrective instruction built
// from a prior failed attempt.
func (e *OpenAIExtractor) ExtractWithRetry(ctx context.Context, file []byte, mimeType, retryPrompt string) (*Result, error) {
	return e.complete(ctx, e.imageMessages(retryPrompt, file, mimeType))
}

func (e *OpenAIExtractor) imageMessages(prompt string, file []byte, mimeType string) []openai.ChatCompletionMessageParamUnion {
	b64 := base64.StdEncoding.EncodeToString(file)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, b64)

	contentParts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}),
	}

	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPromptExtractor),
		openai.UserMessage(contentParts),
	}
}

func (e *OpenAIExtractor) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (*Result, error) {
	start := time.Now()

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       e.model,
		Messages:    messages,
		MaxTokens:   param.NewOpt[int64](4096),
		Temperature: param.NewOpt[float64](0.1),
	})
	if err != nil {
		return nil, model.NewExtractionError(e.Name(), "chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, model.NewExtractionError(e.Name(), "no choices in response", nil)
	}

	content := resp.Choices[0].Message.Content
	jsonText := ExtractJSON(content)

	var raw model.RawExtraction
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, model.NewExtractionError(e.Name(), "response is not valid invoice JSON", err)
	}

	return &Result{
		Data:           raw,
		RawOutput:      jsonText,
		Confidence:     estimateConfidence(raw),
		ProcessingTime: time.Since(start),
	}, nil
}

// estimateConfidence scores field coverage: providers on the OpenAI API give
// no extraction confidence, so presence of the load-bearing fields stands in.
func estimateConfidence(raw model.RawExtraction) float64 {
	score := 0.0
	if raw.InvoiceNumber != "" {
		score += 0.2
	}
	if raw.InvoiceDate != "" {
		score += 0.15
	}
	if raw.Seller.Name != "" {
		score += 0.15
	}
	if raw.Buyer.Name != "" {
		score += 0.15
	}
	if len(raw.LineItems) > 0 {
		score += 0.2
	}
	if raw.TotalAmount != nil {
		score += 0.15
	}
	return score
}

// ExtractJSON extracts JSON from an LLM response (handles markdown code blocks)
func ExtractJSON(response string) string {
	// Try to find JSON in markdown code block
	if start := strings.Index(response, "```json"); start != -1 {
		start += 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	// Try to find JSON in generic code block
	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		// Skip language identifier if present
		if nl := strings.Index(response[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	return strings.TrimSpace(response)
}

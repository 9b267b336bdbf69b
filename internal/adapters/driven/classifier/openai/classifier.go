// Package openai provides a ModelClassifier over any OpenAI-compatible chat
// completions API, using strict JSON schema output.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Ensure Classifier implements the interface.
var _ driven.ModelClassifier = (*Classifier)(nil)

// Default configuration values.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.15
	DefaultTimeout     = 60 * time.Second
)

const systemPrompt = "You are a filing agent. Choose exactly ONE label from the allowed list. Respond ONLY with JSON."

// schemaURL names the compiled response schema inside the jsonschema compiler.
const schemaURL = "classification.json"

// Config holds configuration for the classifier.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL. Empty selects the OpenAI default.
	// Any OpenAI-compatible endpoint works, including Gemini's.
	BaseURL string

	// Model is the chat model name (default: gpt-4o-mini).
	Model string

	// Temperature is the sampling temperature. 0 requests deterministic
	// sampling; negative values select DefaultTemperature.
	Temperature float32

	// Timeout bounds each request (default: 60s).
	Timeout time.Duration

	// HTTPClient overrides the transport. Optional.
	HTTPClient *http.Client
}

// Classifier asks a chat model to pick one label from the allowed set.
type Classifier struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// modelAnswer is the JSON object the model must return.
type modelAnswer struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// NewClassifier creates a classifier.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: classifier API key is required", domain.ErrConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}

	return &Classifier{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// ModelName returns the configured model.
func (c *Classifier) ModelName() string {
	return c.model
}

// Classify sends one request and maps every failure onto an outcome.
func (c *Classifier) Classify(ctx context.Context, in domain.ClassifyInput) domain.ModelOutcome {
	if len(in.AllowedLabels) == 0 {
		return domain.Unavailable(domain.ErrEmptyCatalog)
	}

	rawSchema, err := responseSchema(in.AllowedLabels)
	if err != nil {
		return domain.Unavailable(fmt.Errorf("build schema: %w", err))
	}
	schema, err := compileSchema(rawSchema)
	if err != nil {
		return domain.Unavailable(fmt.Errorf("compile schema: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: wireTemperature(c.temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(in)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "classification",
				Schema: json.RawMessage(rawSchema),
				Strict: true,
			},
		},
	})
	if err != nil {
		logger.Debug("[CLASSIFY] %s request failed after %s: %v", c.model, time.Since(start), err)
		return domain.Unavailable(classifyAPIError(err))
	}
	if len(resp.Choices) == 0 {
		return domain.InvalidResponse(errors.New("no choices in response"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	answer, err := decodeAnswer(schema, content)
	if err != nil {
		return domain.InvalidResponse(err)
	}
	if !in.Allows(answer.Label) {
		return domain.InvalidResponse(fmt.Errorf("label %q is not in the allowed set", answer.Label))
	}

	logger.Debug("[CLASSIFY] %s answered %q (%.2f) in %s", c.model, answer.Label, answer.Confidence, time.Since(start))
	return domain.Succeeded(domain.ClassificationResult{
		Label:      answer.Label,
		Confidence: answer.Confidence,
		Rationale:  answer.Rationale,
	})
}

// classifyAPIError marks credential rejections so they read as auth failures.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
		}
	}
	return fmt.Errorf("chat completion: %w", err)
}

func decodeAnswer(schema *jsonschema.Schema, content string) (modelAnswer, error) {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(content))
	if err != nil {
		return modelAnswer{}, fmt.Errorf("response is not JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return modelAnswer{}, fmt.Errorf("response does not match schema: %w", err)
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return modelAnswer{}, fmt.Errorf("decode response: %w", err)
	}
	return answer, nil
}

// responseSchema returns the JSON schema constraining the label to labels.
func responseSchema(labels []string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label":      map[string]any{"type": "string", "enum": labels},
			"confidence": map[string]any{"type": "number"},
			"rationale":  map[string]any{"type": "string"},
		},
		"required":             []string{"label", "confidence", "rationale"},
		"additionalProperties": false,
	})
}

func compileSchema(raw []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
}

func buildPrompt(in domain.ClassifyInput) string {
	var b strings.Builder
	b.WriteString("Allowed labels:\n")
	for _, label := range in.AllowedLabels {
		if desc := in.Descriptions[label]; desc != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, desc)
		} else {
			fmt.Fprintf(&b, "- %s\n", label)
		}
	}
	fmt.Fprintf(&b, "\nFilename: %s\nBody:\n%s\n", in.Filename, in.Text)
	return b.String()
}

// wireTemperature maps 0 to the smallest positive float32: the request
// field is omitempty, and an omitted temperature means the API default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// Package vision extracts device identity from photos via the Anthropic
// vision API and validates the structured reply at the boundary.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/model"
	"github.com/medassist/device-assistant/pkg/anthropic"
)

const extractionPrompt = `Analyze this medical device image and extract device information.

Return ONLY a valid JSON object with these exact fields:
{
    "manufacturer": "<manufacturer name or null if not visible>",
    "model_number": "<model number/identifier or null if not readable>",
    "manufacturer_confidence": <float 0.0-1.0 indicating confidence in manufacturer identification>,
    "model_number_confidence": <float 0.0-1.0 indicating confidence in model number identification>,
    "error_code": "<ERROR_NONE if successful, ERROR_UNCLEAR_IMAGE if image is blurry/unreadable, ERROR_NO_DEVICE if no device visible, ERROR_PARTIAL_INFO if only some info readable>",
    "error_string": "<empty string if no error, otherwise brief description of the issue>",
    "suggestion": "<empty string if no error, otherwise actionable suggestion for the user>"
}

Rules:
- Return ONLY the JSON, no other text
- manufacturer_confidence: Rate 0.0-1.0 based on how clearly you can read/identify the manufacturer name
- model_number_confidence: Rate 0.0-1.0 based on how clearly you can read/identify the model number
- Each confidence score should be evaluated INDEPENDENTLY
- model_number should contain alphanumeric identifiers (e.g., "8015", "B650", "AS50")
- If image is unclear, set appropriate error_code and provide helpful suggestion
- Be concise in error_string and suggestion fields`

// Extractor calls the vision service and normalizes its reply.
type Extractor struct {
	client    anthropic.Client
	modelName string
	maxTokens int64
}

// NewExtractor creates an Extractor using the given Anthropic model.
func NewExtractor(client anthropic.Client, modelName string, maxTokens int64) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Extractor{client: client, modelName: modelName, maxTokens: maxTokens}
}

// Extract analyzes one device image. Service failures produce an
// ERROR_API_FAILURE result alongside the error so the caller can surface a
// recoverable warning and invite manual entry; a result is always returned.
func (e *Extractor) Extract(ctx context.Context, imageData []byte, mediaType string) (model.ExtractionResult, error) {
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.modelName,
		MaxTokens: e.maxTokens,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: extractionPrompt,
			Image: &anthropic.ImagePart{
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(imageData),
			},
		}},
	})
	if err != nil {
		return model.ExtractionResult{
			ErrorCode:   model.ExtractionErrorAPIFailure,
			ErrorString: "failed to reach the image analysis service",
			Suggestion:  "Please try again later, or enter the device details manually.",
		}, err
	}

	return ParseExtraction(resp.Text), nil
}

// rawExtraction is the untrusted wire shape. Fields are typed loosely so one
// malformed field degrades to absent instead of failing the whole reply.
type rawExtraction struct {
	Manufacturer           any    `json:"manufacturer"`
	ModelNumber            any    `json:"model_number"`
	ManufacturerConfidence any    `json:"manufacturer_confidence"`
	ModelNumberConfidence  any    `json:"model_number_confidence"`
	ErrorCode              string `json:"error_code"`
	ErrorString            string `json:"error_string"`
	Suggestion             string `json:"suggestion"`
}

// ParseExtraction validates and coerces the model's JSON reply, failing
// closed: unparseable replies become ERROR_PARSE_FAILURE, malformed fields
// become absent/zero-confidence.
func ParseExtraction(text string) model.ExtractionResult {
	var raw rawExtraction
	if err := json.Unmarshal([]byte(StripFences(text)), &raw); err != nil {
		zap.L().Warn("unparseable extraction reply", zap.Error(err))
		return model.ExtractionResult{
			ErrorCode:   model.ExtractionErrorParseFailure,
			ErrorString: "could not parse the image analysis reply",
			Suggestion:  "Please try again with a clearer image.",
		}
	}

	result := model.ExtractionResult{
		Manufacturer:           coerceField(raw.Manufacturer),
		Model:                  coerceField(raw.ModelNumber),
		ManufacturerConfidence: coerceConfidence(raw.ManufacturerConfidence),
		ModelConfidence:        coerceConfidence(raw.ModelNumberConfidence),
		ErrorCode:              model.ExtractionErrorCode(raw.ErrorCode),
		ErrorString:            raw.ErrorString,
		Suggestion:             raw.Suggestion,
	}
	if !result.ErrorCode.Valid() {
		result.ErrorCode = model.ExtractionErrorNone
	}
	return result
}

// StripFences removes a markdown code fence wrapper (``` or ```json) that
// models sometimes emit around JSON.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	parts := strings.SplitN(text, "```", 3)
	if len(parts) < 2 {
		return text
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

func coerceField(v any) model.Field {
	s, ok := v.(string)
	if !ok {
		return model.Field{}
	}
	return model.NewField(strings.TrimSpace(s))
}

func coerceConfidence(v any) float64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/device-assistant/internal/model"
	"github.com/medassist/device-assistant/pkg/anthropic"
)

type stubClient struct {
	resp anthropic.MessageResponse
	err  error
	got  anthropic.MessageRequest
}

func (s *stubClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &s.resp, nil
}

func TestExtractSendsImage(t *testing.T) {
	t.Parallel()

	client := &stubClient{resp: anthropic.MessageResponse{
		Text: `{"manufacturer":"Dräger","model_number":"Apollo","manufacturer_confidence":0.95,"model_number_confidence":0.87,"error_code":"ERROR_NONE","error_string":"","suggestion":""}`,
	}}
	e := NewExtractor(client, "vision-model", 1024)

	got, err := e.Extract(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)

	require.Len(t, client.got.Messages, 1)
	require.NotNil(t, client.got.Messages[0].Image)
	assert.Equal(t, "image/jpeg", client.got.Messages[0].Image.MediaType)
	assert.Equal(t, "/9g=", client.got.Messages[0].Image.Data)

	assert.Equal(t, "Dräger", got.Manufacturer.Value)
	assert.Equal(t, "Apollo", got.Model.Value)
	assert.Equal(t, 0.95, got.ManufacturerConfidence)
	assert.Equal(t, model.ExtractionErrorNone, got.ErrorCode)
}

func TestExtractAPIFailure(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&stubClient{err: assert.AnError}, "vision-model", 1024)

	got, err := e.Extract(context.Background(), []byte("img"), "image/png")
	assert.Error(t, err)
	assert.Equal(t, model.ExtractionErrorAPIFailure, got.ErrorCode)
	assert.NotEmpty(t, got.Suggestion, "user still gets a recoverable result")
}

func TestParseExtraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want model.ExtractionResult
	}{
		{
			name: "clean reply",
			text: `{"manufacturer":"GE","model_number":"B650","manufacturer_confidence":0.9,"model_number_confidence":0.8,"error_code":"ERROR_NONE"}`,
			want: model.ExtractionResult{
				Manufacturer:           model.NewField("GE"),
				Model:                  model.NewField("B650"),
				ManufacturerConfidence: 0.9,
				ModelConfidence:        0.8,
				ErrorCode:              model.ExtractionErrorNone,
			},
		},
		{
			name: "fenced reply",
			text: "```json\n{\"manufacturer\":\"Baxter\",\"model_number\":\"AS50\",\"manufacturer_confidence\":1,\"model_number_confidence\":1,\"error_code\":\"ERROR_NONE\"}\n```",
			want: model.ExtractionResult{
				Manufacturer:           model.NewField("Baxter"),
				Model:                  model.NewField("AS50"),
				ManufacturerConfidence: 1,
				ModelConfidence:        1,
				ErrorCode:              model.ExtractionErrorNone,
			},
		},
		{
			name: "null fields become absent",
			text: `{"manufacturer":null,"model_number":null,"manufacturer_confidence":0.1,"model_number_confidence":null,"error_code":"ERROR_UNCLEAR_IMAGE","error_string":"blurry","suggestion":"Retake the photo closer to the label."}`,
			want: model.ExtractionResult{
				ManufacturerConfidence: 0.1,
				ErrorCode:              model.ExtractionErrorUnclearImage,
				ErrorString:            "blurry",
				Suggestion:             "Retake the photo closer to the label.",
			},
		},
		{
			name: "confidence out of range clamps",
			text: `{"manufacturer":"GE","model_number":"B650","manufacturer_confidence":1.7,"model_number_confidence":-0.5,"error_code":"ERROR_NONE"}`,
			want: model.ExtractionResult{
				Manufacturer:           model.NewField("GE"),
				Model:                  model.NewField("B650"),
				ManufacturerConfidence: 1,
				ModelConfidence:        0,
				ErrorCode:              model.ExtractionErrorNone,
			},
		},
		{
			name: "wrong field types degrade",
			text: `{"manufacturer":42,"model_number":["B650"],"manufacturer_confidence":"high","model_number_confidence":0.8,"error_code":"ERROR_NONE"}`,
			want: model.ExtractionResult{
				ModelConfidence: 0.8,
				ErrorCode:       model.ExtractionErrorNone,
			},
		},
		{
			name: "unknown error code normalizes",
			text: `{"manufacturer":"GE","model_number":"B650","manufacturer_confidence":0.9,"model_number_confidence":0.9,"error_code":"ERROR_SOMETHING_NEW"}`,
			want: model.ExtractionResult{
				Manufacturer:           model.NewField("GE"),
				Model:                  model.NewField("B650"),
				ManufacturerConfidence: 0.9,
				ModelConfidence:        0.9,
				ErrorCode:              model.ExtractionErrorNone,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseExtraction(tt.text))
		})
	}
}

func TestParseExtractionUnparseable(t *testing.T) {
	t.Parallel()

	got := ParseExtraction("I could not find a device in this image.")
	assert.Equal(t, model.ExtractionErrorParseFailure, got.ErrorCode)
	assert.False(t, got.Manufacturer.Present)
	assert.Zero(t, got.ManufacturerConfidence)
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripFences(tt.in))
	}
}

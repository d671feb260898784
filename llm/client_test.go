package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go-openimage"
)

const testEndpoint = "https://llm.example/v1/chat"

func newTestClient(t *testing.T, responder httpmock.Responder) *Client {
	t.Helper()
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, testEndpoint, responder)
	return New(Config{
		Endpoint:   testEndpoint,
		APIKey:     "secret",
		PipelineID: "pipe_1",
		HTTPClient: &http.Client{Transport: mt},
	})
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	}
}

func TestClassify_TextPrompt(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "pipe_1", body["pipeline_id"])
		assert.InDelta(t, 0.7, body["temperature"], 1e-9)
		assert.NotContains(t, body, "model")
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 1)
		assert.Equal(t, "Is Ada Lovelace male or female?", msgs[0].(map[string]any)["content"])
		return httpmock.NewJsonResponse(http.StatusOK, chatReply("female"))
	})

	got, err := c.Classify(context.Background(), "Is Ada Lovelace male or female?", nil)
	require.NoError(t, err)
	assert.Equal(t, "female", got)
}

func TestClassify_ImageParts(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var raw struct {
			Messages []struct {
				Content []part `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
		require.Len(t, raw.Messages, 1)
		parts := raw.Messages[0].Content
		require.Len(t, parts, 2)
		assert.Equal(t, "text", parts[0].Type)
		assert.Equal(t, "image_url", parts[1].Type)
		assert.Equal(t, "data:image/jpeg;base64,AAAA", parts[1].ImageURL.URL)
		return httpmock.NewJsonResponse(http.StatusOK, chatReply("male"))
	})

	got, err := c.Classify(context.Background(), "gender?", []openimage.ImageInput{
		{URL: "data:image/jpeg;base64,AAAA", MIMEType: "image/jpeg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "male", got)
}

func TestClassify_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		empty     bool
	}{
		{name: "server error", responder: httpmock.NewStringResponder(http.StatusInternalServerError, "boom")},
		{name: "malformed", responder: httpmock.NewStringResponder(http.StatusOK, "not json")},
		{name: "no choices", responder: httpmock.NewStringResponder(http.StatusOK, `{"choices": []}`), empty: true},
		{name: "empty content", responder: httpmock.NewStringResponder(http.StatusOK, `{"choices": [{"message": {"content": ""}}]}`), empty: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTestClient(t, tc.responder).Classify(context.Background(), "p", nil)
			require.Error(t, err)
			if tc.empty {
				assert.ErrorIs(t, err, ErrEmptyReply)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	assert.Equal(t, DefaultEndpoint, c.cfg.Endpoint)
	assert.InDelta(t, 0.7, c.cfg.Temperature, 1e-9)
	assert.Same(t, http.DefaultClient, c.cfg.HTTPClient)
}

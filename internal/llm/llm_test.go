package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/openaix"
)

type chatTransport struct {
	status       int
	content      string
	refusal      string
	finishReason string
	calls        int
	lastBody     map[string]any
}

func (f *chatTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	raw, _ := io.ReadAll(req.Body)
	_ = json.Unmarshal(raw, &f.lastBody)

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	var body []byte
	if status != http.StatusOK {
		body, _ = json.Marshal(map[string]any{
			"error": map[string]any{"message": "upstream", "type": "server_error"},
		})
	} else {
		finish := f.finishReason
		if finish == "" {
			finish = "stop"
		}
		var refusal any
		if f.refusal != "" {
			refusal = f.refusal
		}
		body, _ = json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-test",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": finish,
				"message": map[string]any{
					"role":    "assistant",
					"content": f.content,
					"refusal": refusal,
				},
			}},
			"usage": map[string]any{
				"prompt_tokens":             120,
				"completion_tokens":         30,
				"total_tokens":              150,
				"prompt_tokens_details":     map[string]any{"cached_tokens": 100},
				"completion_tokens_details": map[string]any{"reasoning_tokens": 7},
			},
		})
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(string(body))),
		Request:    req,
	}, nil
}

func newTestInferencer(t *testing.T, tr http.RoundTripper) *OpenAIInferencer {
	t.Helper()
	client, err := openaix.NewClient(config.LLMConfig{APIKey: "sk-test"},
		option.WithHTTPClient(&http.Client{Transport: tr}),
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)
	prompts, err := DefaultPrompts()
	require.NoError(t, err)
	inf, err := NewOpenAIInferencer(client, "gpt-test", prompts)
	require.NoError(t, err)
	return inf
}

func views() (domain.LLMProductView, []domain.LLMProductView) {
	anchor := domain.LLMProductView{ID: "p1", Description: "linen shirt", Tags: []string{}}
	cands := []domain.LLMProductView{
		{ID: "p2", Description: "linen trousers", Tags: []string{"summer"}},
		{ID: "p3", Description: "straw hat", Tags: []string{}},
	}
	return anchor, cands
}

const validPatch = `{"edges":[
 {"edge_type":"COMPLEMENTS","from_id":"p1","to_id":"p2","notes":"same fabric","edge_props":{"signals":["fabric"],"strength":"strong"}},
 {"edge_type":"PAIRS_WITH","from_id":"p2","to_id":"p3","notes":null,"edge_props":{"signals":[],"strength":"weak"}}
]}`

func TestInferEdgesDecodesPatches(t *testing.T) {
	tr := &chatTransport{content: validPatch}
	inf := newTestInferencer(t, tr)
	anchor, cands := views()

	res, err := inf.InferEdges(context.Background(), anchor, cands)
	require.NoError(t, err)
	require.Len(t, res.Patches, 2)
	assert.Equal(t, "COMPLEMENTS", res.Patches[0].EdgeType)
	require.NotNil(t, res.Patches[0].Notes)
	assert.Equal(t, "same fabric", *res.Patches[0].Notes)
	assert.Nil(t, res.Patches[1].Notes)
	assert.Equal(t, "weak", res.Patches[1].EdgeProps["strength"])

	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "chatcmpl-1", res.Metadata.ResponseID)
	assert.EqualValues(t, 150, res.Metadata.TotalTokens)
	assert.EqualValues(t, 100, res.Metadata.CachedTokens)
	assert.EqualValues(t, 7, res.Metadata.ReasoningTokens)
	assert.Equal(t, SystemPromptID, res.Metadata.SystemPromptID)
	assert.Len(t, res.Metadata.UserPromptHash, 16)
}

func TestInferEdgesSendsStrictSchema(t *testing.T) {
	tr := &chatTransport{content: `{"edges":[]}`}
	inf := newTestInferencer(t, tr)
	anchor, cands := views()

	res, err := inf.InferEdges(context.Background(), anchor, cands)
	require.NoError(t, err)
	assert.Empty(t, res.Patches)

	rf, ok := tr.lastBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, SchemaName, js["name"])
	assert.Equal(t, true, js["strict"])

	msgs := tr.lastBody["messages"].([]any)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, `"id":"p1"`)
	assert.Contains(t, user, `"id":"p3"`)
}

func TestInferEdgesRejectsSchemaViolation(t *testing.T) {
	cases := map[string]string{
		"not json":       `edges: none`,
		"unknown type":   `{"edges":[{"edge_type":"LOOKS_LIKE","from_id":"p1","to_id":"p2","notes":null,"edge_props":{"signals":[],"strength":"weak"}}]}`,
		"missing field":  `{"edges":[{"edge_type":"SIMILAR_TO","from_id":"p1","notes":null,"edge_props":{"signals":[],"strength":"weak"}}]}`,
		"extra property": `{"edges":[],"extra":true}`,
		"wrong envelope": `[]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			inf := newTestInferencer(t, &chatTransport{content: content})
			anchor, cands := views()
			_, err := inf.InferEdges(context.Background(), anchor, cands)
			require.Error(t, err)
			assert.True(t, errkind.Is(err, errkind.KindSchemaViolation), "got %v", err)
		})
	}
}

func TestInferEdgesRefusalAndTruncation(t *testing.T) {
	anchor, cands := views()

	inf := newTestInferencer(t, &chatTransport{refusal: "cannot help"})
	_, err := inf.InferEdges(context.Background(), anchor, cands)
	assert.True(t, errkind.Is(err, errkind.KindSchemaViolation))

	inf = newTestInferencer(t, &chatTransport{content: `{"edges":[`, finishReason: "length"})
	_, err = inf.InferEdges(context.Background(), anchor, cands)
	assert.True(t, errkind.Is(err, errkind.KindSchemaViolation))
}

func TestInferEdgesServerErrorIsUnavailable(t *testing.T) {
	inf := newTestInferencer(t, &chatTransport{status: http.StatusBadGateway})
	anchor, cands := views()
	_, err := inf.InferEdges(context.Background(), anchor, cands)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindUnavailable))
}

func TestRenderFillsPlaceholders(t *testing.T) {
	p, err := DefaultPrompts()
	require.NoError(t, err)
	anchor, _ := views()
	out, err := p.Render(anchor, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "{ANCHOR_JSON}")
	assert.NotContains(t, out, "{CANDIDATES_JSON}")
	assert.Contains(t, out, "[]")

	_, err = LoadPrompts("nope.v0", UserPromptID)
	assert.Error(t, err)
	assert.Equal(t, HashPrompt("x"), HashPrompt("x"))
}

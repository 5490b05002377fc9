// Package llm asks a chat model which anchor and candidate pairs deserve a
// recommendation edge. Output is constrained by a strict JSON schema and
// validated again locally; anything that does not conform is rejected whole.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/openaix"
)

type EdgeInferencer interface {
	InferEdges(ctx context.Context, anchor domain.LLMProductView, candidates []domain.LLMProductView) (*Result, error)
}

type Result struct {
	Patches  []domain.EdgePatch
	Metadata Metadata
}

// Metadata describes one model call for cost and prompt tracking.
type Metadata struct {
	ResponseID       string `json:"response_id"`
	Model            string `json:"model"`
	Status           string `json:"status"`
	SystemPromptID   string `json:"system_prompt_id"`
	UserPromptID     string `json:"user_prompt_id"`
	SystemPromptHash string `json:"system_prompt_hash"`
	UserPromptHash   string `json:"user_prompt_hash"`
	InputTokens      int64  `json:"input_tokens"`
	OutputTokens     int64  `json:"output_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	CachedTokens     int64  `json:"cached_tokens"`
	ReasoningTokens  int64  `json:"reasoning_tokens"`
	ServiceTier      string `json:"service_tier,omitempty"`
}

type OpenAIInferencer struct {
	client   *openai.Client
	model    string
	prompts  Prompts
	schema   map[string]any
	resolved *jsonschema.Resolved
}

var _ EdgeInferencer = (*OpenAIInferencer)(nil)

func NewOpenAIInferencer(client *openai.Client, model string, prompts Prompts) (*OpenAIInferencer, error) {
	if client == nil {
		return nil, errors.New("llm: openai client required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("llm: model required")
	}
	if prompts.System == "" || prompts.UserTemplate == "" {
		return nil, errors.New("llm: prompts required")
	}
	var wire map[string]any
	if err := json.Unmarshal(patchSchemaJSON, &wire); err != nil {
		return nil, fmt.Errorf("llm: decode patch schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(patchSchemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("llm: parse patch schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("llm: resolve patch schema: %w", err)
	}
	return &OpenAIInferencer{
		client:   client,
		model:    model,
		prompts:  prompts,
		schema:   wire,
		resolved: resolved,
	}, nil
}

func (o *OpenAIInferencer) Model() string { return o.model }

// InferEdges makes exactly one model call.
func (o *OpenAIInferencer) InferEdges(ctx context.Context, anchor domain.LLMProductView, candidates []domain.LLMProductView) (*Result, error) {
	const op = "llm.infer_edges"
	userPrompt, err := o.prompts.Render(anchor, candidates)
	if err != nil {
		return nil, errkind.Internal(op, err)
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.prompts.System),
			openai.UserMessage(userPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        SchemaName,
					Description: param.NewOpt("Recommendation edges between the anchor and candidate products."),
					Schema:      o.schema,
					Strict:      param.NewOpt(true),
				},
			},
		},
	})
	if err != nil {
		return nil, openaix.Classify(op, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errkind.SchemaViolation(op, "model returned no choices", nil)
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, errkind.SchemaViolation(op, "model refused: "+choice.Message.Refusal, nil)
	}
	if choice.FinishReason != "stop" {
		return nil, errkind.SchemaViolation(op, "unexpected finish reason: "+choice.FinishReason, nil)
	}

	patches, err := o.decode(choice.Message.Content)
	if err != nil {
		return nil, err
	}

	meta := Metadata{
		ResponseID:       resp.ID,
		Model:            resp.Model,
		Status:           choice.FinishReason,
		SystemPromptID:   o.prompts.SystemID,
		UserPromptID:     o.prompts.UserID,
		SystemPromptHash: HashPrompt(o.prompts.System),
		UserPromptHash:   HashPrompt(userPrompt),
		InputTokens:      resp.Usage.PromptTokens,
		OutputTokens:     resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		CachedTokens:     resp.Usage.PromptTokensDetails.CachedTokens,
		ReasoningTokens:  resp.Usage.CompletionTokensDetails.ReasoningTokens,
		ServiceTier:      string(resp.ServiceTier),
	}
	return &Result{Patches: patches, Metadata: meta}, nil
}

type wirePatch struct {
	EdgeType  string         `json:"edge_type"`
	FromID    string         `json:"from_id"`
	ToID      string         `json:"to_id"`
	Notes     *string        `json:"notes"`
	EdgeProps map[string]any `json:"edge_props"`
}

// decode validates raw model output against the patch schema before mapping it.
func (o *OpenAIInferencer) decode(content string) ([]domain.EdgePatch, error) {
	const op = "llm.decode"
	var instance any
	if err := json.Unmarshal([]byte(content), &instance); err != nil {
		return nil, errkind.SchemaViolation(op, "model output is not JSON", err)
	}
	if err := o.resolved.Validate(instance); err != nil {
		return nil, errkind.SchemaViolation(op, "model output violates patch schema", err)
	}
	var envelope struct {
		Edges []wirePatch `json:"edges"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, errkind.SchemaViolation(op, "decode edges", err)
	}
	patches := make([]domain.EdgePatch, 0, len(envelope.Edges))
	for _, e := range envelope.Edges {
		patches = append(patches, domain.EdgePatch{
			EdgeType:  e.EdgeType,
			FromID:    e.FromID,
			ToID:      e.ToID,
			Notes:     e.Notes,
			EdgeProps: e.EdgeProps,
		})
	}
	return patches, nil
}

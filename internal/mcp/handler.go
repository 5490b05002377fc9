package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

func (s *Server) handle(ctx context.Context, msg *Message) *Message {
	switch {
	case msg.IsNotification():
		s.log.Debug("mcp notification", "method", msg.Method)
		return nil
	case !msg.IsRequest():
		// A response to a request we never send.
		return nil
	case msg.JSONRPC != "2.0":
		return errorMessage(msg.ID, InvalidRequest, `jsonrpc must be "2.0"`)
	}

	s.log.Debug("mcp request", "method", msg.Method, "id", msg.ID)
	var (
		result any
		err    error
	)
	switch msg.Method {
	case "initialize":
		result = s.initialize()
	case "ping":
		result = struct{}{}
	case "tools/list":
		result = map[string]any{"tools": s.toolDefs()}
	case "tools/call":
		result, err = s.callTool(ctx, msg.Params)
	case "prompts/list":
		result = map[string]any{"prompts": s.promptDefs()}
	case "prompts/get":
		result, err = s.getPrompt(msg.Params)
	default:
		return errorMessage(msg.ID, MethodNotFound, "method not found: "+msg.Method)
	}
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return errorMessage(msg.ID, rpcErr.Code, rpcErr.Message)
		}
		s.log.Error("mcp request failed", "method", msg.Method, "error", err)
		return errorMessage(msg.ID, InternalError, "internal error")
	}
	return resultMessage(msg.ID, result)
}

func (s *Server) initialize() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":   map[string]any{"listChanged": false},
			"prompts": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{"name": ServerName, "version": s.version},
	}
}

func invalidParams(format string, args ...any) error {
	return &RPCError{Code: InvalidParams, Message: fmt.Sprintf(format, args...)}
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (*CallResult, error) {
	var p callParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams("tools/call params: %v", err)
	}
	t, ok := s.tools[p.Name]
	if !ok {
		return nil, invalidParams("unknown tool: %s", p.Name)
	}
	args := p.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	var instance map[string]any
	if err := json.Unmarshal(args, &instance); err != nil {
		return nil, invalidParams("%s arguments must be an object", p.Name)
	}
	if err := t.schema.Validate(instance); err != nil {
		return nil, invalidParams("%s arguments: %v", p.Name, err)
	}

	s.log.Info("mcp tool call", "tool", p.Name)
	out, err := t.call(ctx, args)
	if err != nil {
		return &CallResult{Content: []Content{{Type: "text", Text: s.publicMessage(p.Name, err)}}, IsError: true}, nil
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", p.Name, err)
	}
	return &CallResult{Content: []Content{{Type: "text", Text: string(body)}}}, nil
}

// publicMessage hides dependency and internal failure details from the client.
func (s *Server) publicMessage(tool string, err error) string {
	switch errkind.KindOf(err) {
	case errkind.KindNotFound, errkind.KindInvalidInput:
		var ke *errkind.Error
		if errors.As(err, &ke) && ke.Message != "" {
			return ke.Message
		}
		return err.Error()
	case errkind.KindUnavailable:
		s.log.Warn("mcp tool dependency unavailable", "tool", tool, "error", err)
		return "service temporarily unavailable"
	default:
		s.log.Error("mcp tool failed", "tool", tool, "error", err)
		return "internal error"
	}
}

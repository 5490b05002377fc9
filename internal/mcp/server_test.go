package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
	"github.com/abdelatifsd/Adjacent/internal/recommend"
)

type fakeProducts map[string]domain.Product

func (f fakeProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, errkind.NotFound("graph.get_product", "product not found: "+id)
	}
	return &p, nil
}

type fakeRecs struct {
	reqs []recommend.Request
	err  error
}

func (f *fakeRecs) MaxTopK() int { return 100 }

func (f *fakeRecs) Query(_ context.Context, req recommend.Request) (*recommend.QueryResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &recommend.QueryResult{
		AnchorID:        req.AnchorID,
		Recommendations: []recommend.Recommendation{{ProductID: "p2", Source: recommend.SourceVector}},
		FromVector:      1,
		InferenceStatus: recommend.InferenceSkipped,
		TraceID:         req.TraceID,
	}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeRecs) {
	t.Helper()
	recs := &fakeRecs{}
	s, err := NewServer(fakeProducts{"p1": {ID: "p1", Title: "Trail shoe", Description: "light"}}, recs, logger.NewNop(), "test")
	require.NoError(t, err)
	return s, recs
}

type rpcReply struct {
	ID     any             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func roundTrip(t *testing.T, s *Server, line string) rpcReply {
	t.Helper()
	msg := s.HandleLine(context.Background(), []byte(line))
	require.NotNil(t, msg)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var out rpcReply
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func callResult(t *testing.T, r rpcReply) CallResult {
	t.Helper()
	require.Nil(t, r.Error)
	var cr CallResult
	require.NoError(t, json.Unmarshal(r.Result, &cr))
	require.Len(t, cr.Content, 1)
	return cr
}

func TestInitializeAdvertisesToolsAndPrompts(t *testing.T) {
	s, _ := newTestServer(t)
	r := roundTrip(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":{"name":"x"}}}`)
	require.Nil(t, r.Error)

	var init struct {
		ProtocolVersion string                     `json:"protocolVersion"`
		Capabilities    map[string]json.RawMessage `json:"capabilities"`
		ServerInfo      struct{ Name string }      `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(r.Result, &init))
	assert.Equal(t, ProtocolVersion, init.ProtocolVersion)
	assert.Equal(t, ServerName, init.ServerInfo.Name)
	assert.Contains(t, init.Capabilities, "tools")
	assert.Contains(t, init.Capabilities, "prompts")
}

func TestToolsListNamesBothTools(t *testing.T) {
	s, _ := newTestServer(t)
	r := roundTrip(t, s, `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)
	require.Nil(t, r.Error)
	assert.Equal(t, "a", r.ID)

	var list struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(r.Result, &list))
	require.Len(t, list.Tools, 2)
	assert.Equal(t, "get_product", list.Tools[0].Name)
	assert.Equal(t, "get_product_recommendations", list.Tools[1].Name)
	assert.Equal(t, "object", list.Tools[1].InputSchema["type"])
	assert.Equal(t, []any{"product_id"}, list.Tools[1].InputSchema["required"])
}

func TestGetProductReturnsStoredProduct(t *testing.T) {
	s, _ := newTestServer(t)
	cr := callResult(t, roundTrip(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_product","arguments":{"product_id":"p1"}}}`))
	assert.False(t, cr.IsError)

	var p domain.Product
	require.NoError(t, json.Unmarshal([]byte(cr.Content[0].Text), &p))
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Trail shoe", p.Title)
}

func TestGetProductNotFoundIsToolError(t *testing.T) {
	s, _ := newTestServer(t)
	cr := callResult(t, roundTrip(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_product","arguments":{"product_id":"nope"}}}`))
	assert.True(t, cr.IsError)
	assert.Equal(t, "product not found: nope", cr.Content[0].Text)
}

func TestRecommendationsClampTopKAndSkipInference(t *testing.T) {
	cases := []struct {
		args string
		want int
	}{
		{`{"product_id":"p1","top_k":500}`, 100},
		{`{"product_id":"p1","top_k":0}`, 1},
		{`{"product_id":"p1","top_k":-4}`, 1},
		{`{"product_id":"p1","top_k":7}`, 7},
		{`{"product_id":"p1"}`, 0},
	}
	for _, tc := range cases {
		s, recs := newTestServer(t)
		line := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"get_product_recommendations","arguments":` + tc.args + `}}`
		cr := callResult(t, roundTrip(t, s, line))
		require.False(t, cr.IsError, tc.args)
		require.Len(t, recs.reqs, 1)
		assert.Equal(t, tc.want, recs.reqs[0].TopK, tc.args)
		assert.True(t, recs.reqs[0].SkipInference)
		assert.True(t, strings.HasPrefix(recs.reqs[0].TraceID, "mcp-"))

		var res recommend.QueryResult
		require.NoError(t, json.Unmarshal([]byte(cr.Content[0].Text), &res))
		assert.Equal(t, "p1", res.AnchorID)
		assert.Equal(t, recommend.InferenceSkipped, res.InferenceStatus)
	}
}

func TestRecommendationsHideDependencyErrors(t *testing.T) {
	s, recs := newTestServer(t)
	recs.err = errkind.Unavailable("graph.get_neighbors", assert.AnError)
	cr := callResult(t, roundTrip(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"get_product_recommendations","arguments":{"product_id":"p1"}}}`))
	assert.True(t, cr.IsError)
	assert.Equal(t, "service temporarily unavailable", cr.Content[0].Text)
}

func TestToolCallArgumentErrors(t *testing.T) {
	s, _ := newTestServer(t)

	r := roundTrip(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"get_product","arguments":{}}}`)
	require.NotNil(t, r.Error)
	assert.Equal(t, InvalidParams, r.Error.Code)

	r = roundTrip(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"get_product_recommendations","arguments":{"product_id":"p1","top_k":"ten"}}}`)
	require.NotNil(t, r.Error)
	assert.Equal(t, InvalidParams, r.Error.Code)

	r = roundTrip(t, s, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"delete_graph"}}`)
	require.NotNil(t, r.Error)
	assert.Equal(t, InvalidParams, r.Error.Code)
	assert.Contains(t, r.Error.Message, "delete_graph")
}

func TestFindRecommendationsPrompt(t *testing.T) {
	s, _ := newTestServer(t)

	r := roundTrip(t, s, `{"jsonrpc":"2.0","id":9,"method":"prompts/list"}`)
	require.Nil(t, r.Error)
	assert.Contains(t, string(r.Result), `"find_recommendations"`)

	r = roundTrip(t, s, `{"jsonrpc":"2.0","id":10,"method":"prompts/get","params":{"name":"find_recommendations","arguments":{"product_id":"sku_9"}}}`)
	require.Nil(t, r.Error)
	var got GetPromptResult
	require.NoError(t, json.Unmarshal(r.Result, &got))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content.Text, "product sku_9")
	assert.Contains(t, got.Messages[0].Content.Text, "get_product_recommendations")

	r = roundTrip(t, s, `{"jsonrpc":"2.0","id":11,"method":"prompts/get","params":{"name":"find_recommendations","arguments":{}}}`)
	require.NotNil(t, r.Error)
	assert.Equal(t, InvalidParams, r.Error.Code)
}

func TestUnknownMethodAndBadJSON(t *testing.T) {
	s, _ := newTestServer(t)

	r := roundTrip(t, s, `{"jsonrpc":"2.0","id":12,"method":"resources/list"}`)
	require.NotNil(t, r.Error)
	assert.Equal(t, MethodNotFound, r.Error.Code)

	r = roundTrip(t, s, `{not json`)
	require.NotNil(t, r.Error)
	assert.Equal(t, ParseError, r.Error.Code)

	assert.Nil(t, s.HandleLine(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
}

func TestServeWritesOneLinePerRequest(t *testing.T) {
	s, _ := newTestServer(t)
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n") + "\n"
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		var r rpcReply
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		assert.Nil(t, r.Error)
		assert.EqualValues(t, i+1, r.ID)
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, &fakeRecs{}, logger.NewNop(), "")
	assert.Error(t, err)
}

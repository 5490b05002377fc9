package openaix

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

type statusTransport struct {
	status int
	body   string
}

func (s statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: s.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Request:    req,
	}, nil
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(config.LLMConfig{})
	require.Error(t, err)
}

func TestClassifyAPIErrors(t *testing.T) {
	cases := []struct {
		status int
		want   errkind.Kind
	}{
		{http.StatusTooManyRequests, errkind.KindUnavailable},
		{http.StatusBadGateway, errkind.KindUnavailable},
		{http.StatusBadRequest, errkind.KindInternal},
		{http.StatusUnauthorized, errkind.KindInternal},
	}
	for _, tc := range cases {
		client, err := NewClient(config.LLMConfig{APIKey: "sk-test"},
			option.WithHTTPClient(&http.Client{Transport: statusTransport{
				status: tc.status,
				body:   `{"error":{"message":"nope","type":"x","code":"y"}}`,
			}}),
			option.WithMaxRetries(0),
		)
		require.NoError(t, err)

		_, err = client.Embeddings.New(context.Background(), openai.EmbeddingNewParams{
			Model: "text-embedding-3-small",
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{"x"}},
		})
		require.Error(t, err)
		assert.Equal(t, tc.want, errkind.KindOf(Classify("op", err)), "status=%d", tc.status)
	}
}

func TestClassifyPassesThroughKinds(t *testing.T) {
	in := errkind.SchemaViolation("llm", "bad", nil)
	assert.Same(t, in, Classify("other", in))
	assert.Equal(t, errkind.KindUnavailable, errkind.KindOf(Classify("op", context.DeadlineExceeded)))
	assert.Equal(t, errkind.KindInternal, errkind.KindOf(Classify("op", errors.New("x"))))
	assert.Nil(t, Classify("op", nil))
}

package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abdelatifsd/Adjacent/internal/config"
)

func TestClampBackoff(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, clampBackoff(0, 0, 1))
	assert.Equal(t, time.Second, clampBackoff(250*time.Millisecond, 5*time.Second, 3))
	assert.Equal(t, 5*time.Second, clampBackoff(250*time.Millisecond, 5*time.Second, 10))
}

func TestIsRetryableRPC(t *testing.T) {
	assert.False(t, isRetryableRPC(nil))
	assert.True(t, isRetryableRPC(status.Error(codes.Unavailable, "down")))
	assert.True(t, isRetryableRPC(status.Error(codes.ResourceExhausted, "slow down")))
	assert.False(t, isRetryableRPC(status.Error(codes.PermissionDenied, "no")))
	assert.True(t, isRetryableRPC(context.DeadlineExceeded))
	assert.False(t, isRetryableRPC(errors.New("boom")))
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), nil, config.TemporalConfig{})
	assert.Error(t, err)
}

func TestTLSRequiresCertAndKey(t *testing.T) {
	_, err := clientOptions(nil, config.TemporalConfig{Address: "x:7233", ClientCAPath: "/tmp/ca.pem"}, true)
	assert.Error(t, err)

	opts, err := clientOptions(nil, config.TemporalConfig{Address: "x:7233", Namespace: "ns"}, false)
	assert.NoError(t, err)
	assert.Empty(t, opts.Namespace)
	assert.Nil(t, opts.ConnectionOptions.TLS)
}

func TestSleepCtxHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

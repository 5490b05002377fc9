package redisdb

import (
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

func TestOptionsPrefersURL(t *testing.T) {
	opts, err := Options(config.RedisConfig{URL: "redis://:secret@cache:6380/2", Addr: "ignored:1"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
}

func TestOptionsFromAddr(t *testing.T) {
	opts, err := Options(config.RedisConfig{Addr: "localhost:6379", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = Options(config.RedisConfig{})
	assert.Error(t, err)

	_, err = Options(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify("op", nil))
	assert.ErrorIs(t, Classify("op", goredis.Nil), goredis.Nil)
	assert.True(t, errkind.Is(Classify("op", goredis.ErrClosed), errkind.KindUnavailable))
	assert.True(t, errkind.Is(Classify("op", errors.New("WRONGTYPE")), errkind.KindInternal))
}

// Package redisdb opens the shared go-redis client.
package redisdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

// Options resolves cfg into client options. URL takes precedence over Addr.
func Options(cfg config.RedisConfig) (*goredis.Options, error) {
	if u := strings.TrimSpace(cfg.URL); u != "" {
		opts, err := goredis.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	return &goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	}, nil
}

// NewClient dials and pings once; a failed ping closes the client.
func NewClient(ctx context.Context, log *logger.Logger, cfg config.RedisConfig) (*goredis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errkind.Unavailable("redis.ping", err)
	}
	if log != nil {
		log.Info("redis connected", "addr", opts.Addr, "db", opts.DB)
	}
	return rdb, nil
}

// Classify maps go-redis failures onto error kinds. goredis.Nil is left to callers.
func Classify(op string, err error) error {
	if err == nil || errors.Is(err, goredis.Nil) {
		return err
	}
	var ke *errkind.Error
	if errors.As(err, &ke) {
		return err
	}
	if errkind.IsTransient(err) || errors.Is(err, goredis.ErrClosed) {
		return errkind.Unavailable(op, err)
	}
	return errkind.Internal(op, err)
}

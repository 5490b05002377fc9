package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abdelatifsd/Adjacent/internal/platform/envutil"
)

// LokiConfig controls pushing log lines straight to a Loki push endpoint.
type LokiConfig struct {
	URL           string
	Job           string
	BatchSize     int
	FlushInterval time.Duration
	Timeout       time.Duration
}

// LokiFromEnv returns ok=false unless LOKI_ENABLED is true.
func LokiFromEnv() (LokiConfig, bool) {
	if on, _ := envutil.Bool("LOKI_ENABLED"); !on {
		return LokiConfig{}, false
	}
	cfg := LokiConfig{
		URL:           "http://localhost:3100/loki/api/v1/push",
		Job:           "adjacent",
		BatchSize:     10,
		FlushInterval: 5 * time.Second,
		Timeout:       5 * time.Second,
	}
	envutil.SetString(&cfg.URL, "LOKI_URL")
	envutil.SetString(&cfg.Job, "LOKI_JOB")
	envutil.SetInt(&cfg.BatchSize, "LOKI_BATCH_SIZE")
	return cfg, true
}

type lokiEntry struct {
	ts    time.Time
	level string
	line  string
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// lokiPusher batches lines and posts them from one goroutine. Sync flushes inline.
type lokiPusher struct {
	cfg    LokiConfig
	client *http.Client

	mu  sync.Mutex
	buf []lokiEntry

	sendMu sync.Mutex
	kick   chan struct{}
}

func newLokiPusher(cfg LokiConfig) *lokiPusher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	p := &lokiPusher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		kick:   make(chan struct{}, 1),
	}
	go p.loop()
	return p
}

func (p *lokiPusher) loop() {
	t := time.NewTicker(p.cfg.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
		case <-p.kick:
		}
		_ = p.flush()
	}
}

func (p *lokiPusher) add(e lokiEntry) {
	p.mu.Lock()
	p.buf = append(p.buf, e)
	full := len(p.buf) >= p.cfg.BatchSize
	p.mu.Unlock()
	if full {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

func (p *lokiPusher) flush() error {
	p.mu.Lock()
	batch := p.buf
	p.buf = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	byLevel := map[string]*lokiStream{}
	var streams []*lokiStream
	for _, e := range batch {
		s, ok := byLevel[e.level]
		if !ok {
			s = &lokiStream{Stream: map[string]string{"job": p.cfg.Job, "level": e.level}}
			byLevel[e.level] = s
			streams = append(streams, s)
		}
		s.Values = append(s.Values, [2]string{strconv.FormatInt(e.ts.UnixNano(), 10), e.line})
	}
	body, err := json.Marshal(map[string]any{"streams": streams})
	if err != nil {
		return err
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		// Logging through zap here would feed the batch we just dropped.
		fmt.Fprintf(os.Stderr, "loki push failed (%d lines dropped): %v\n", len(batch), err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		err := fmt.Errorf("loki push: status %d", resp.StatusCode)
		fmt.Fprintf(os.Stderr, "%v (%d lines dropped)\n", err, len(batch))
		return err
	}
	return nil
}

// lokiCore encodes entries as JSON lines and hands them to a shared pusher.
type lokiCore struct {
	zapcore.LevelEnabler
	enc    zapcore.Encoder
	pusher *lokiPusher
}

func newLokiCore(cfg LokiConfig, level zapcore.LevelEnabler) zapcore.Core {
	return &lokiCore{
		LevelEnabler: level,
		enc:          zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		pusher:       newLokiPusher(cfg),
	}
}

func (c *lokiCore) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &lokiCore{LevelEnabler: c.LevelEnabler, enc: enc, pusher: c.pusher}
}

func (c *lokiCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *lokiCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := string(bytes.TrimRight(buf.Bytes(), "\n"))
	buf.Free()
	c.pusher.add(lokiEntry{ts: ent.Time, level: ent.Level.String(), line: line})
	return nil
}

func (c *lokiCore) Sync() error { return c.pusher.flush() }

// Package mcp exposes product lookup and recommendations to Model Context
// Protocol clients over newline-delimited JSON-RPC on stdio.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
	"github.com/abdelatifsd/Adjacent/internal/recommend"
)

// ServerName is what clients see in initialize.
const ServerName = "adjacent-kg"

type ProductGetter interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Recommender is the read side of the query orchestrator.
type Recommender interface {
	Query(ctx context.Context, req recommend.Request) (*recommend.QueryResult, error)
	MaxTopK() int
}

type Server struct {
	products ProductGetter
	recs     Recommender
	log      *logger.Logger
	version  string

	tools   map[string]*tool
	order   []string
	prompts map[string]*prompt
}

func NewServer(products ProductGetter, recs Recommender, log *logger.Logger, version string) (*Server, error) {
	if products == nil || recs == nil {
		return nil, errors.New("mcp: product getter and recommender required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		products: products,
		recs:     recs,
		log:      log.With("component", "mcp"),
		version:  version,
		tools:    map[string]*tool{},
		prompts:  map[string]*prompt{},
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerPrompts()
	return s, nil
}

// Serve answers requests from r on w until r is exhausted or ctx ends.
// Nothing but protocol messages is ever written to w.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	s.log.Info("mcp server started", "version", s.version)
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("mcp server stopping", "reason", context.Cause(ctx))
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("mcp: read request: %w", err)
			}
			s.log.Info("mcp client closed input")
			return nil
		case line := <-lines:
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			resp := s.HandleLine(ctx, line)
			if resp == nil {
				continue
			}
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("mcp: write response: %w", err)
			}
		}
	}
}

// HandleLine decodes one request and returns the response to send, or nil for
// notifications and client responses.
func (s *Server) HandleLine(ctx context.Context, line []byte) *Message {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		s.log.Warn("unparseable mcp message", "error", err)
		return errorMessage(nil, ParseError, "parse error: "+err.Error())
	}
	return s.handle(ctx, &msg)
}

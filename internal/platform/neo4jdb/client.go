package neo4jdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

// Client owns the process-wide pooled driver. Callers borrow one session per
// logical operation through Read/Write; the session is always closed on return.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

type TxFunc func(tx neo4j.ManagedTransaction) (any, error)

func NewClient(ctx context.Context, log *logger.Logger, cfg config.Neo4jConfig) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, fmt.Errorf("neo4jdb: uri required")
	}
	user := strings.TrimSpace(cfg.User)
	if user == "" {
		user = "neo4j"
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	auth := neo4j.BasicAuth(user, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errkind.Unavailable("neo4jdb.verify_connectivity", err)
	}

	return &Client{
		Driver:   driver,
		Database: strings.TrimSpace(cfg.Database),
		log:      log.With("client", "Neo4jDB"),
	}, nil
}

func (c *Client) Read(ctx context.Context, op string, fn TxFunc) (any, error) {
	return c.execute(ctx, op, neo4j.AccessModeRead, fn)
}

func (c *Client) Write(ctx context.Context, op string, fn TxFunc) (any, error) {
	return c.execute(ctx, op, neo4j.AccessModeWrite, fn)
}

func (c *Client) execute(ctx context.Context, op string, mode neo4j.AccessMode, fn TxFunc) (any, error) {
	if c == nil || c.Driver == nil {
		return nil, errkind.Unavailable(op, errors.New("neo4j client not initialized"))
	}
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	var (
		out any
		err error
	)
	if mode == neo4j.AccessModeRead {
		out, err = session.ExecuteRead(ctx, neo4j.ManagedTransactionWork(fn))
	} else {
		out, err = session.ExecuteWrite(ctx, neo4j.ManagedTransactionWork(fn))
	}
	if err != nil {
		return nil, Classify(op, err)
	}
	return out, nil
}

// RunSchema executes a schema statement in an auto-commit transaction; schema
// commands cannot run inside managed transactions on every server version.
func (c *Client) RunSchema(ctx context.Context, cypher string) error {
	if c == nil || c.Driver == nil {
		return errkind.Unavailable("neo4jdb.schema", errors.New("neo4j client not initialized"))
	}
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, nil)
	if err != nil {
		return Classify("neo4jdb.schema", err)
	}
	_, err = res.Consume(ctx)
	return Classify("neo4jdb.schema", err)
}

// EnsureSchema creates the product id uniqueness constraint. Failures are logged
// and swallowed since restricted users may lack schema privileges.
func (c *Client) EnsureSchema(ctx context.Context, productLabel string) {
	stmt := fmt.Sprintf("CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (p:%s) REQUIRE p.id IS UNIQUE",
		strings.ToLower(productLabel), productLabel)
	if err := c.RunSchema(ctx, stmt); err != nil && c.log != nil {
		c.log.Warn("neo4j schema init failed (continuing)", "error", err)
	}
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

// Classify maps driver failures onto error kinds. Already-classified errors pass through.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ke *errkind.Error
	if errors.As(err, &ke) {
		return err
	}
	if neo4j.IsConnectivityError(err) || errkind.IsTransient(err) {
		return errkind.Unavailable(op, err)
	}
	return errkind.Internal(op, err)
}

package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/vbhandari/MgmtSays/internal/config"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Client wraps the Milvus SDK connection. It is constructed once at startup
// and shared; the vector store layer owns all collection-level schema logic.
type Client struct {
	Milvus client.Client
	log    *logger.Logger
}

// Connect establishes the Milvus connection.
func Connect(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", cfg.Address, err)
	}
	log := logger.New("milvus")
	log.WithField("address", cfg.Address).Info("connected to Milvus")
	return &Client{Milvus: c, log: log}, nil
}

// HealthCheck verifies the connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.Milvus == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Milvus.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// Close shuts the connection down.
func (c *Client) Close() {
	if c.Milvus != nil {
		if err := c.Milvus.Close(); err != nil {
			c.log.WithError(err).Warn("error closing Milvus connection")
		}
	}
}

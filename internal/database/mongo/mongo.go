package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vbhandari/MgmtSays/internal/config"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Client wraps the MongoDB connection and the application database handle.
type Client struct {
	Mongo    *mongo.Client
	Database *mongo.Database
}

// Connect establishes and pings the MongoDB connection.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*Client, error) {
	opts := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := c.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.New("mongo").WithField("database", cfg.Database).Info("connected to MongoDB")
	return &Client{Mongo: c, Database: c.Database(cfg.Database)}, nil
}

// Collection returns a handle to a named collection in the app database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.Database.Collection(name)
}

// HealthCheck verifies the connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.Mongo == nil {
		return fmt.Errorf("mongo client is nil")
	}
	return c.Mongo.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	if c.Mongo != nil {
		return c.Mongo.Disconnect(ctx)
	}
	return nil
}

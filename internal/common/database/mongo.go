// internal/common/database/mongo.go
package database

import (
	"context"
	"fmt"
	"time"

	"recipehub-notifier/internal/common/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoClient wraps the document store connection.
type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo creates a new client and verifies the connection with a ping.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	client, err := mongo.Connect(
		options.Client().
			ApplyURI(cfg.URI).
			SetConnectTimeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond).
			SetMaxPoolSize(uint64(cfg.MaxPoolSize)).
			SetRetryWrites(true).
			SetRetryReads(true),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeout)*time.Millisecond)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	return &MongoClient{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

// Ping tests the connection
func (c *MongoClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

// Close disconnects the client
func (c *MongoClient) Close(ctx context.Context) error {
	if c.Client != nil {
		return c.Client.Disconnect(ctx)
	}
	return nil
}

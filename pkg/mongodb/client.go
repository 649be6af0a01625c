package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// connectTimeout bounds Connect plus the initial Ping
const connectTimeout = 10 * time.Second

// Client wraps a connected MongoDB client
type Client struct {
	client *mongo.Client
}

// NewClient connects to uri and verifies the primary is reachable
func NewClient(ctx context.Context, uri string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetAppName("lotto-engine").
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &Client{client: client}, nil
}

// Database returns a handle to the named database
func (c *Client) Database(name string) *mongo.Database {
	return c.client.Database(name)
}

// Ping reports whether the server is still reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Disconnect disconnects from MongoDB
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

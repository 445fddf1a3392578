package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	DefaultDatabase    = "voxlate"
	defaultAppName     = "voxlate"
	defaultMaxPoolSize = 10
	defaultDialTimeout = 10 * time.Second
)

// Config holds the connection settings. Zero values take the defaults above.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	DialTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	return c
}

// Client owns the connection pool behind the session archive
type Client struct {
	conn     *mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects and pings the primary within config.DialTimeout
func NewClient(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("MongoDB URI is required")
	}
	config = config.withDefaults()

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetAppName(defaultAppName).
		SetMaxPoolSize(config.MaxPoolSize).
		SetServerSelectionTimeout(config.DialTimeout / 2).
		SetConnectTimeout(config.DialTimeout)

	ctx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()

	conn, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := conn.Ping(ctx, readpref.Primary()); err != nil {
		conn.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to session archive", zap.String("database", config.Database))

	return &Client{
		conn:     conn,
		Database: conn.Database(config.Database),
		logger:   logger,
	}, nil
}

// Close drains the pool
func (c *Client) Close(ctx context.Context) error {
	if err := c.conn.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	return nil
}

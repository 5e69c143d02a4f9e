// Package redis holds the redis backed pieces of the order service: the
// session billing lock and the one-time code store.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	goredis "github.com/redis/go-redis/v9"
)

type Client struct {
	config *apt.Config
	logger apt.Logger
	rdb    *goredis.Client
}

func NewClient(config *apt.Config, logger apt.Logger) *Client {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Client{
		config: config,
		logger: logger,
	}
}

func (c *Client) Start(ctx context.Context) error {
	addr := c.config.GetStringOrDef("redis.addr", "localhost:6379")
	password, _ := c.config.GetString("redis.password")
	db, err := strconv.Atoi(c.config.GetStringOrDef("redis.db", "0"))
	if err != nil {
		return fmt.Errorf("invalid redis.db: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("cannot ping redis at %s: %w", addr, err)
	}

	c.rdb = rdb
	c.logger.Infof("Connected to redis: %s", addr)
	return nil
}

func (c *Client) Stop(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("cannot close redis: %w", err)
	}
	c.logger.Info("Disconnected from redis")
	return nil
}

// Redis returns the underlying client, nil before Start succeeds.
func (c *Client) Redis() *goredis.Client {
	return c.rdb
}

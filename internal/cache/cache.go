// Package cache is an optional redis-backed cache for answered questions.
// A nil *Client is a valid no-op cache, so handlers never need to branch on
// whether redis is configured.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"recallai/internal/config"
	"recallai/internal/rag"
)

// Client wraps go-redis to centralize configuration.
type Client struct {
	inner *redis.Client
	ttl   time.Duration
}

// New creates the redis client from app config. Answers live for the same
// TTL as the sessions they came from.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil || cfg.RedisAddr == "" {
		return nil, errors.New("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Client{inner: client, ttl: cfg.CleanupInterval}, nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// GetAnswer looks up a previously computed answer. Any redis failure is
// logged and treated as a miss.
func (c *Client) GetAnswer(ctx context.Context, uploadNo, question string) (*rag.Result, bool) {
	if c == nil || c.inner == nil {
		return nil, false
	}
	raw, err := c.inner.Get(ctx, answerKey(uploadNo, question)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: get failed: %v", err)
		}
		return nil, false
	}
	var res rag.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		log.Printf("cache: decode failed: %v", err)
		return nil, false
	}
	return &res, true
}

// SetAnswer stores a computed answer; best effort.
func (c *Client) SetAnswer(ctx context.Context, uploadNo, question string, res *rag.Result) {
	if c == nil || c.inner == nil || res == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		log.Printf("cache: encode failed: %v", err)
		return
	}
	if err := c.inner.Set(ctx, answerKey(uploadNo, question), raw, c.ttl).Err(); err != nil {
		log.Printf("cache: set failed: %v", err)
	}
}

func answerKey(uploadNo, question string) string {
	sum := sha1.Sum([]byte(question))
	return fmt.Sprintf("ask:%s:%s", uploadNo, hex.EncodeToString(sum[:]))
}

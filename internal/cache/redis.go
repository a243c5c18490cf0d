// Package cache holds the optional Redis-backed credential cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const keyPrefix = "ops:gcal:token:"

// Connect returns a client for addr, or nil when addr is empty or the server
// does not answer a ping. Callers run without a cache in that case.
func Connect(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		slog.Warn("REDIS_ADDR not set, credential cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to connect to redis, credential cache disabled", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}

	slog.Info("redis connected", "addr", addr)
	return rdb
}

// TokenCache stores valid OAuth credentials as JSON under one key per user.
// Redis failures are logged and treated as cache misses.
type TokenCache struct {
	rdb *redis.Client
}

func NewTokenCache(rdb *redis.Client) *TokenCache {
	return &TokenCache{rdb: rdb}
}

type cachedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

func (c *TokenCache) Get(ctx context.Context, userID string) (*oauth2.Token, bool) {
	raw, err := c.rdb.Get(ctx, keyPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("redis GET failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var ct cachedToken
	if err := json.Unmarshal(raw, &ct); err != nil {
		slog.Warn("discarding malformed cached token", "user_id", userID, "error", err)
		c.Invalidate(ctx, userID)
		return nil, false
	}
	return &oauth2.Token{
		AccessToken:  ct.AccessToken,
		RefreshToken: ct.RefreshToken,
		TokenType:    ct.TokenType,
		Expiry:       ct.Expiry,
	}, true
}

func (c *TokenCache) Set(ctx context.Context, userID string, tok *oauth2.Token, ttl time.Duration) {
	raw, err := json.Marshal(cachedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+userID, raw, ttl).Err(); err != nil {
		slog.Error("redis SET failed", "user_id", userID, "error", err)
	}
}

func (c *TokenCache) Invalidate(ctx context.Context, userID string) {
	if err := c.rdb.Del(ctx, keyPrefix+userID).Err(); err != nil {
		slog.Error("redis DEL failed", "user_id", userID, "error", err)
	}
}

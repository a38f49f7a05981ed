package cache

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

const (
	localTTL      = 10 * time.Minute
	unknownTTL    = time.Minute
	tokenKeyspace = "token_meta:"
)

// Store is the remote level of the token cache
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TokenCache is a two level cache for token metadata: an in-process map in
// front of an optional shared store. Fallback ("Unknown Token") results are
// kept only briefly so a transient lookup failure is retried soon.
type TokenCache struct {
	local  *gocache.Cache
	remote Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewTokenCache creates a token cache. remote may be nil.
func NewTokenCache(remote Store, ttl time.Duration, logger *zap.Logger) *TokenCache {
	return &TokenCache{
		local:  gocache.New(localTTL, time.Minute),
		remote: remote,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns cached metadata for mint
func (c *TokenCache) Get(ctx context.Context, mint string) (entities.TokenInfo, bool) {
	if cached, found := c.local.Get(mint); found {
		if info, ok := cached.(entities.TokenInfo); ok {
			return info, true
		}
	}

	if c.remote == nil {
		return entities.TokenInfo{}, false
	}

	var info entities.TokenInfo
	if err := c.remote.Get(ctx, tokenKeyspace+mint, &info); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("Failed to read token cache", zap.String("mint", mint), zap.Error(err))
		}
		return entities.TokenInfo{}, false
	}

	c.local.Set(mint, info, gocache.DefaultExpiration)
	return info, true
}

// Set stores metadata for mint in both levels
func (c *TokenCache) Set(ctx context.Context, mint string, info entities.TokenInfo) {
	localExpiry := gocache.DefaultExpiration
	remoteTTL := c.ttl
	if info.IsUnknown() {
		localExpiry = unknownTTL
		remoteTTL = unknownTTL
	}

	c.local.Set(mint, info, localExpiry)

	if c.remote == nil {
		return
	}
	if err := c.remote.SetWithTTL(ctx, tokenKeyspace+mint, info, remoteTTL); err != nil {
		c.logger.Warn("Failed to write token cache", zap.String("mint", mint), zap.Error(err))
	}
}

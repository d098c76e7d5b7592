package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hexavel/clientshare/internal/model"
)

type ClientGetter interface {
	GetByID(ctx context.Context, clientID string) (*model.Client, error)
}

// WrapLruCacheToClientGetter caches client lookups on the redemption
// path. Client rows are read-mostly and only display fields are served
// from here, so a short TTL is enough; ownership checks never go
// through the cache.
func WrapLruCacheToClientGetter(next ClientGetter, size int, ttl time.Duration) ClientGetter {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruClientGetter{
		next:  next,
		cache: expirable.NewLRU[string, *model.Client](size, nil, ttl),
	}
}

type lruClientGetter struct {
	next  ClientGetter
	cache *expirable.LRU[string, *model.Client]
}

func (l *lruClientGetter) GetByID(ctx context.Context, clientID string) (*model.Client, error) {
	if cached, ok := l.cache.Get(clientID); ok {
		logutil.GetLogger(ctx).Debug("client cache hit (lru)", zap.String("client_id", clientID))
		return cloneClient(cached), nil
	}
	client, err := l.next.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	l.cache.Add(clientID, cloneClient(client))
	return client, nil
}

func cloneClient(client *model.Client) *model.Client {
	if client == nil {
		return nil
	}
	clone := *client
	return &clone
}

package provider

import (
	"context"
	"encoding/json"
	"time"

	"quotefeed/model"
	"quotefeed/reference"
	"quotefeed/utils"

	"github.com/tidwall/buntdb"
)

// Cached wraps a provider with a short-lived in-memory TTL cache so that
// overlapping subscriptions polling the same symbols do not hammer the
// upstream. The backing store runs in buntdb's :memory: mode; nothing ever
// touches disk.
type Cached struct {
	provider reference.Provider
	db       *buntdb.DB
	ttl      time.Duration
}

func NewCached(provider reference.Provider, ttl time.Duration) (*Cached, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &Cached{
		provider: provider,
		db:       db,
		ttl:      ttl,
	}, nil
}

func (c *Cached) Name() string {
	return c.provider.Name()
}

// FetchPrices serves whatever is still fresh from the cache and forwards
// only the missing symbols upstream. When the upstream fails but the cache
// still covers part of the request, the stale-but-present data wins over
// surfacing the failure.
func (c *Cached) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	cached := make(model.PriceSnapshot)
	missing := make([]model.Symbol, 0, len(symbols))

	c.db.View(func(tx *buntdb.Tx) error {
		for _, symbol := range symbols {
			raw, err := tx.Get(cacheKey(symbol.Canonical))
			if err != nil {
				missing = append(missing, symbol)
				continue
			}
			var point model.PricePoint
			if err := json.Unmarshal([]byte(raw), &point); err != nil {
				missing = append(missing, symbol)
				continue
			}
			cached[symbol.Canonical] = point
		}
		return nil
	})

	if len(missing) == 0 {
		return cached, nil
	}

	fresh, err := c.provider.FetchPrices(ctx, missing)
	if err != nil {
		if len(cached) > 0 {
			utils.Log.Warnf("[CACHE] %s failed, serving %d cached prices: %s", c.Name(), len(cached), err.Error())
			return cached, nil
		}
		return nil, err
	}

	c.db.Update(func(tx *buntdb.Tx) error {
		for id, point := range fresh {
			content, err := json.Marshal(point)
			if err != nil {
				continue
			}
			tx.Set(cacheKey(id), string(content), &buntdb.SetOptions{Expires: true, TTL: c.ttl})
		}
		return nil
	})

	for id, point := range fresh {
		cached[id] = point
	}
	return cached, nil
}

// Close releases the in-memory store.
func (c *Cached) Close() error {
	return c.db.Close()
}

func cacheKey(canonical string) string {
	return "price:" + canonical
}

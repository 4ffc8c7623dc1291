package language

import (
	"time"

	"github.com/juju/errors"
	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	DefaultCacheSize = 10000
	DefaultCacheTTL  = 24 * time.Hour
)

// Classifier memoizes Detect by exact text.
type Classifier struct {
	cache *collection.Cache
}

// NewClassifier creates a classifier backed by an LRU cache holding at most size
// entries for ttl each. A non-positive size disables caching.
func NewClassifier(size int, ttl time.Duration) (*Classifier, error) {
	if size <= 0 {
		return &Classifier{}, nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cache, err := collection.NewCache(ttl, collection.WithLimit(size), collection.WithName("language"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Classifier{cache: cache}, nil
}

// Classify is Detect with memoization. A nil classifier does not cache.
func (c *Classifier) Classify(text string) Set {
	if c == nil || c.cache == nil || len(text) == 0 {
		return Detect(text)
	}
	v, err := c.cache.Take(text, func() (any, error) {
		return Detect(text), nil
	})
	if err != nil {
		logx.Errorf("Language cache lookup failed: %v", err)
		return Detect(text)
	}
	return v.(Set)
}

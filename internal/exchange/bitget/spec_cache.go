package bitget

import (
	"sync"
	"time"

	"smarttrading/internal/model"

	lru "github.com/hashicorp/golang-lru"
)

// 合约规格缓存，交易所很少改这些数据，短TTL即可
// 缓存由connector自己持有，按symbol做key，过期或未命中时回源
type specCache struct {
	mu      sync.Mutex
	entries *lru.Cache
	ttl     time.Duration
}

type specEntry struct {
	spec    model.ContractSpec
	expires time.Time
}

func newSpecCache(ttl time.Duration) *specCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c, _ := lru.New(256)
	return &specCache{entries: c, ttl: ttl}
}

func (c *specCache) get(symbol string) (model.ContractSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(symbol)
	if !ok {
		return model.ContractSpec{}, false
	}
	e := v.(specEntry)
	if time.Now().After(e.expires) {
		c.entries.Remove(symbol)
		return model.ContractSpec{}, false
	}
	return e.spec, true
}

func (c *specCache) set(symbol string, spec model.ContractSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(symbol, specEntry{spec: spec, expires: time.Now().Add(c.ttl)})
}

// 显式失效，规格解析异常时调用
func (c *specCache) invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(symbol)
}

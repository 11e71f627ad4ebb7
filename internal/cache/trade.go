package cache

import (
	"context"
	"errors"
	"time"

	"smarttrading/internal/consts"
	"smarttrading/internal/model"
	"smarttrading/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// 入场记录的redis快路径
// BREAKEVEN/INFO信号要找对应的ENTRY记录，先查redis，miss了再回源数据库
// redis挂了只影响速度不影响正确性，所以读写失败都只记日志
type TradeCache struct {
	rdb *redis.Client
}

func NewTradeCache(rdb *redis.Client) *TradeCache {
	return &TradeCache{rdb: rdb}
}

func entryKey(tradeID, accountID string) string {
	return consts.EntryTradePrefix + tradeID + ":" + accountID
}

// SetEntry 写入入场记录快照
func (c *TradeCache) SetEntry(ctx context.Context, record model.TradeRecord) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, entryKey(record.TradeID, record.AccountID), data, consts.EntryTradeExr).Err(); err != nil {
		logger.Warnf("trade cache set failed: %v", err)
	}
}

// GetEntry 读取入场记录快照
func (c *TradeCache) GetEntry(ctx context.Context, tradeID, accountID string) (model.TradeRecord, bool) {
	if c.rdb == nil {
		return model.TradeRecord{}, false
	}
	data, err := c.rdb.Get(ctx, entryKey(tradeID, accountID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("trade cache get failed: %v", err)
		}
		return model.TradeRecord{}, false
	}
	var record model.TradeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.TradeRecord{}, false
	}
	return record, true
}

// MarkAlert 信号去重，首次出现返回true
// redis不可用时放行，重复执行由orderid幂等机制兜底
func (c *TradeCache) MarkAlert(ctx context.Context, tradeID string, category model.AlertCategory, ttl time.Duration) bool {
	if c.rdb == nil {
		return true
	}
	key := consts.AlertDedupPrefix + tradeID + ":" + string(category)
	ok, err := c.rdb.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		logger.Warnf("alert dedup setnx failed: %v", err)
		return true
	}
	return ok
}

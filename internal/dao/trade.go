package dao

import (
	"context"
	"errors"
	"sync"

	"smarttrading/internal/model"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	nodeOnce sync.Once
	idNode   *snowflake.Node
)

// 主键用snowflake，分布式部署时不会撞号
func nextID() int64 {
	nodeOnce.Do(func() {
		n, err := snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
		idNode = n
	})
	return idNode.Generate().Int64()
}

type TradeDao struct {
	db *gorm.DB
}

func NewTradeDao(db *gorm.DB) *TradeDao {
	return &TradeDao{db: db}
}

// 插入一条交易结果记录
func (d *TradeDao) InsertRecord(ctx context.Context, record *model.TradeRecord) error {
	if record.ID == 0 {
		record.ID = nextID()
	}
	return d.db.WithContext(ctx).Create(record).Error
}

// 查找该信号在这个账户上的入场记录，入场查重和保本迁移都要用到
func (d *TradeDao) GetEntryRecord(ctx context.Context, tradeID, accountID string) (model.TradeRecord, error) {
	var record model.TradeRecord
	err := d.db.WithContext(ctx).Model(&model.TradeRecord{}).
		Where("trade_id = ?", tradeID).
		Where("account_id = ?", accountID).
		Where("category = ?", model.AlertEntry).
		Where("success = ?", true).
		Order("created_at DESC").
		Limit(1).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.TradeRecord{}, ErrNotFound
	}
	return record, err
}

// 最近的处理记录，运营排查用
func (d *TradeDao) ListRecent(ctx context.Context, accountID string, limit int) ([]model.TradeRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []model.TradeRecord
	q := d.db.WithContext(ctx).Model(&model.TradeRecord{}).Order("created_at DESC").Limit(limit)
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	err := q.Find(&records).Error
	return records, err
}

var ErrNotFound = errors.New("record not found")

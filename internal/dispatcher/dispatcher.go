package dispatcher

import (
	"context"
	"sync"
	"time"

	"smarttrading/internal/model"
	"smarttrading/pkg/logger"
)

// 信号分发：一条信号扇出到所有订阅账户
// 账户之间完全隔离，单个账户的失败不影响其他账户
// 默认串行+固定间隔，避免同一IP的请求频率触发交易所风控；workers>1时切换为有界并发

// Executor 单账户执行器，由orchestrator实现
type Executor interface {
	Process(ctx context.Context, alert model.Alert, ec model.ExecutionContext) (*model.TradeRecord, error)
}

type Dispatcher struct {
	executor Executor
	delay    time.Duration // 串行模式下相邻账户的间隔
	workers  int
}

func New(executor Executor, delay time.Duration, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{executor: executor, delay: delay, workers: workers}
}

// Dispatch 把信号下发给所有账户，返回每个账户的处理记录
// ctx取消时停止下发还没开始的账户，已经开始的会跑完
func (d *Dispatcher) Dispatch(ctx context.Context, alert model.Alert, contexts []model.ExecutionContext) []*model.TradeRecord {
	if len(contexts) == 0 {
		return nil
	}
	if d.workers <= 1 {
		return d.sequential(ctx, alert, contexts)
	}
	return d.pooled(ctx, alert, contexts)
}

func (d *Dispatcher) sequential(ctx context.Context, alert model.Alert, contexts []model.ExecutionContext) []*model.TradeRecord {
	records := make([]*model.TradeRecord, 0, len(contexts))
	for i, ec := range contexts {
		if ctx.Err() != nil {
			logger.Warnf("dispatch cancelled, %d/%d accounts done", i, len(contexts))
			break
		}
		records = append(records, d.run(ctx, alert, ec))
		if d.delay > 0 && i < len(contexts)-1 {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
			}
		}
	}
	return records
}

func (d *Dispatcher) pooled(ctx context.Context, alert model.Alert, contexts []model.ExecutionContext) []*model.TradeRecord {
	records := make([]*model.TradeRecord, len(contexts))
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for i, ec := range contexts {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, ec model.ExecutionContext) {
			defer wg.Done()
			defer func() { <-sem }()
			records[idx] = d.run(ctx, alert, ec)
		}(i, ec)
	}
	wg.Wait()

	out := make([]*model.TradeRecord, 0, len(contexts))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// run 单账户执行，panic也只打垮这一个账户
func (d *Dispatcher) run(ctx context.Context, alert model.Alert, ec model.ExecutionContext) (record *model.TradeRecord) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("executor panic, account=%s trade=%s: %v", ec.AccountID, alert.TradeID, r)
		}
	}()
	record, err := d.executor.Process(ctx, alert, ec)
	if err != nil {
		logger.Errorf("process failed, account=%s trade=%s: %v", ec.AccountID, alert.TradeID, err)
	}
	return record
}

package notify

import (
	"context"
	"time"

	"smarttrading/pkg/kafka"
	"smarttrading/pkg/logger"
)

// 保护单状态变化的通知，fire-and-forget，发送失败不影响主流程

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Event struct {
	Time      time.Time `json:"time"`
	Severity  Severity  `json:"severity"`
	AccountID string    `json:"account_id"`
	TradeID   string    `json:"trade_id"`
	Symbol    string    `json:"symbol"`
	Message   string    `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// kafka实现，下游消费后推送给用户
type kafkaNotifier struct {
	producer kafka.ProducerService
}

func NewKafkaNotifier(p kafka.ProducerService) Notifier {
	return &kafkaNotifier{producer: p}
}

func (n *kafkaNotifier) Notify(ctx context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	err := n.producer.Produce(ctx, kafka.TopicNotification, []byte(e.AccountID), e)
	if err != nil {
		// 通知失败只记log
		logger.Warnf("notify produce failed: %v", err)
	}
}

// 仅打日志的实现，单机部署或测试时用
type logNotifier struct{}

func NewLogNotifier() Notifier { return logNotifier{} }

func (logNotifier) Notify(_ context.Context, e Event) {
	logger.Info("[Notify]",
		logger.Pair("severity", string(e.Severity)),
		logger.Pair("account", e.AccountID),
		logger.Pair("trade", e.TradeID),
		logger.Pair("symbol", e.Symbol),
		logger.Pair("message", e.Message))
}

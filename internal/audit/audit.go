package audit

import (
	"context"
	"time"

	"smarttrading/pkg/kafka"
	"smarttrading/pkg/logger"
	"smarttrading/pkg/recorder"
)

// 审计日志：每一次交易所调用（成功或失败）都会追加一条
// 写入失败只记log，绝不影响下单流程

type Entry struct {
	Time      time.Time `json:"time"`
	AccountID string    `json:"account_id"`
	Exchange  string    `json:"exchange"`
	ApiKey    string    `json:"api_key"` // 已脱敏
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Payload   string    `json:"payload"`
	Response  string    `json:"response"`
	Status    int       `json:"status"`
	Err       string    `json:"err,omitempty"`
}

type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// Report 统一入口：填充时间戳并吞掉写入错误
func Report(ctx context.Context, sink Sink, e Entry) {
	if sink == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if err := sink.Append(ctx, e); err != nil {
		logger.Warnf("audit append failed: %v", err)
	}
}

// kafka实现，主路径
type kafkaSink struct {
	producer kafka.ProducerService
}

func NewKafkaSink(p kafka.ProducerService) Sink {
	return &kafkaSink{producer: p}
}

func (s *kafkaSink) Append(ctx context.Context, e Entry) error {
	key := []byte(e.AccountID + ":" + e.Exchange)
	return s.producer.Produce(ctx, kafka.TopicAuditLog, key, e)
}

// 文件实现，kafka不可用时的兜底
type fileSink struct {
	rec *recorder.JSONFileRecorder
}

func NewFileSink(path string) Sink {
	return &fileSink{rec: recorder.NewJSONFileRecorder(path)}
}

func (s *fileSink) Append(_ context.Context, e Entry) error {
	return s.rec.Record(e)
}

// 空实现，测试用
type nopSink struct{}

func NewNopSink() Sink { return nopSink{} }

func (nopSink) Append(context.Context, Entry) error { return nil }

package kafka

import (
	"context"
	"errors"
	"log"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// 审计与通知事件的主题
const (
	TopicAuditLog     = "trade_audit_log"
	TopicNotification = "trade_notification"
)

// Kafka 生产者服务
// 定义接口，方便测试和替换
type ProducerService interface {
	Produce(ctx context.Context, topic string, key []byte, msg any) error
	Close()
}

type kafkaProducer struct {
	auditWriter  *kafka.Writer // 审计日志，量大
	notifyWriter *kafka.Writer // 通知事件，低频
}

func NewKafkaProducer(brokerURL string) ProducerService {
	auditWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokerURL),
		Topic:    TopicAuditLog,
		Balancer: &kafka.LeastBytes{}, // 保证写入负载均衡
	}
	notifyWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokerURL),
		Topic:    TopicNotification,
		Balancer: &kafka.LeastBytes{},
	}

	return &kafkaProducer{
		auditWriter:  auditWriter,
		notifyWriter: notifyWriter,
	}
}

// Produce 通用方法：序列化消息并写入 Kafka
func (p *kafkaProducer) Produce(ctx context.Context, topic string, key []byte, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	var writer *kafka.Writer
	switch topic {
	case TopicAuditLog:
		writer = p.auditWriter
	case TopicNotification:
		writer = p.notifyWriter
	default:
		return errors.New("invalid kafka topic")
	}

	// key使用account+symbol，确保同一账户的数据进入同一个 Partition (有序性/关联性)
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: data,
	})
}

func (p *kafkaProducer) Close() {
	if err := p.auditWriter.Close(); err != nil {
		log.Printf("Error closing audit writer: %v", err)
	}
	if err := p.notifyWriter.Close(); err != nil {
		log.Printf("Error closing notify writer: %v", err)
	}
}

package publisher

import (
	"context"
	"encoding/json"
	"time"

	"Minerva/backend/go/internal/models"
	"Minerva/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// publishTimeout 限制单条活动日志的发送耗时，避免 Kafka 故障拖慢主流水线。
const publishTimeout = 3 * time.Second

// ActivityPublisher 负责将操作活动日志发布到 Kafka。
// 发布是尽力而为的：任何失败只记录日志，永远不向调用方返回错误。
type ActivityPublisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

// NewActivityPublisher 创建一个新的 ActivityPublisher。
// writer 为 nil 时发布成为空操作，用于未配置 Kafka 的部署。
func NewActivityPublisher(writer *kafka.Writer, log *logger.Logger) *ActivityPublisher {
	return &ActivityPublisher{writer: writer, logger: log}
}

// Publish 异步发送一条活动日志，以 correlation_id 作为消息键保证同一次
// 操作的日志落在同一分区。调用立即返回。
func (p *ActivityPublisher) Publish(entry models.ActivityLogEntry) {
	if p == nil || p.writer == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		msgBytes, err := json.Marshal(entry)
		if err != nil {
			p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("活动日志序列化失败")
			return
		}

		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(entry.CorrelationID),
			Value: msgBytes,
		})
		if err != nil {
			p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
				"topic":     p.writer.Topic,
				"operation": entry.Operation,
			}).Error("活动日志写入 Kafka 失败")
		}
	}()
}

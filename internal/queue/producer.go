package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Pointage/internal/model"
	"Pointage/pkg/logger"
	"Pointage/storage/mq"
)

// RoutingKey 事件类型对应的 routing key
func RoutingKey(eventType string) string {
	return mq.AttendanceRoutingPrefix + eventType
}

// PublishAttendanceEvent 发布考勤事件，MessageID 为空时生成 uuid
func PublishAttendanceEvent(ctx context.Context, msg model.AttendanceEventMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	routingKey := RoutingKey(msg.EventType)
	if err := mq.PublishMessage(ctx, mq.AttendanceExchange, routingKey, msg.MessageID, msg); err != nil {
		logger.Logger.Error("Failed to publish attendance event",
			zap.String("message_id", msg.MessageID),
			zap.String("event_type", msg.EventType),
			zap.Int64("worker_id", msg.WorkerID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish %s event: %w", msg.EventType, err)
	}

	logger.Logger.Debug("Published attendance event",
		zap.String("message_id", msg.MessageID),
		zap.String("routing_key", routingKey),
		zap.String("record_id", msg.RecordID),
	)
	return nil
}

// MQPublisher 通过 RabbitMQ 发布事件
type MQPublisher struct{}

func (MQPublisher) Publish(ctx context.Context, msg model.AttendanceEventMessage) error {
	return PublishAttendanceEvent(ctx, msg)
}

// NopPublisher 丢弃事件，memory 驱动下使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.AttendanceEventMessage) error {
	return nil
}

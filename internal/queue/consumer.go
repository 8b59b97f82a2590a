package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Pointage/internal/model"
	"Pointage/pkg/errors"
	"Pointage/pkg/logger"
	"Pointage/storage/mq"
	"Pointage/utils"
)

// WeekAggregator 周工时累加
type WeekAggregator interface {
	AddWorkedMinutes(ctx context.Context, workerID int64, week, date string, minutes int) error
}

// MessageGuard 消息幂等标记
type MessageGuard interface {
	TryMark(ctx context.Context, messageID string) (bool, error)
	MarkDone(ctx context.Context, messageID string) error
	Unmark(ctx context.Context, messageID string) error
}

// CheckedOutConsumer 消费签退事件，把工作时长累加到所在 ISO 周
type CheckedOutConsumer struct {
	Summary WeekAggregator
	Guard   MessageGuard
	Loc     *time.Location
}

// Handle 处理单条消息体
func (c *CheckedOutConsumer) Handle(ctx context.Context, body []byte) error {
	var msg model.AttendanceEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// 无法解析的消息重试也没有意义
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed attendance event: %v", err)}
	}

	if msg.EventType != model.EventCheckedOut {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("unexpected event type %q", msg.EventType)}
	}

	log := logger.Component("checked_out_consumer")

	day, err := utils.ParseDate(msg.Date, c.Loc)
	if err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("invalid event date %q", msg.Date)}
	}

	first, err := c.Guard.TryMark(ctx, msg.MessageID)
	if err != nil {
		log.Warn("Failed to check message processed status",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	} else if !first {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", msg.MessageID)}
	}

	if msg.ClockInconsistent {
		log.Warn("Aggregating clock-inconsistent record",
			zap.String("record_id", msg.RecordID),
			zap.Int64("worker_id", msg.WorkerID),
			zap.Int("worked_minutes", msg.WorkedMinutes),
		)
	}

	week := utils.ISOWeekKey(day)
	if err := c.Summary.AddWorkedMinutes(ctx, msg.WorkerID, week, msg.Date, msg.WorkedMinutes); err != nil {
		if uerr := c.Guard.Unmark(ctx, msg.MessageID); uerr != nil {
			log.Warn("Failed to unmark message", zap.String("message_id", msg.MessageID), zap.Error(uerr))
		}
		return fmt.Errorf("failed to aggregate worked minutes: %w", err)
	}

	if err := c.Guard.MarkDone(ctx, msg.MessageID); err != nil {
		log.Warn("Failed to mark message as processed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}

	log.Info("Aggregated worked minutes",
		zap.String("message_id", msg.MessageID),
		zap.Int64("worker_id", msg.WorkerID),
		zap.String("week", week),
		zap.String("date", msg.Date),
		zap.Int("minutes", msg.WorkedMinutes),
	)
	return nil
}

// StartCheckedOutConsumer 阻塞消费 attendance.checked_out 队列
func StartCheckedOutConsumer(ctx context.Context, c *CheckedOutConsumer) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.AttendanceCheckedOutQueue,
		ConsumerTag:   "attendance_week_aggregator",
		PrefetchCount: 10,
		Handler:       c.Handle,
	})
}

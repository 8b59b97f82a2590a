package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"Pointage/config"
	"Pointage/pkg/logger"
)

// 考勤事件拓扑
const (
	AttendanceExchange        = "attendance.topic"
	AttendanceCheckedOutQueue = "attendance.checked_out"
	AttendanceRoutingPrefix   = "attendance."
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()

		conn, connErr = amqp.Dial(url)
		if connErr != nil {
			connErr = fmt.Errorf("failed to connect to rabbitmq: %w", connErr)
			return
		}

		if connErr = DeclareTopology(); connErr != nil {
			return
		}

		logger.Logger.Info("RabbitMQ connected",
			zap.String("addr", config.Cfg.RabbitMQAddr),
			zap.String("exchange", AttendanceExchange),
		)
	})

	return connErr
}

func Connection() *amqp.Connection {
	return conn
}

// DeclareTopology 声明 topic exchange 以及 checked_out 汇总队列
func DeclareTopology() error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(AttendanceExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", AttendanceExchange, err)
	}

	if _, err := ch.QueueDeclare(AttendanceCheckedOutQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", AttendanceCheckedOutQueue, err)
	}

	if err := ch.QueueBind(AttendanceCheckedOutQueue, AttendanceCheckedOutQueue, AttendanceExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", AttendanceCheckedOutQueue, err)
	}

	return nil
}

func Close(ctx context.Context) error {
	pubMutex.Lock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		_ = publisherCh.Close()
	}
	publisherCh = nil
	pubMutex.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

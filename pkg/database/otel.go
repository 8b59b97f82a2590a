package database

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start_time"
)

// OTELPlugin GORM OpenTelemetry 插件
type OTELPlugin struct {
	serviceName  string
	maxSQLLength int
	tracer       trace.Tracer
	queries      metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewOTELPlugin 创建插件实例，SQL 超过 maxSQLLength 时截断
func NewOTELPlugin(serviceName string, maxSQLLength int) *OTELPlugin {
	if serviceName == "" {
		serviceName = "pointage"
	}
	if maxSQLLength <= 0 {
		maxSQLLength = 500
	}

	meter := otel.Meter(serviceName + ".gorm")
	queries, _ := meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	duration, _ := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)

	return &OTELPlugin{
		serviceName:  serviceName,
		maxSQLLength: maxSQLLength,
		tracer:       otel.Tracer(serviceName + ".gorm"),
		queries:      queries,
		duration:     duration,
	}
}

// Name 实现 gorm.Plugin 接口
func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 在 create / query / update / delete / raw 前后注册回调
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	return errors.Join(
		cb.Create().Before("gorm:create").Register("otel:before_create", p.before("db.create")),
		cb.Create().After("gorm:create").Register("otel:after_create", p.after("db.create")),
		cb.Query().Before("gorm:query").Register("otel:before_query", p.before("db.query")),
		cb.Query().After("gorm:query").Register("otel:after_query", p.after("db.query")),
		cb.Update().Before("gorm:update").Register("otel:before_update", p.before("db.update")),
		cb.Update().After("gorm:update").Register("otel:after_update", p.after("db.update")),
		cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("db.delete")),
		cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after("db.delete")),
		cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("db.raw")),
		cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after("db.raw")),
	)
}

func (p *OTELPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := p.tracer.Start(db.Statement.Context, operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemPostgreSQL,
				attribute.String("db.table", db.Statement.Table),
			),
		)
		db.InstanceSet(startKey, time.Now())
		db.InstanceSet(spanKey, span)
		db.Statement.Context = ctx
	}
}

func (p *OTELPlugin) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(spanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		sql := db.Statement.SQL.String()
		if len(sql) > p.maxSQLLength {
			sql = sql[:p.maxSQLLength] + "..."
		}
		span.SetAttributes(
			semconv.DBStatement(sql),
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
		)

		status := "success"
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			span.SetStatus(codes.Ok, "record not found")
		default:
			status = "error"
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}

		attrs := metric.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.status", status),
		)
		ctx := db.Statement.Context
		p.queries.Add(ctx, 1, attrs)
		if start, ok := db.InstanceGet(startKey); ok {
			if t, ok := start.(time.Time); ok {
				p.duration.Record(ctx, time.Since(t).Seconds(), attrs)
			}
		}
	}
}

package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestAttendanceMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewAttendanceMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTransition(ctx, "check_in", ResultAccepted)
	m.RecordTransition(ctx, "check_in", ResultAccepted)
	m.RecordTransition(ctx, "check_out", ResultRejected)
	m.RecordClockInconsistency(ctx, "total")
	m.RecordWorkedMinutes(ctx, 345)

	data := collect(t, reader)

	transitions, ok := data["attendance.transitions.total"].(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range transitions.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key("operation"))
		res, _ := dp.Attributes.Value(attribute.Key("result"))
		counts[op.AsString()+"/"+res.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"check_in/accepted": 2, "check_out/rejected": 1}, counts)

	inconsistencies, ok := data["attendance.clock_inconsistencies.total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, inconsistencies.DataPoints, 1)
	assert.Equal(t, int64(1), inconsistencies.DataPoints[0].Value)

	worked, ok := data["attendance.worked.minutes"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, worked.DataPoints, 1)
	assert.Equal(t, uint64(1), worked.DataPoints[0].Count)
	assert.Equal(t, int64(345), worked.DataPoints[0].Sum)
}

func TestAttendanceMetrics_NilSafe(t *testing.T) {
	var m *AttendanceMetrics
	assert.NotPanics(t, func() {
		m.RecordTransition(context.Background(), "check_in", ResultAccepted)
		m.RecordClockInconsistency(context.Background(), "pause")
		m.RecordWorkedMinutes(context.Background(), 10)
	})
}

func TestAttendance_GlobalNoop(t *testing.T) {
	assert.NotNil(t, Attendance())
}

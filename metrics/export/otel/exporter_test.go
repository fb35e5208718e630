package otel

import (
	"context"
	"sync"
	"testing"

	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/transport"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	counters map[authclient.MetricID]uint64
	latency  []uint64
	dropped  uint64
	state    transport.RefreshState
}

func (f *fakeSource) MetricsSnapshot() authclient.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authclient.MetricsSnapshot{
		Counters:   make(map[authclient.MetricID]uint64, len(f.counters)),
		Histograms: map[authclient.MetricID][]uint64{},
	}
	for k, v := range f.counters {
		out.Counters[k] = v
	}
	if f.latency != nil {
		out.Histograms[authclient.MetricRefreshLatency] = append([]uint64(nil), f.latency...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) RefreshState() transport.RefreshState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			}
		}
	}
	return out
}

func TestExporterCollects(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		counters: map[authclient.MetricID]uint64{
			authclient.MetricRefreshSuccess:   2,
			authclient.MetricRefreshCoalesced: 7,
		},
		latency: []uint64{1, 0, 2, 0, 0, 0, 0, 1},
		dropped: 3,
		state:   transport.RefreshInFlight,
	}

	exp, err := New(provider.Meter("authclient-test"), src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collect(t, reader)
	want := map[string]int64{
		"authclient_refresh_success_total":                   2,
		"authclient_refresh_coalesced_total":                 7,
		"authclient_login_success_total":                     0,
		"authclient_refresh_latency_seconds_bucket_le_0_025": 1,
		"authclient_refresh_latency_seconds_bucket_le_0_1":   3,
		"authclient_refresh_latency_seconds_bucket_le_inf":   4,
		"authclient_refresh_latency_seconds_count":           4,
		"authclient_audit_dropped_total":                     3,
		"authclient_refresh_in_flight":                       1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestExporterRejectsNil(t *testing.T) {
	_, provider := newReader()
	if _, err := New(provider.Meter("authclient-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := New(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewFromClient(provider.Meter("authclient-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{counters: map[authclient.MetricID]uint64{}}

	exp, err := New(provider.Meter("authclient-test"), src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.counters[authclient.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

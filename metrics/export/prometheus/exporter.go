package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/metrics/export/internaldefs"
	"github.com/eyoklama/authclient/transport"
)

// ContentType is the text exposition format version served by Handler.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Source is what the exporter renders. *authclient.Client satisfies it.
type Source interface {
	MetricsSnapshot() authclient.MetricsSnapshot
	AuditDropped() uint64
}

type refreshStater interface {
	RefreshState() transport.RefreshState
}

// Exporter renders client counters in Prometheus text format.
type Exporter struct {
	source Source
}

// NewFromClient returns an exporter reading from c.
func NewFromClient(c *authclient.Client) *Exporter {
	if c == nil {
		return &Exporter{}
	}
	return &Exporter{source: c}
}

// New returns an exporter reading from source.
func New(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render on every request.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		_, _ = io.WriteString(w, e.Render())
	})
}

// Render returns the current counters. It is empty when metrics are disabled
// and nothing was dropped.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	for _, def := range internaldefs.CounterDefs {
		writeSample(&b, def.Name, def.Help, "counter", snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}
	writeSample(&b, "authclient_audit_dropped_total", "Audit events dropped on a full dispatcher buffer.", "counter", dropped)

	if rs, ok := e.source.(refreshStater); ok {
		var v uint64
		if rs.RefreshState() == transport.RefreshInFlight {
			v = 1
		}
		writeSample(&b, "authclient_refresh_in_flight", "1 while a token refresh is in flight.", "gauge", v)
	}
	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func writeSample(b *strings.Builder, name, help, kind string, v uint64) {
	writeHeader(b, name, help, kind)
	fmt.Fprintf(b, "%s %d\n", name, v)
}

func writeHistogram(b *strings.Builder, def internaldefs.HistogramDef, cumulative [internaldefs.BucketCount]uint64) {
	writeHeader(b, def.Name, def.Help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
	}
	fmt.Fprintf(b, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
	// Snapshots keep bucket counts only.
	fmt.Fprintf(b, "%s_sum 0\n", def.Name)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}

package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/ngenohkevin/hivedeck-monitor/internal/monitor"
	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

const metricPrefix = "hivedeck_"

// ExportMetrics handles GET /metrics in the Prometheus text format
func (h *Handlers) ExportMetrics(c *gin.Context) {
	var buf bytes.Buffer
	for _, mf := range MetricFamilies(h.mon) {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.Data(http.StatusOK, string(expfmt.NewFormat(expfmt.TypeTextPlain)), buf.Bytes())
}

// MetricFamilies converts the latest monitor state into gauge families.
// Channels without a recorded value are left out.
func MetricFamilies(mon *monitor.Monitor) []*prom.MetricFamily {
	s := mon.Sampler()
	families := make([]*prom.MetricFamily, 0, len(system.Channels)+3)

	for _, ch := range system.Channels {
		v, ok := s.Latest(ch)
		if !ok {
			continue
		}
		families = append(families, gaugeFamily(channelMetricName(ch), channelHelp(ch), gauge(v)))
	}

	healthy := make([]*prom.Metric, 0, len(system.Channels))
	for _, ch := range system.Channels {
		v := 0.0
		if s.Healthy(ch) {
			v = 1
		}
		healthy = append(healthy, gauge(v, labelPair("channel", ch.String())))
	}
	families = append(families, gaugeFamily(metricPrefix+"channel_healthy",
		"Whether the last read of a channel succeeded.", healthy...))

	reg := mon.Registry()
	families = append(families,
		gaugeFamily(metricPrefix+"processes", "Number of tracked processes.", gauge(float64(reg.Len()))),
		gaugeFamily(metricPrefix+"process_cpu_counters", "Number of open per-process CPU counters.", gauge(float64(reg.HandleCount()))),
	)
	return families
}

func channelMetricName(ch system.Channel) string {
	if ch.IsPercent() {
		return metricPrefix + ch.String() + "_percent"
	}
	return metricPrefix + ch.String() + "_megabytes_per_second"
}

func channelHelp(ch system.Channel) string {
	if ch.IsPercent() {
		return "Latest " + ch.String() + " utilization in percent."
	}
	return "Latest " + ch.String() + " throughput in MB/s."
}

func gaugeFamily(name, help string, metrics ...*prom.Metric) *prom.MetricFamily {
	return &prom.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   prom.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func gauge(v float64, labels ...*prom.LabelPair) *prom.Metric {
	return &prom.Metric{
		Label: labels,
		Gauge: &prom.Gauge{Value: proto.Float64(v)},
	}
}

func labelPair(name, value string) *prom.LabelPair {
	return &prom.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type MetricsHandler struct {
	reader *sdkmetric.ManualReader
}

func NewMetricsHandler(reader *sdkmetric.ManualReader) *MetricsHandler {
	return &MetricsHandler{reader: reader}
}

type metricPoint struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"`
}

// Snapshot collects the current value of every instrument as JSON.
func (h *MetricsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(r.Context(), &rm); err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make(map[string][]metricPoint)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = append(out[m.Name], points(m.Data)...)
		}
	}
	RespondSuccess(w, http.StatusOK, out)
}

func points(data metricdata.Aggregation) []metricPoint {
	var out []metricPoint
	switch d := data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range d.DataPoints {
			out = append(out, metricPoint{Attributes: attrs(dp.Attributes.ToSlice()), Value: float64(dp.Value)})
		}
	case metricdata.Sum[float64]:
		for _, dp := range d.DataPoints {
			out = append(out, metricPoint{Attributes: attrs(dp.Attributes.ToSlice()), Value: dp.Value})
		}
	case metricdata.Histogram[float64]:
		for _, dp := range d.DataPoints {
			out = append(out, metricPoint{Attributes: attrs(dp.Attributes.ToSlice()), Value: dp.Sum, Count: dp.Count})
		}
	}
	return out
}

func attrs(kvs []attribute.KeyValue) map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// value returns the value of the metric family name whose labels include
// every pair in labels.
func value(reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !hasLabels(metric, labels) {
				continue
			}
			switch {
			case metric.Counter != nil:
				return metric.GetCounter().GetValue()
			case metric.Gauge != nil:
				return metric.GetGauge().GetValue()
			case metric.Histogram != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return -1
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range metric.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok && want == lp.GetValue() {
			found++
		}
	}
	return found == len(labels)
}

func TestManager(t *testing.T) {
	Convey("Given a metrics manager on a fresh registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg), WithHistogramBuckets([]float64{0.1, 1}))

		Convey("When the collector observer sees requests", func() {
			obs := m.Observer("youtube")
			obs("GET", "/videos", 200, 20*time.Millisecond)
			obs("GET", "/videos", 200, 30*time.Millisecond)
			obs("GET", "/channels", 0, time.Second)

			Convey("Then requests are counted by status", func() {
				So(value(reg, "contentflow_collector_api_requests_total", map[string]string{"platform": "youtube", "status": "200"}), ShouldEqual, 2)
				So(value(reg, "contentflow_collector_api_requests_total", map[string]string{"platform": "youtube", "status": "0"}), ShouldEqual, 1)
				So(value(reg, "contentflow_collector_api_request_duration_seconds", map[string]string{"platform": "youtube"}), ShouldEqual, 3)
			})
		})

		Convey("When collection and load figures are recorded", func() {
			m.SetQuotaUsed("youtube", 120)
			m.RecordItemFailure("spotify", "album")
			m.RecordCollected("spotify", 7)
			m.RecordRowsLoaded("raw_spotify_data", 5)
			m.SetQualityScore("spotify", 92.5)
			m.RecordStage("load", "succeeded", 2*time.Second)
			m.RecordStage("transform", "skipped", 0)

			Convey("Then each metric carries its value", func() {
				So(value(reg, "contentflow_collector_quota_used", map[string]string{"platform": "youtube"}), ShouldEqual, 120)
				So(value(reg, "contentflow_collector_item_failures_total", map[string]string{"platform": "spotify", "kind": "album"}), ShouldEqual, 1)
				So(value(reg, "contentflow_collector_records_total", map[string]string{"platform": "spotify"}), ShouldEqual, 7)
				So(value(reg, "contentflow_warehouse_rows_loaded_total", map[string]string{"table": "raw_spotify_data"}), ShouldEqual, 5)
				So(value(reg, "contentflow_quality_score", map[string]string{"source": "spotify"}), ShouldEqual, 92.5)
				So(value(reg, "contentflow_pipeline_stage_runs_total", map[string]string{"stage": "transform", "status": "skipped"}), ShouldEqual, 1)
				So(value(reg, "contentflow_pipeline_stage_duration_seconds", map[string]string{"stage": "load"}), ShouldEqual, 1)
			})
		})

		Convey("When the handler is scraped", func() {
			m.RecordCollected("streaming", 3)
			srv := httptest.NewServer(m.Handler())
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			Convey("Then the exposition contains the metrics", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(strings.Contains(string(body), `contentflow_collector_records_total{platform="streaming"} 3`), ShouldBeTrue)
			})
		})
	})
}

func TestNilManager(t *testing.T) {
	Convey("Given a nil manager", t, func() {
		var m *Manager

		Convey("Recording is a no-op", func() {
			So(func() {
				m.SetQuotaUsed("youtube", 1)
				m.RecordItemFailure("youtube", "video")
				m.RecordCollected("youtube", 1)
				m.RecordStage("load", "failed", time.Second)
				m.RecordRowsLoaded("raw_youtube_data", 1)
				m.SetQualityScore("youtube", 50)
			}, ShouldNotPanic)
			So(m.Observer("youtube"), ShouldBeNil)
		})
	})
}

func TestNamespace(t *testing.T) {
	Convey("Given a custom namespace", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg), WithNamespace("cf"))
		m.RecordCollected("youtube", 1)

		So(value(reg, "cf_collector_records_total", map[string]string{"platform": "youtube"}), ShouldEqual, 1)
		So(m.Registry(), ShouldEqual, reg)
	})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"resumeStudio/internal/controller"
)

var (
	pageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumestudio",
			Subsystem: "controller",
			Name:      "page_transitions_total",
			Help:      "页面切换总数。",
		},
		[]string{"from", "to", "reason"},
	)

	correctionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumestudio",
			Subsystem: "controller",
			Name:      "corrections_total",
			Help:      "视图解析触发的纠正跳转次数。",
		},
		[]string{"from", "to"},
	)
)

// TransitionRecorder 把控制器的页面切换计入 Prometheus。
type TransitionRecorder struct{}

// RecordTransition 实现 controller.Recorder。未知页面统一记为 "unknown"，避免标签基数失控。
func (TransitionRecorder) RecordTransition(from, to controller.Page, reason controller.Reason) {
	f, t := pageLabel(from), pageLabel(to)
	pageTransitionsTotal.WithLabelValues(f, t, string(reason)).Inc()
	if reason == controller.ReasonCorrection {
		correctionsTotal.WithLabelValues(f, t).Inc()
	}
}

func pageLabel(p controller.Page) string {
	if !p.Known() {
		return "unknown"
	}
	return string(p)
}

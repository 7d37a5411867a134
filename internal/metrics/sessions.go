package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var sessionsOnce sync.Once

// RegisterSessionGauge 注册活跃会话数，count 在每次采集时调用。只有第一次调用生效。
func RegisterSessionGauge(count func() int) {
	sessionsOnce.Do(func() {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "resumestudio",
				Subsystem: "session",
				Name:      "active",
				Help:      "当前内存中的活跃会话数。",
			},
			func() float64 { return float64(count()) },
		))
	})
}

// Handler 返回 /metrics 端点。
func Handler() http.Handler {
	return promhttp.Handler()
}

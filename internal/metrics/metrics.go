// Package metrics публикует метрики пакетной обработки в формате Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics - набор метрик одного процесса.
// Методы безопасны для nil-получателя: без --metrics-addr метрики не собираются.
type Metrics struct {
	registry *prometheus.Registry

	TasksTotal      *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	FramesTotal     prometheus.Counter
	StageFailures   *prometheus.CounterVec
	RemainingSecond prometheus.Gauge
}

// New создаёт метрики в собственном реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vupscale_tasks_total",
			Help: "Total number of videos handled, by final state",
		}, []string{"state"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vupscale_stage_duration_seconds",
			Help:    "Wall-clock duration of pipeline stages",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"stage"}),
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vupscale_frames_upscaled_total",
			Help: "Total number of frames passed through the upscaler",
		}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vupscale_stage_failures_total",
			Help: "Total number of failed stage runs",
		}, []string{"stage"}),
		RemainingSecond: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vupscale_predicted_remaining_seconds",
			Help: "Predicted remaining time of the current batch",
		}),
	}
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage фиксирует длительность этапа и ошибку, если она была.
func (m *Metrics) ObserveStage(stage string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if failed {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// AddFrames увеличивает счётчик увеличенных кадров.
func (m *Metrics) AddFrames(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.FramesTotal.Add(float64(n))
}

// TaskFinished увеличивает счётчик видео с итоговым состоянием.
func (m *Metrics) TaskFinished(state string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(state).Inc()
}

// SetRemaining обновляет прогноз оставшегося времени.
func (m *Metrics) SetRemaining(d time.Duration) {
	if m == nil {
		return
	}
	m.RemainingSecond.Set(d.Seconds())
}

// Handler возвращает HTTP-обработчик с /metrics и /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve запускает HTTP-сервер метрик в отдельной горутине.
// Сервер останавливается при отмене ctx.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}

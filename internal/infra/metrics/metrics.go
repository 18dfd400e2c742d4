package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	VerdictBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "verdict_build_seconds",
		Help:    "Время построения вердикта дня",
		Buckets: prometheus.DefBuckets,
	})
	PollsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_created_total",
		Help: "Созданные опросы по видам",
	}, []string{"kind"})
	PollsClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_closed_total",
		Help: "Закрытые опросы по видам",
	}, []string{"kind"})
	PollVotes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_votes_total",
		Help: "Учтённые изменения голосов по видам опросов",
	}, []string{"kind"})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки и редактирования сообщений ботом",
	})
	AnnounceJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announce_jobs_total",
		Help: "Задачи на анонс вердикта по причинам",
	}, []string{"cause"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		VerdictBuildSeconds,
		PollsCreated,
		PollsClosed,
		PollVotes,
		BotSendErrors,
		AnnounceJobs,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-roster-bot/internal/adapters/bot"
	"tg-roster-bot/internal/adapters/repo"
	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/config"
	"tg-roster-bot/internal/infra/db"
	httpinfra "tg-roster-bot/internal/infra/http"
	"tg-roster-bot/internal/infra/log"
	"tg-roster-bot/internal/infra/metrics"
	"tg-roster-bot/internal/infra/queue"
	"tg-roster-bot/internal/usecase/availability"
)

// API не владеет опросами: опросами владеет гейтвей, единственный процесс с
// входящим потоком реакций. Запросы на создание опроса ставятся в очередь и
// исполняются там.
func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("неизвестная таймзона")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	verdicts := availability.NewService(repoAdapter, repoAdapter, rosterThresholds(cfg), logger)

	pollQueue, closeQueue, err := buildPollQueue(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось подключить очередь опросов")
	}
	defer closeQueue()

	srv := httpinfra.NewServer(logger)

	srv.Router.Get("/api/v1/day/{date}", func(w http.ResponseWriter, r *http.Request) {
		date, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must look like YYYY-MM-DD")
			return
		}
		verdict, err := verdicts.VerdictFor(r.Context(), date)
		if err != nil {
			logger.Error().Err(err).Msg("api: вердикт дня")
			writeError(w, http.StatusInternalServerError, "failed to build verdict")
			return
		}
		writeJSON(w, http.StatusOK, verdictResponse(verdict))
	})

	srv.Router.Post("/api/v1/polls", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req createPollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		title, options, err := bot.ParsePollArgs(req.Args())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		job := domain.PollJob{
			ID:              uuid.NewString(),
			Kind:            domain.PollQuick,
			Title:           title,
			Options:         options,
			DurationMinutes: req.DurationMinutes,
			RequestedAt:     time.Now().In(loc),
		}
		if err := pollQueue.Enqueue(r.Context(), job); err != nil {
			logger.Error().Err(err).Msg("api: постановка опроса в очередь")
			writeError(w, http.StatusInternalServerError, "failed to enqueue poll")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": job.ID})
	})

	srv.Router.Post("/api/v1/polls/training", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req trainingPollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		date, err := time.ParseInLocation("2006-01-02", req.Date, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must look like YYYY-MM-DD")
			return
		}
		verdict, err := verdicts.VerdictFor(r.Context(), date)
		if err != nil {
			logger.Error().Err(err).Msg("api: вердикт дня")
			writeError(w, http.StatusInternalServerError, "failed to build verdict")
			return
		}
		if verdict.CommonWindow == nil {
			writeError(w, http.StatusConflict, "no common window for this date")
			return
		}
		job := domain.PollJob{
			ID:          uuid.NewString(),
			Kind:        domain.PollTraining,
			Date:        date,
			RequestedAt: time.Now().In(loc),
		}
		if err := pollQueue.Enqueue(r.Context(), job); err != nil {
			logger.Error().Err(err).Msg("api: постановка опроса в очередь")
			writeError(w, http.StatusInternalServerError, "failed to enqueue poll")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": job.ID})
	})

	go func() {
		logger.Info().Msg("api: старт")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func rosterThresholds(cfg config.AppConfig) []availability.Threshold {
	return []availability.Threshold{
		{Min: cfg.Roster.FullThreshold, Status: domain.StatusFullRoster},
		{Min: cfg.Roster.SubsThreshold, Status: domain.StatusWithSubs},
		{Min: cfg.Roster.ShortThreshold, Status: domain.StatusNotEnough},
	}
}

func buildPollQueue(cfg config.AppConfig) (domain.PollQueue, func(), error) {
	if cfg.Rabbit.URL != "" {
		rabbit, err := queue.NewRabbitPollQueue(cfg.Rabbit.URL, cfg.Queues.Polls)
		if err != nil {
			return nil, nil, err
		}
		return rabbit, func() { _ = rabbit.Close() }, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return queue.NewRedisPollQueue(client, cfg.Queues.Polls), func() { _ = client.Close() }, nil
}

type createPollRequest struct {
	Title           string   `json:"title"`
	Options         []string `json:"options"`
	DurationMinutes int      `json:"duration_minutes"`
}

// Args собирает тело запроса в тот же формат, что принимает команда /poll.
func (r createPollRequest) Args() string {
	parts := append([]string{r.Title}, r.Options...)
	out := parts[0]
	for _, p := range parts[1:] {
		out += " | " + p
	}
	return out
}

type trainingPollRequest struct {
	Date string `json:"date"`
}

func verdictResponse(v domain.DayVerdict) map[string]any {
	resp := map[string]any{
		"date":            v.Date.Format("2006-01-02"),
		"status":          v.Status,
		"available_mains": v.AvailableMainCount,
		"available_subs":  v.AvailableSubCount,
		"available":       memberStates(v.Available),
		"unavailable":     memberStates(v.Unavailable),
		"no_response":     memberStates(v.NoResponse),
	}
	if v.CommonWindow != nil {
		resp["common_window"] = v.CommonWindow.String()
	}
	return resp
}

func memberStates(states []domain.MemberDayState) []map[string]any {
	out := make([]map[string]any, 0, len(states))
	for _, s := range states {
		item := map[string]any{
			"name":  s.Member.DisplayName,
			"role":  s.Member.Role,
			"state": s.State,
		}
		if s.Window != nil {
			item["window"] = s.Window.String()
		}
		out = append(out, item)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

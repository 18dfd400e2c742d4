package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-roster-bot/internal/adapters/bot"
	"tg-roster-bot/internal/adapters/mtproto"
	"tg-roster-bot/internal/adapters/repo"
	"tg-roster-bot/internal/adapters/telegram"
	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/config"
	"tg-roster-bot/internal/infra/db"
	httpinfra "tg-roster-bot/internal/infra/http"
	"tg-roster-bot/internal/infra/log"
	"tg-roster-bot/internal/infra/metrics"
	"tg-roster-bot/internal/infra/queue"
	"tg-roster-bot/internal/usecase/availability"
	"tg-roster-bot/internal/usecase/poll"
	"tg-roster-bot/internal/usecase/training"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "bot-gateway")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("неизвестная таймзона")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	platform := telegram.NewPlatform(botAPI, logger)
	history := mtproto.NewHistory(cfg.Telegram.APIID, cfg.Telegram.APIHash, cfg.Telegram.Token, cfg.Telegram.ChannelAlias, cfg.MTProto.SessionFile, logger)

	verdicts := availability.NewService(repoAdapter, repoAdapter, rosterThresholds(cfg), logger)
	pollManager := poll.NewManager(platform, history, poll.NewRegistry(), poll.Config{
		ChatID:      cfg.Telegram.TeamChatID,
		Tick:        time.Duration(cfg.Poll.TickSeconds) * time.Second,
		RecoverScan: cfg.Poll.RecoverScan,
		OpTimeout:   time.Duration(cfg.Poll.OpTimeoutSeconds) * time.Second,
	}, logger)
	trainingService := training.NewService(verdicts, pollManager, training.Config{
		SlotStep:     time.Duration(cfg.Training.SlotStepMinutes) * time.Minute,
		SlotCount:    cfg.Training.SlotCount,
		PollDuration: time.Duration(cfg.Training.DurationMinutes) * time.Minute,
	})

	// Восстановление активных опросов — до приёма апдейтов, иначе первые
	// реакции попадут в пустой реестр.
	if err := pollManager.Recover(ctx); err != nil {
		logger.Error().Err(err).Msg("восстановление опросов не удалось, активные опросы будут потеряны")
	}

	h := bot.NewHandler(botAPI, logger, repoAdapter, repoAdapter, verdicts, pollManager, trainingService, loc, time.Duration(cfg.Poll.DurationMinutes)*time.Minute)

	// Гейтвей — единственный владелец опросов: только он получает реакции,
	// остальные сервисы ставят публикацию опроса в очередь.
	pollQueue, closeQueue, err := buildPollQueue(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключить очередь опросов")
	}
	defer closeQueue()
	worker := bot.NewPollJobWorker(pollManager, trainingService, logger, time.Duration(cfg.Poll.DurationMinutes)*time.Minute)
	go worker.Run(ctx, pollQueue)

	srv := httpinfra.NewServer(logger)
	srv.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		logger.Info().Msg("бот-гейтвей запущен")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	pollManager.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildPollQueue выбирает брокер: RabbitMQ при заданном RABBIT_URL, иначе
// Redis. Выбор должен совпадать с сервисами, ставящими задачи.
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

func rosterThresholds(cfg config.AppConfig) []availability.Threshold {
	return []availability.Threshold{
		{Min: cfg.Roster.FullThreshold, Status: domain.StatusFullRoster},
		{Min: cfg.Roster.SubsThreshold, Status: domain.StatusWithSubs},
		{Min: cfg.Roster.ShortThreshold, Status: domain.StatusNotEnough},
	}
}

var _ domain.RosterRepo = (*repo.Postgres)(nil)
var _ domain.ScheduleRepo = (*repo.Postgres)(nil)
var _ domain.ChatPlatform = (*telegram.Platform)(nil)
var _ domain.ChatHistory = (*mtproto.History)(nil)

package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-roster-bot/internal/adapters/bot"
	"tg-roster-bot/internal/adapters/repo"
	"tg-roster-bot/internal/adapters/telegram"
	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/config"
	"tg-roster-bot/internal/infra/db"
	"tg-roster-bot/internal/infra/log"
	"tg-roster-bot/internal/infra/metrics"
	"tg-roster-bot/internal/infra/queue"
	"tg-roster-bot/internal/usecase/availability"
)

// Анонсер разбирает очередь задач на анонс: строит вердикт дня и публикует
// его в командном чате. Неудачные задачи возвращаются в очередь.
func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "announcer")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	verdicts := availability.NewService(repoAdapter, repoAdapter, nil, logger)

	announceQueue, closeQueue, err := buildQueue(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключить очередь анонсов")
	}
	defer closeQueue()

	metrics.StartServer(ctx, logger, ":9090")

	logger.Info().Msg("анонсер запущен")
	for {
		job, ack, err := announceQueue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("остановка анонсера")
				return
			}
			logger.Error().Err(err).Msg("ошибка чтения очереди")
			continue
		}
		ok := handleJob(ctx, logger, verdicts, platform, job)
		if err := ack(ok); err != nil {
			logger.Error().Err(err).Str("job", job.ID).Msg("не удалось подтвердить задачу")
		}
	}
}

func handleJob(ctx context.Context, logger zerolog.Logger, verdicts *availability.Service, platform *telegram.Platform, job domain.AnnounceJob) bool {
	verdict, err := verdicts.VerdictFor(ctx, job.Date)
	if err != nil {
		logger.Error().Err(err).Str("job", job.ID).Msg("не удалось построить вердикт")
		return false
	}
	text := bot.FormatVerdict(verdict)
	lines := strings.SplitN(text, "\n", 2)
	msg := domain.RenderedMessage{Title: lines[0]}
	if len(lines) == 2 {
		msg.Body = lines[1]
	}
	if _, err := platform.SendMessage(ctx, job.ChatID, msg); err != nil {
		logger.Error().Err(err).Str("job", job.ID).Msg("не удалось отправить анонс")
		return false
	}
	logger.Info().Str("job", job.ID).Str("date", job.Date.Format("2006-01-02")).Msg("анонс опубликован")
	return true
}

func buildQueue(cfg config.AppConfig) (domain.AnnounceQueue, func(), error) {
	if cfg.Rabbit.URL != "" {
		rabbit, err := queue.NewRabbitAnnounceQueue(cfg.Rabbit.URL, cfg.Queues.Announce)
		if err != nil {
			return nil, nil, err
		}
		return rabbit, func() { _ = rabbit.Close() }, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return queue.NewRedisAnnounceQueue(client, cfg.Queues.Announce), func() { _ = client.Close() }, nil
}

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/cache"
	"tg-roster-bot/internal/infra/config"
	"tg-roster-bot/internal/infra/log"
	"tg-roster-bot/internal/infra/metrics"
	"tg-roster-bot/internal/infra/queue"
)

// Шедулер раз в минуту проверяет, не наступило ли время ежедневного анонса,
// и ставит задачу в очередь. Дедупликация через Redis: на каждую дату анонс
// ставится один раз, сколько бы реплик шедулера ни работало.
func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "scheduler")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("неизвестная таймзона")
	}

	announceAt, err := time.Parse("15:04", cfg.Announce.Time)
	if err != nil {
		logger.Fatal().Err(err).Str("time", cfg.Announce.Time).Msg("ANNOUNCE_TIME должен быть в формате ЧЧ:ММ")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	once := cache.NewRedis(redisClient)

	announceQueue, closeQueue, err := buildQueue(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключить очередь анонсов")
	}
	defer closeQueue()

	metrics.StartServer(ctx, logger, ":9090")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	logger.Info().Str("time", cfg.Announce.Time).Msg("шедулер запущен")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("остановка шедулера")
			return
		case now := <-ticker.C:
			local := now.In(loc)
			// Сравнение на "не раньше", а не на точное совпадение: опоздавший
			// тик не должен пропустить день. Повторные срабатывания до конца
			// суток гасит дедупликация по дате.
			if !announceDue(local, announceAt.Hour(), announceAt.Minute()) {
				continue
			}
			date := local.Format("2006-01-02")
			err := once.Once(ctx, "announce:"+date, 24*time.Hour, func() error {
				job := domain.AnnounceJob{
					ID:          uuid.NewString(),
					ChatID:      cfg.Telegram.TeamChatID,
					Date:        time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
					RequestedAt: local,
					Cause:       domain.AnnounceCauseScheduled,
				}
				if err := announceQueue.Enqueue(ctx, job); err != nil {
					return err
				}
				metrics.AnnounceJobs.WithLabelValues(string(domain.AnnounceCauseScheduled)).Inc()
				logger.Info().Str("job", job.ID).Str("date", date).Msg("анонс поставлен в очередь")
				return nil
			})
			if err != nil {
				logger.Error().Err(err).Str("date", date).Msg("не удалось поставить анонс")
			}
		}
	}
}

// announceDue сообщает, наступило ли в текущих сутках время анонса.
func announceDue(now time.Time, hour, minute int) bool {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return !now.Before(target)
}

// buildQueue выбирает брокер: RabbitMQ при заданном RABBIT_URL, иначе Redis.
func buildQueue(cfg config.AppConfig, redisClient *redis.Client) (domain.AnnounceQueue, func(), error) {
	if cfg.Rabbit.URL != "" {
		rabbit, err := queue.NewRabbitAnnounceQueue(cfg.Rabbit.URL, cfg.Queues.Announce)
		if err != nil {
			return nil, nil, err
		}
		return rabbit, func() { _ = rabbit.Close() }, nil
	}
	return queue.NewRedisAnnounceQueue(redisClient, cfg.Queues.Announce), func() {}, nil
}

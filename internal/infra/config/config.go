package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Moscow"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token        string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL   string `envconfig:"TG_WEBHOOK_URL"`
		APIID        int    `envconfig:"TG_API_ID"`
		APIHash      string `envconfig:"TG_API_HASH"`
		TeamChatID   int64  `envconfig:"TG_TEAM_CHAT_ID"`
		ChannelAlias string `envconfig:"TG_TEAM_CHANNEL_ALIAS"`
	} `envconfig:""`

	MTProto struct {
		SessionFile string `envconfig:"MTPROTO_SESSION_FILE" default:"mtproto.session"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Rabbit struct {
		URL string `envconfig:"RABBIT_URL"`
	} `envconfig:""`

	Queues struct {
		Announce string `envconfig:"ANNOUNCE_QUEUE_KEY" default:"announce_jobs"`
		Polls    string `envconfig:"POLL_QUEUE_KEY" default:"poll_jobs"`
	} `envconfig:""`

	Announce struct {
		Time string `envconfig:"ANNOUNCE_TIME" default:"12:00"`
	} `envconfig:""`

	Poll struct {
		TickSeconds      int `envconfig:"POLL_TICK_SECONDS" default:"30"`
		RecoverScan      int `envconfig:"POLL_RECOVER_SCAN" default:"50"`
		DurationMinutes  int `envconfig:"POLL_DURATION_MIN" default:"60"`
		OpTimeoutSeconds int `envconfig:"POLL_OP_TIMEOUT_SECONDS" default:"10"`
	} `envconfig:""`

	Training struct {
		SlotStepMinutes int `envconfig:"TRAINING_SLOT_STEP_MIN" default:"30"`
		SlotCount       int `envconfig:"TRAINING_SLOT_COUNT" default:"3"`
		DurationMinutes int `envconfig:"TRAINING_POLL_DURATION_MIN" default:"45"`
	} `envconfig:""`

	Roster struct {
		FullThreshold  int `envconfig:"ROSTER_FULL_THRESHOLD" default:"5"`
		SubsThreshold  int `envconfig:"ROSTER_SUBS_THRESHOLD" default:"4"`
		ShortThreshold int `envconfig:"ROSTER_SHORT_THRESHOLD" default:"3"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

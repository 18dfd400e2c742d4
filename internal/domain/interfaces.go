package domain

import (
	"context"
	"time"
)

// RosterRepo управляет участниками состава.
type RosterRepo interface {
	GetMemberByTGID(ctx context.Context, tgUserID int64) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// ScheduleRepo хранит сырую доступность, отсутствия и метки дней.
type ScheduleRepo interface {
	ListDay(ctx context.Context, date time.Time) ([]AvailabilityEntry, error)
	ListAbsences(ctx context.Context, date time.Time) ([]AbsenceWindow, error)
	SetRawAvailability(ctx context.Context, memberID int64, date time.Time, raw string) error
	AddAbsence(ctx context.Context, absence AbsenceWindow) error
	DayTag(ctx context.Context, date time.Time) (string, error)
}

// ChatPlatform — узкий интерфейс исходящих операций чата. Ядро никогда не
// держит ссылку на клиент платформы напрямую.
type ChatPlatform interface {
	SendMessage(ctx context.Context, chatID int64, msg RenderedMessage) (int64, error)
	EditMessage(ctx context.Context, chatID, messageID int64, msg RenderedMessage) error
	AddReactions(ctx context.Context, chatID, messageID int64, emojis []string) error
	RemoveAllReactions(ctx context.Context, chatID, messageID int64) error
	BotUserID() int64
}

// ChatHistory читает состояние чата при восстановлении опросов после
// рестарта: последние сообщения канала и актуальные списки проголосовавших.
type ChatHistory interface {
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]ChannelMessage, error)
	ReactionVoters(ctx context.Context, chatID, messageID int64, emoji string) ([]int64, error)
}

// Cache ограждает действия, которые должны выполниться не чаще раза за TTL.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

package domain

import (
	"context"
	"time"
)

// AnnounceCause описывает источник задачи на анонс вердикта.
type AnnounceCause string

const (
	// AnnounceCauseManual — оператор запросил анонс вручную.
	AnnounceCauseManual AnnounceCause = "manual"
	// AnnounceCauseScheduled — анонс поставлен по расписанию.
	AnnounceCauseScheduled AnnounceCause = "scheduled"
)

// AnnounceJob — задача опубликовать вердикт дня в командном чате.
type AnnounceJob struct {
	ID          string        `json:"job_id"`
	ChatID      int64         `json:"chat_id"`
	Date        time.Time     `json:"date"`
	RequestedAt time.Time     `json:"requested_at"`
	Cause       AnnounceCause `json:"cause"`
}

// AnnounceAckFunc подтверждает обработку задачи или возвращает её в очередь.
type AnnounceAckFunc func(success bool) error

// AnnounceQueue — очередь задач на анонс вердикта.
type AnnounceQueue interface {
	Enqueue(ctx context.Context, job AnnounceJob) error
	Receive(ctx context.Context) (AnnounceJob, AnnounceAckFunc, error)
}

// PollJob — задача опубликовать опрос. Опросами владеет только гейтвей:
// это единственный процесс с входящим потоком реакций, поэтому остальные
// сервисы ставят создание опроса в очередь вместо прямой публикации.
type PollJob struct {
	ID              string       `json:"job_id"`
	Kind            PollKind     `json:"kind"`
	Title           string       `json:"title,omitempty"`
	Options         []PollOption `json:"options,omitempty"`
	Date            time.Time    `json:"date,omitempty"`
	DurationMinutes int          `json:"duration_minutes,omitempty"`
	RequestedAt     time.Time    `json:"requested_at"`
}

// PollQueue — очередь задач на публикацию опросов.
type PollQueue interface {
	Enqueue(ctx context.Context, job PollJob) error
	Receive(ctx context.Context) (PollJob, AnnounceAckFunc, error)
}

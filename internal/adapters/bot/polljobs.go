package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/usecase/poll"
	"tg-roster-bot/internal/usecase/training"
)

// pollCreator публикует быстрый опрос.
type pollCreator interface {
	Create(ctx context.Context, title string, kind domain.PollKind, options []domain.PollOption, duration time.Duration) (int64, error)
}

// trainingCreator публикует опрос о времени тренировки.
type trainingCreator interface {
	CreatePoll(ctx context.Context, date time.Time) (int64, error)
}

// PollJobWorker исполняет задачи на публикацию опросов из очереди. Опросами
// владеет только процесс с входящим потоком реакций, поэтому остальные
// сервисы не создают опросы сами, а ставят задачу сюда.
type PollJobWorker struct {
	polls           pollCreator
	training        trainingCreator
	log             zerolog.Logger
	defaultDuration time.Duration
}

// NewPollJobWorker создаёт воркер очереди опросов.
func NewPollJobWorker(polls pollCreator, trainingUC trainingCreator, log zerolog.Logger, defaultDuration time.Duration) *PollJobWorker {
	return &PollJobWorker{polls: polls, training: trainingUC, log: log, defaultDuration: defaultDuration}
}

var _ pollCreator = (*poll.Manager)(nil)
var _ trainingCreator = (*training.Service)(nil)

// Handle публикует опрос по задаче. Возвращает ошибку только когда задачу
// имеет смысл вернуть в очередь; негодные задачи отбрасываются с записью
// в журнал.
func (w *PollJobWorker) Handle(ctx context.Context, job domain.PollJob) error {
	switch job.Kind {
	case domain.PollQuick:
		duration := w.defaultDuration
		if job.DurationMinutes > 0 {
			duration = time.Duration(job.DurationMinutes) * time.Minute
		}
		id, err := w.polls.Create(ctx, job.Title, domain.PollQuick, job.Options, duration)
		if err != nil {
			if errors.Is(err, poll.ErrNoOptions) || errors.Is(err, poll.ErrDuplicateEmoji) {
				w.log.Warn().Err(err).Str("job", job.ID).Msg("негодная задача опроса, отбрасываем")
				return nil
			}
			return fmt.Errorf("публикация опроса: %w", err)
		}
		w.log.Info().Str("job", job.ID).Int64("message", id).Msg("опрос опубликован по задаче")
		return nil
	case domain.PollTraining:
		id, err := w.training.CreatePoll(ctx, job.Date)
		if err != nil {
			if errors.Is(err, training.ErrNoCommonWindow) {
				// Окно могло закрыться между постановкой задачи и публикацией.
				w.log.Warn().Str("job", job.ID).Msg("общего окна больше нет, задача отброшена")
				return nil
			}
			return fmt.Errorf("публикация тренировочного опроса: %w", err)
		}
		w.log.Info().Str("job", job.ID).Int64("message", id).Msg("тренировочный опрос опубликован по задаче")
		return nil
	default:
		w.log.Warn().Str("job", job.ID).Str("kind", string(job.Kind)).Msg("неизвестный вид опроса, задача отброшена")
		return nil
	}
}

// Run разбирает очередь до отмены контекста.
func (w *PollJobWorker) Run(ctx context.Context, queue domain.PollQueue) {
	for {
		job, ack, err := queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("ошибка чтения очереди опросов")
			continue
		}
		handleErr := w.Handle(ctx, job)
		if handleErr != nil {
			w.log.Error().Err(handleErr).Str("job", job.ID).Msg("не удалось опубликовать опрос")
		}
		if err := ack(handleErr == nil); err != nil {
			w.log.Error().Err(err).Str("job", job.ID).Msg("не удалось подтвердить задачу")
		}
	}
}

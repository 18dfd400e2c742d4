package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/interval"
)

// ErrNoCommonWindow возвращается, если на день нет общего окна: голосовать
// не за что, опрос не создаётся.
var ErrNoCommonWindow = errors.New("нет общего окна доступности")

// Эмодзи вариантов по порядку. Больше пяти кандидатов не предлагаем.
var slotEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣"}

// VerdictSource поставляет вердикт дня.
type VerdictSource interface {
	VerdictFor(ctx context.Context, date time.Time) (domain.DayVerdict, error)
}

// PollCreator публикует опрос.
type PollCreator interface {
	Create(ctx context.Context, title string, kind domain.PollKind, options []domain.PollOption, duration time.Duration) (int64, error)
}

// Config задаёт шаг кандидатов и длительность голосования.
type Config struct {
	SlotStep     time.Duration
	SlotCount    int
	PollDuration time.Duration
}

// Service превращает вердикт дня в опрос о времени начала тренировки —
// единственная точка стыковки анализатора и менеджера опросов.
type Service struct {
	verdicts VerdictSource
	polls    PollCreator
	cfg      Config
}

// NewService создаёт сервис тренировочных опросов.
func NewService(verdicts VerdictSource, polls PollCreator, cfg Config) *Service {
	if cfg.SlotStep <= 0 {
		cfg.SlotStep = 30 * time.Minute
	}
	if cfg.SlotCount <= 0 || cfg.SlotCount > len(slotEmojis) {
		cfg.SlotCount = 3
	}
	if cfg.PollDuration <= 0 {
		cfg.PollDuration = 45 * time.Minute
	}
	return &Service{verdicts: verdicts, polls: polls, cfg: cfg}
}

// BuildOptions строит меню кандидатов начала внутри общего окна: старт
// окна и далее с настроенным шагом, пока кандидат не выходит за окно.
func (s *Service) BuildOptions(verdict domain.DayVerdict) ([]domain.PollOption, error) {
	if verdict.CommonWindow == nil {
		return nil, ErrNoCommonWindow
	}
	step := int(s.cfg.SlotStep / time.Minute)
	var options []domain.PollOption
	for minute := verdict.CommonWindow.Start; minute < verdict.CommonWindow.End && len(options) < s.cfg.SlotCount; minute += step {
		hhmm := interval.FormatMinute(minute)
		options = append(options, domain.PollOption{
			Emoji:        slotEmojis[len(options)],
			Label:        hhmm,
			DisplayValue: "Начало в " + hhmm,
		})
	}
	return options, nil
}

// CreatePoll строит вердикт на дату и публикует опрос о времени тренировки.
func (s *Service) CreatePoll(ctx context.Context, date time.Time) (int64, error) {
	verdict, err := s.verdicts.VerdictFor(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("вердикт дня: %w", err)
	}
	options, err := s.BuildOptions(verdict)
	if err != nil {
		return 0, err
	}
	title := fmt.Sprintf("Тренировка %s, окно %s", date.Format("02.01"), verdict.CommonWindow.String())
	return s.polls.Create(ctx, title, domain.PollTraining, options, s.cfg.PollDuration)
}

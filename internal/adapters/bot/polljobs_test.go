package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/usecase/poll"
	"tg-roster-bot/internal/usecase/training"
)

type stubPollCreator struct {
	title    string
	kind     domain.PollKind
	options  []domain.PollOption
	duration time.Duration
	err      error
	calls    int
}

func (s *stubPollCreator) Create(_ context.Context, title string, kind domain.PollKind, options []domain.PollOption, duration time.Duration) (int64, error) {
	s.calls++
	s.title, s.kind, s.options, s.duration = title, kind, options, duration
	if s.err != nil {
		return 0, s.err
	}
	return 77, nil
}

type stubTrainingCreator struct {
	date  time.Time
	err   error
	calls int
}

func (s *stubTrainingCreator) CreatePoll(_ context.Context, date time.Time) (int64, error) {
	s.calls++
	s.date = date
	if s.err != nil {
		return 0, s.err
	}
	return 78, nil
}

func TestPollJobWorkerQuick(t *testing.T) {
	creator := &stubPollCreator{}
	w := NewPollJobWorker(creator, &stubTrainingCreator{}, zerolog.Nop(), time.Hour)
	job := domain.PollJob{
		ID:      "j1",
		Kind:    domain.PollQuick,
		Title:   "Играем?",
		Options: []domain.PollOption{{Emoji: "1️⃣", Label: "Да"}, {Emoji: "2️⃣", Label: "Нет"}},
	}
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if creator.title != "Играем?" || creator.kind != domain.PollQuick || len(creator.options) != 2 {
		t.Fatalf("задача передана неверно: %+v", creator)
	}
	if creator.duration != time.Hour {
		t.Fatalf("без явной длительности берётся значение по умолчанию, получили %v", creator.duration)
	}
}

func TestPollJobWorkerQuickCustomDuration(t *testing.T) {
	creator := &stubPollCreator{}
	w := NewPollJobWorker(creator, &stubTrainingCreator{}, zerolog.Nop(), time.Hour)
	job := domain.PollJob{
		Kind:            domain.PollQuick,
		Title:           "Играем?",
		Options:         []domain.PollOption{{Emoji: "1️⃣", Label: "Да"}, {Emoji: "2️⃣", Label: "Нет"}},
		DurationMinutes: 15,
	}
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if creator.duration != 15*time.Minute {
		t.Fatalf("длительность из задачи должна иметь приоритет, получили %v", creator.duration)
	}
}

func TestPollJobWorkerTraining(t *testing.T) {
	trainingStub := &stubTrainingCreator{}
	w := NewPollJobWorker(&stubPollCreator{}, trainingStub, zerolog.Nop(), time.Hour)
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if err := w.Handle(context.Background(), domain.PollJob{Kind: domain.PollTraining, Date: date}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !trainingStub.date.Equal(date) {
		t.Fatalf("дата задачи передана неверно: %v", trainingStub.date)
	}
}

func TestPollJobWorkerDropsBadJobs(t *testing.T) {
	creator := &stubPollCreator{err: poll.ErrNoOptions}
	trainingStub := &stubTrainingCreator{err: training.ErrNoCommonWindow}
	w := NewPollJobWorker(creator, trainingStub, zerolog.Nop(), time.Hour)

	// Негодные задачи не возвращаются в очередь: повтор даст тот же результат.
	if err := w.Handle(context.Background(), domain.PollJob{Kind: domain.PollQuick}); err != nil {
		t.Fatalf("задача без вариантов отбрасывается, а не повторяется: %v", err)
	}
	if err := w.Handle(context.Background(), domain.PollJob{Kind: domain.PollTraining}); err != nil {
		t.Fatalf("исчезнувшее окно отбрасывает задачу, а не повторяет её: %v", err)
	}
	if err := w.Handle(context.Background(), domain.PollJob{Kind: "OTHER"}); err != nil {
		t.Fatalf("неизвестный вид отбрасывается: %v", err)
	}
}

func TestPollJobWorkerRequeuesTransientFailure(t *testing.T) {
	creator := &stubPollCreator{err: errors.New("сеть недоступна")}
	w := NewPollJobWorker(creator, &stubTrainingCreator{}, zerolog.Nop(), time.Hour)
	job := domain.PollJob{
		Kind:    domain.PollQuick,
		Options: []domain.PollOption{{Emoji: "1️⃣", Label: "Да"}},
	}
	if err := w.Handle(context.Background(), job); err == nil {
		t.Fatalf("сетевые ошибки должны возвращать задачу в очередь")
	}
}
